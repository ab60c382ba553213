package psgc

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

const psgcCodeLength = 10

// Options selects the sheet and overrides the header names of a PSGC
// publication workbook.
type Options struct {
	Sheet        string
	CodeHeader   string
	NameHeader   string
	LevelHeader  string
	SkipUnknowns bool
}

func (o Options) withDefaults() Options {
	if o.CodeHeader == "" {
		o.CodeHeader = "10-digit PSGC"
	}
	if o.NameHeader == "" {
		o.NameHeader = "Name"
	}
	if o.LevelHeader == "" {
		o.LevelHeader = "Geographic Level"
	}
	return o
}

// ParseWorkbook reads location rows from a PSGC xlsx publication. Parent
// codes are derived from the code prefix.
func ParseWorkbook(r io.Reader, opts Options) ([]domain.Location, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open psgc workbook", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = findSheet(f)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read psgc sheet", err)
	}

	headerRow, cols, err := locateHeader(rows, opts)
	if err != nil {
		return nil, err
	}

	locations := make([]domain.Location, 0, len(rows))
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		code := normalizeCode(cell(row, cols.code))
		if code == "" {
			continue
		}
		level, ok := parseGeographicLevel(cell(row, cols.level))
		if !ok {
			if opts.SkipUnknowns {
				continue
			}
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse psgc row",
				fmt.Errorf("row %d: unknown geographic level %q", i+1, cell(row, cols.level)))
		}
		locations = append(locations, domain.Location{
			Level: level,
			Code:  code,
			Name:  strings.TrimSpace(cell(row, cols.name)),
		})
	}
	linkParents(locations)
	return locations, nil
}

func findSheet(f *excelize.File) string {
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(name), "PSGC") {
			return name
		}
	}
	return f.GetSheetName(f.GetActiveSheetIndex())
}

type columns struct {
	code, name, level int
}

func locateHeader(rows [][]string, opts Options) (int, columns, error) {
	for i, row := range rows {
		cols := columns{code: -1, name: -1, level: -1}
		for j, value := range row {
			switch {
			case strings.EqualFold(strings.TrimSpace(value), opts.CodeHeader):
				cols.code = j
			case strings.EqualFold(strings.TrimSpace(value), opts.NameHeader):
				cols.name = j
			case strings.EqualFold(strings.TrimSpace(value), opts.LevelHeader):
				cols.level = j
			}
		}
		if cols.code >= 0 && cols.name >= 0 && cols.level >= 0 {
			return i, cols, nil
		}
	}
	return 0, columns{}, domain.WrapError(domain.ErrInvalidInput, "locate psgc header",
		errors.New("header row with code, name and level columns not found"))
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// normalizeCode left-pads numeric codes that lost their leading zero in the
// spreadsheet.
func normalizeCode(raw string) string {
	code := strings.TrimSpace(raw)
	if code == "" {
		return ""
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return code
		}
	}
	if len(code) < psgcCodeLength {
		code = strings.Repeat("0", psgcCodeLength-len(code)) + code
	}
	return code
}

func parseGeographicLevel(raw string) (domain.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "reg", "region":
		return domain.LevelRegion, true
	case "prov", "province":
		return domain.LevelProvince, true
	case "city", "mun", "municipality", "submun":
		return domain.LevelCity, true
	case "bgy", "barangay":
		return domain.LevelBarangay, true
	default:
		return "", false
	}
}

// linkParents derives each row's parent from its code prefix. Cities outside
// any province (NCR) attach to their region instead.
func linkParents(locations []domain.Location) {
	known := make(map[domain.Level]map[string]struct{}, len(domain.Levels))
	for _, level := range domain.Levels {
		known[level] = make(map[string]struct{})
	}
	for _, loc := range locations {
		known[loc.Level][loc.Code] = struct{}{}
	}

	for i := range locations {
		loc := &locations[i]
		if len(loc.Code) != psgcCodeLength {
			continue
		}
		for _, candidate := range parentCandidates(loc.Level, loc.Code) {
			if _, ok := known[candidate.level][candidate.code]; ok {
				loc.ParentCode = candidate.code
				break
			}
		}
	}
}

type parentRef struct {
	level domain.Level
	code  string
}

func parentCandidates(level domain.Level, code string) []parentRef {
	region := parentRef{level: domain.LevelRegion, code: code[:2] + "00000000"}
	province := parentRef{level: domain.LevelProvince, code: code[:5] + "00000"}
	city := parentRef{level: domain.LevelCity, code: code[:7] + "000"}
	switch level {
	case domain.LevelProvince:
		return []parentRef{region}
	case domain.LevelCity:
		return []parentRef{province, region}
	case domain.LevelBarangay:
		return []parentRef{city}
	default:
		return nil
	}
}

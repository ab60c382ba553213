package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

// levelTable describes the reference table behind one hierarchy level.
type levelTable struct {
	table      string
	codeColumn string
	// parentColumn is empty for the top level.
	parentColumn string
}

var levelTables = map[domain.Level]levelTable{
	domain.LevelRegion:   {table: "ref_region", codeColumn: "region_code"},
	domain.LevelProvince: {table: "ref_province", codeColumn: "province_code", parentColumn: "region_code"},
	domain.LevelCity:     {table: "ref_citymun", codeColumn: "citymun_code", parentColumn: "province_code"},
	domain.LevelBarangay: {table: "ref_barangay", codeColumn: "barangay_code", parentColumn: "citymun_code"},
}

func (t levelTable) parentExpr() string {
	if t.parentColumn == "" {
		return "''"
	}
	return t.parentColumn
}

func (t levelTable) selectBy(column string) string {
	return fmt.Sprintf(`SELECT id, %s, name, %s FROM %s WHERE %s = $1`, t.codeColumn, t.parentExpr(), t.table, column)
}

type LocationRepository struct {
	db *sql.DB
}

func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) LocationByCode(ctx context.Context, level domain.Level, code string) (*domain.Location, error) {
	t, ok := levelTables[level]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "location by code", fmt.Errorf("level=%q", level))
	}
	return r.scanOne(ctx, level, t.selectBy(t.codeColumn), code)
}

func (r *LocationRepository) LocationByID(ctx context.Context, level domain.Level, id int64) (*domain.Location, error) {
	t, ok := levelTables[level]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "location by id", fmt.Errorf("level=%q", level))
	}
	return r.scanOne(ctx, level, t.selectBy("id"), id)
}

func (r *LocationRepository) scanOne(ctx context.Context, level domain.Level, query string, arg any) (*domain.Location, error) {
	loc := domain.Location{Level: level}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&loc.ID, &loc.Code, &loc.Name, &loc.ParentCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrLocationNotFound, "lookup location", fmt.Errorf("%s=%v", level, arg))
		}
		return nil, fmt.Errorf("scan %s: %w", level, err)
	}
	return &loc, nil
}

// UpsertLocations writes reference rows keyed by their natural code.
func (r *LocationRepository) UpsertLocations(ctx context.Context, locations []domain.Location) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin location import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	written := 0
	for _, loc := range locations {
		t, ok := levelTables[loc.Level]
		if !ok {
			return written, domain.WrapError(domain.ErrInvalidInput, "upsert location", fmt.Errorf("level=%q code=%s", loc.Level, loc.Code))
		}
		query := upsertQuery(t)
		args := []any{loc.Code, loc.Name}
		if t.parentColumn != "" {
			args = append(args, loc.ParentCode)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return written, fmt.Errorf("upsert %s %s: %w", loc.Level, loc.Code, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit location import tx: %w", err)
	}
	return written, nil
}

func upsertQuery(t levelTable) string {
	if t.parentColumn == "" {
		return fmt.Sprintf(`INSERT INTO %s (%s, name) VALUES ($1, $2)
ON CONFLICT (%s) DO UPDATE SET name = EXCLUDED.name`, t.table, t.codeColumn, t.codeColumn)
	}
	return fmt.Sprintf(`INSERT INTO %s (%s, name, %s) VALUES ($1, $2, $3)
ON CONFLICT (%s) DO UPDATE SET name = EXCLUDED.name, %s = EXCLUDED.%s`,
		t.table, t.codeColumn, t.parentColumn, t.codeColumn, t.parentColumn, t.parentColumn)
}

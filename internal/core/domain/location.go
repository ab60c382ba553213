package domain

import "strings"

// Level is one tier of the administrative hierarchy, highest first.
type Level string

const (
	LevelRegion   Level = "region"
	LevelProvince Level = "province"
	LevelCity     Level = "city"
	LevelBarangay Level = "barangay"
)

// Levels lists the hierarchy from the top down.
var Levels = []Level{LevelRegion, LevelProvince, LevelCity, LevelBarangay}

// ParseLevel accepts the level names used in field suffixes. "municipality"
// and "citymun" are aliases of city.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "region":
		return LevelRegion, true
	case "province":
		return LevelProvince, true
	case "city", "municipality", "citymun":
		return LevelCity, true
	case "barangay":
		return LevelBarangay, true
	default:
		return "", false
	}
}

// Parent returns the level directly above l.
func (l Level) Parent() (Level, bool) {
	switch l {
	case LevelBarangay:
		return LevelCity, true
	case LevelCity:
		return LevelProvince, true
	case LevelProvince:
		return LevelRegion, true
	default:
		return "", false
	}
}

func (l Level) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// Location is a row of the location reference store.
type Location struct {
	ID         int64  `json:"id" yaml:"id"`
	Level      Level  `json:"level" yaml:"level"`
	Code       string `json:"code" yaml:"code"`
	Name       string `json:"name" yaml:"name"`
	ParentCode string `json:"parent_code,omitempty" yaml:"parent_code,omitempty"`
}

// ResolvedLocation is the resolver output. Fallback is set when no lookup
// strategy produced a name and DisplayName holds placeholder text.
type ResolvedLocation struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// LocationRef is one level of a hierarchical value: the stored code and,
// when the producer supplied it, the label shown at capture time.
type LocationRef struct {
	Code string `json:"value"`
	Text string `json:"text,omitempty"`
}

// HierarchicalValue is a region→province→city→barangay reference where every
// level is optional.
type HierarchicalValue struct {
	Region   *LocationRef `json:"region,omitempty"`
	Province *LocationRef `json:"province,omitempty"`
	City     *LocationRef `json:"city,omitempty"`
	Barangay *LocationRef `json:"barangay,omitempty"`
}

func (h HierarchicalValue) Get(level Level) *LocationRef {
	switch level {
	case LevelRegion:
		return h.Region
	case LevelProvince:
		return h.Province
	case LevelCity:
		return h.City
	case LevelBarangay:
		return h.Barangay
	default:
		return nil
	}
}

// Set assigns ref to level, ignoring unknown levels.
func (h *HierarchicalValue) Set(level Level, ref *LocationRef) {
	switch level {
	case LevelRegion:
		h.Region = ref
	case LevelProvince:
		h.Province = ref
	case LevelCity:
		h.City = ref
	case LevelBarangay:
		h.Barangay = ref
	}
}

// Code returns the code stored at level, or "" when the level is absent.
func (h HierarchicalValue) Code(level Level) string {
	ref := h.Get(level)
	if ref == nil {
		return ""
	}
	return ref.Code
}

func (h HierarchicalValue) IsEmpty() bool {
	for _, level := range Levels {
		if h.Code(level) != "" {
			return false
		}
	}
	return true
}

// Lowest returns the most specific level carrying a code.
func (h HierarchicalValue) Lowest() (Level, bool) {
	for i := len(Levels) - 1; i >= 0; i-- {
		if h.Code(Levels[i]) != "" {
			return Levels[i], true
		}
	}
	return "", false
}

// SameCodes compares two values level by level on codes only.
func (h HierarchicalValue) SameCodes(other HierarchicalValue) bool {
	for _, level := range Levels {
		if h.Code(level) != other.Code(level) {
			return false
		}
	}
	return true
}

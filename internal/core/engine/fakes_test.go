package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type locationStoreFake struct {
	byCode map[domain.Level]map[string]domain.Location
	byID   map[domain.Level]map[int64]domain.Location
	err    error
	calls  int
}

func newLocationStoreFake(locations ...domain.Location) *locationStoreFake {
	f := &locationStoreFake{
		byCode: make(map[domain.Level]map[string]domain.Location),
		byID:   make(map[domain.Level]map[int64]domain.Location),
	}
	for _, loc := range locations {
		if f.byCode[loc.Level] == nil {
			f.byCode[loc.Level] = make(map[string]domain.Location)
			f.byID[loc.Level] = make(map[int64]domain.Location)
		}
		f.byCode[loc.Level][loc.Code] = loc
		if loc.ID != 0 {
			f.byID[loc.Level][loc.ID] = loc
		}
	}
	return f
}

func (f *locationStoreFake) LocationByCode(_ context.Context, level domain.Level, code string) (*domain.Location, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	loc, ok := f.byCode[level][code]
	if !ok {
		return nil, domain.WrapError(domain.ErrLocationNotFound, "location by code", fmt.Errorf("%s=%s", level, code))
	}
	return &loc, nil
}

func (f *locationStoreFake) LocationByID(_ context.Context, level domain.Level, id int64) (*domain.Location, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	loc, ok := f.byID[level][id]
	if !ok {
		return nil, domain.WrapError(domain.ErrLocationNotFound, "location by id", errors.New("missing"))
	}
	return &loc, nil
}

func calabarzonFixture() *locationStoreFake {
	return newLocationStoreFake(
		domain.Location{ID: 4, Level: domain.LevelRegion, Code: "R04", Name: "Region IV-A"},
		domain.Location{ID: 21, Level: domain.LevelProvince, Code: "0434", Name: "Laguna", ParentCode: "R04"},
		domain.Location{ID: 402, Level: domain.LevelCity, Code: "043404", Name: "Calamba", ParentCode: "0434"},
		domain.Location{ID: 9001, Level: domain.LevelBarangay, Code: "043404001", Name: "Bagong Kalsada", ParentCode: "043404"},
	)
}

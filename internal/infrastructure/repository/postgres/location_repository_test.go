package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

func TestLocationByCodeQueriesLevelTable(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewLocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, province_code, name, region_code FROM ref_province WHERE province_code = $1")).
		WithArgs("0434").
		WillReturnRows(sqlmock.NewRows([]string{"id", "province_code", "name", "region_code"}).
			AddRow(int64(21), "0434", "Laguna", "R04"))

	loc, err := repo.LocationByCode(context.Background(), domain.LevelProvince, "0434")
	if err != nil {
		t.Fatalf("LocationByCode() error = %v", err)
	}
	if loc.Name != "Laguna" || loc.ParentCode != "R04" || loc.Level != domain.LevelProvince {
		t.Fatalf("unexpected location %+v", loc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLocationByIDRegionHasNoParent(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewLocationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, region_code, name, '' FROM ref_region WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "region_code", "name", "parent"}).
			AddRow(int64(4), "R04", "Region IV-A", ""))

	loc, err := repo.LocationByID(context.Background(), domain.LevelRegion, 4)
	if err != nil {
		t.Fatalf("LocationByID() error = %v", err)
	}
	if loc.Code != "R04" || loc.ParentCode != "" {
		t.Fatalf("unexpected region %+v", loc)
	}
}

func TestLocationByCodeReturnsDomainNotFound(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewLocationRepository(db)

	mock.ExpectQuery("FROM ref_barangay").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LocationByCode(context.Background(), domain.LevelBarangay, "nope")
	if !domain.IsKind(err, domain.ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}
}

func TestLocationByCodeRejectsUnknownLevel(t *testing.T) {
	db, _, done := newMockDB(t)
	defer done()
	repo := NewLocationRepository(db)

	_, err := repo.LocationByCode(context.Background(), domain.Level("sitio"), "1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpsertLocationsRunsInTransaction(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewLocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ref_region").
		WithArgs("R04", "Region IV-A").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO ref_citymun").
		WithArgs("043404", "Calamba", "0434").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := repo.UpsertLocations(context.Background(), []domain.Location{
		{Level: domain.LevelRegion, Code: "R04", Name: "Region IV-A"},
		{Level: domain.LevelCity, Code: "043404", Name: "Calamba", ParentCode: "0434"},
	})
	if err != nil {
		t.Fatalf("UpsertLocations() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows written, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

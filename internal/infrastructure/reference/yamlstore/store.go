package yamlstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

// fixture is the on-disk layout:
//
//	locations:
//	  - {level: region, id: 4, code: R04, name: Region IV-A}
//	  - {level: province, id: 21, code: "0434", name: Laguna, parent_code: R04}
type fixture struct {
	Locations []domain.Location `yaml:"locations"`
}

type levelKey struct {
	level domain.Level
	code  string
}

type idKey struct {
	level domain.Level
	id    int64
}

// Store is an in-memory location reference loaded from YAML. It serves
// fixtures and offline deployments.
type Store struct {
	mu     sync.RWMutex
	byCode map[levelKey]domain.Location
	byID   map[idKey]domain.Location
}

func New() *Store {
	return &Store{
		byCode: make(map[levelKey]domain.Location),
		byID:   make(map[idKey]domain.Location),
	}
}

func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open location fixture: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Store, error) {
	locations, err := Decode(r)
	if err != nil {
		return nil, err
	}
	s := New()
	if _, err := s.UpsertLocations(context.Background(), locations); err != nil {
		return nil, err
	}
	return s, nil
}

// Decode parses a fixture into normalized locations.
func Decode(r io.Reader) ([]domain.Location, error) {
	var fx fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.Location{}, nil
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode location fixture", err)
	}
	out := make([]domain.Location, 0, len(fx.Locations))
	for i, loc := range fx.Locations {
		level, ok := domain.ParseLevel(string(loc.Level))
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode location fixture",
				fmt.Errorf("entry %d: unknown level %q", i+1, loc.Level))
		}
		if loc.Code == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "decode location fixture",
				fmt.Errorf("entry %d: empty code", i+1))
		}
		loc.Level = level
		out = append(out, loc)
	}
	return out, nil
}

func (s *Store) LocationByCode(_ context.Context, level domain.Level, code string) (*domain.Location, error) {
	s.mu.RLock()
	loc, ok := s.byCode[levelKey{level: level, code: code}]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrLocationNotFound, "yaml location by code", fmt.Errorf("%s=%s", level, code))
	}
	return &loc, nil
}

func (s *Store) LocationByID(_ context.Context, level domain.Level, id int64) (*domain.Location, error) {
	s.mu.RLock()
	loc, ok := s.byID[idKey{level: level, id: id}]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrLocationNotFound, "yaml location by id", fmt.Errorf("%s=%d", level, id))
	}
	return &loc, nil
}

func (s *Store) UpsertLocations(_ context.Context, locations []domain.Location) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loc := range locations {
		if prev, ok := s.byCode[levelKey{level: loc.Level, code: loc.Code}]; ok && prev.ID != 0 {
			delete(s.byID, idKey{level: prev.Level, id: prev.ID})
		}
		s.byCode[levelKey{level: loc.Level, code: loc.Code}] = loc
		if loc.ID != 0 {
			s.byID[idKey{level: loc.Level, id: loc.ID}] = loc
		}
	}
	return len(locations), nil
}

// Encode writes locations in the fixture layout.
func Encode(w io.Writer, locations []domain.Location) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fixture{Locations: locations}); err != nil {
		return fmt.Errorf("encode location fixture: %w", err)
	}
	return enc.Close()
}

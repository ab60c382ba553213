package neo4jgraph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

const (
	lookupByCodeCypher = `
MATCH (l:Location {level: $level, code: $code})
OPTIONAL MATCH (l)-[:PART_OF]->(p:Location)
RETURN l.id AS id, l.code AS code, l.name AS name, coalesce(p.code, '') AS parent_code
LIMIT 1`

	lookupByIDCypher = `
MATCH (l:Location {level: $level, id: $id})
OPTIONAL MATCH (l)-[:PART_OF]->(p:Location)
RETURN l.id AS id, l.code AS code, l.name AS name, coalesce(p.code, '') AS parent_code
LIMIT 1`

	upsertCypher = `
UNWIND $rows AS row
MERGE (l:Location {level: row.level, code: row.code})
SET l.name = row.name, l.id = row.id
WITH l, row
WHERE row.parent_code <> ''
MERGE (p:Location {level: row.parent_level, code: row.parent_code})
MERGE (l)-[:PART_OF]->(p)`
)

type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

type queryFunc func(ctx context.Context, cypher string, params map[string]any, write bool) ([]*neo4j.Record, error)

// Store serves the location hierarchy from a graph of
// (:Location)-[:PART_OF]->(:Location) nodes.
type Store struct {
	driver neo4j.DriverWithContext
	query  queryFunc
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	s := &Store{driver: driver}
	s.query = func(ctx context.Context, cypher string, params map[string]any, write bool) ([]*neo4j.Record, error) {
		opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
		if write {
			opts = []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithWritersRouting()}
		}
		if cfg.Database != "" {
			opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
		}
		res, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			return nil, err
		}
		return res.Records, nil
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *Store) LocationByCode(ctx context.Context, level domain.Level, code string) (*domain.Location, error) {
	records, err := s.query(ctx, lookupByCodeCypher, map[string]any{"level": string(level), "code": code}, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j location by code: %w", err)
	}
	return firstLocation(records, level, fmt.Sprintf("%s=%s", level, code))
}

func (s *Store) LocationByID(ctx context.Context, level domain.Level, id int64) (*domain.Location, error) {
	records, err := s.query(ctx, lookupByIDCypher, map[string]any{"level": string(level), "id": id}, false)
	if err != nil {
		return nil, fmt.Errorf("neo4j location by id: %w", err)
	}
	return firstLocation(records, level, fmt.Sprintf("%s=%d", level, id))
}

// UpsertLocations merges nodes by (level, code) and links each to its parent.
func (s *Store) UpsertLocations(ctx context.Context, locations []domain.Location) (int, error) {
	if len(locations) == 0 {
		return 0, nil
	}
	rows, err := upsertRows(locations)
	if err != nil {
		return 0, err
	}
	if _, err := s.query(ctx, upsertCypher, map[string]any{"rows": rows}, true); err != nil {
		return 0, fmt.Errorf("neo4j upsert locations: %w", err)
	}
	return len(rows), nil
}

func upsertRows(locations []domain.Location) ([]map[string]any, error) {
	rows := make([]map[string]any, 0, len(locations))
	for _, loc := range locations {
		parentLevel := ""
		if loc.ParentCode != "" {
			parent, ok := loc.Level.Parent()
			if !ok {
				return nil, domain.WrapError(domain.ErrInvalidInput, "neo4j upsert locations",
					fmt.Errorf("%s %s cannot have a parent", loc.Level, loc.Code))
			}
			parentLevel = string(parent)
		}
		rows = append(rows, map[string]any{
			"level":        string(loc.Level),
			"code":         loc.Code,
			"name":         loc.Name,
			"id":           loc.ID,
			"parent_code":  loc.ParentCode,
			"parent_level": parentLevel,
		})
	}
	return rows, nil
}

func firstLocation(records []*neo4j.Record, level domain.Level, what string) (*domain.Location, error) {
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrLocationNotFound, "neo4j lookup location", fmt.Errorf("%s", what))
	}
	return recordToLocation(records[0], level)
}

func recordToLocation(record *neo4j.Record, level domain.Level) (*domain.Location, error) {
	loc := domain.Location{Level: level}

	id, isNil, err := neo4j.GetRecordValue[int64](record, "id")
	if err != nil {
		return nil, fmt.Errorf("read location id: %w", err)
	}
	if !isNil {
		loc.ID = id
	}
	if loc.Code, _, err = neo4j.GetRecordValue[string](record, "code"); err != nil {
		return nil, fmt.Errorf("read location code: %w", err)
	}
	if loc.Name, _, err = neo4j.GetRecordValue[string](record, "name"); err != nil {
		return nil, fmt.Errorf("read location name: %w", err)
	}
	if loc.ParentCode, _, err = neo4j.GetRecordValue[string](record, "parent_code"); err != nil {
		return nil, fmt.Errorf("read location parent: %w", err)
	}
	return &loc, nil
}

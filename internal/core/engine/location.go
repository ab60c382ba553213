package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

// Locator resolves location codes to names and fills missing ancestors.
type Locator interface {
	Resolve(ctx context.Context, level domain.Level, code string) domain.ResolvedLocation
	ResolveAncestors(ctx context.Context, level domain.Level, code string, known domain.HierarchicalValue) domain.HierarchicalValue
}

// LookupStrategy is one way of finding a location row for a code.
type LookupStrategy struct {
	Name   string
	Lookup func(ctx context.Context, store ports.LocationStore, level domain.Level, code string) (*domain.Location, error)
}

// ByNaturalCode looks the code up as the level's official code.
var ByNaturalCode = LookupStrategy{
	Name: "natural_code",
	Lookup: func(ctx context.Context, store ports.LocationStore, level domain.Level, code string) (*domain.Location, error) {
		return store.LocationByCode(ctx, level, code)
	},
}

// BySurrogateID treats a numeric code as the row's primary key.
var BySurrogateID = LookupStrategy{
	Name: "surrogate_id",
	Lookup: func(ctx context.Context, store ports.LocationStore, level domain.Level, code string) (*domain.Location, error) {
		id, err := strconv.ParseInt(code, 10, 64)
		if err != nil {
			return nil, nil
		}
		return store.LocationByID(ctx, level, id)
	},
}

// DefaultStrategies returns the lookup order used for every level.
func DefaultStrategies() map[domain.Level][]LookupStrategy {
	out := make(map[domain.Level][]LookupStrategy, len(domain.Levels))
	for _, level := range domain.Levels {
		out[level] = []LookupStrategy{ByNaturalCode, BySurrogateID}
	}
	return out
}

type ResolverOption func(*LocationResolver)

func WithStrategies(level domain.Level, strategies ...LookupStrategy) ResolverOption {
	return func(r *LocationResolver) {
		r.strategies[level] = strategies
	}
}

func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *LocationResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// LocationResolver resolves administrative codes against a LocationStore.
// It never fails: when every strategy misses it returns placeholder text
// naming the level and the code.
type LocationResolver struct {
	store      ports.LocationStore
	strategies map[domain.Level][]LookupStrategy
	logger     *slog.Logger
	cache      *lookupCache
}

func NewLocationResolver(store ports.LocationStore, opts ...ResolverOption) *LocationResolver {
	r := &LocationResolver{
		store:      store,
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithRequestCache returns a resolver sharing r's store and strategies that
// memoizes lookups by (level, code). Use one per binding pass.
func (r *LocationResolver) WithRequestCache() *LocationResolver {
	cp := *r
	cp.cache = &lookupCache{rows: make(map[lookupKey]*domain.Location)}
	return &cp
}

func (r *LocationResolver) Resolve(ctx context.Context, level domain.Level, code string) domain.ResolvedLocation {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ResolvedLocation{}
	}
	if loc := r.lookup(ctx, level, code); loc != nil {
		return domain.ResolvedLocation{Code: code, DisplayName: loc.Name}
	}
	r.logger.Debug("location_fallback", "level", string(level), "code", code)
	return domain.ResolvedLocation{
		Code:        code,
		DisplayName: FallbackLocationName(level, code),
		Fallback:    true,
	}
}

// FallbackLocationName is the text rendered for a code no strategy resolved.
func FallbackLocationName(level domain.Level, code string) string {
	return fmt.Sprintf("%s (Code: %s)", level.Title(), code)
}

// ResolveAncestors walks parent keys upward from (level, code) and fills every
// ancestor level missing from known. Levels already present are kept as given.
func (r *LocationResolver) ResolveAncestors(
	ctx context.Context,
	level domain.Level,
	code string,
	known domain.HierarchicalValue,
) domain.HierarchicalValue {
	out := known
	code = strings.TrimSpace(code)
	if code == "" {
		return out
	}
	if out.Get(level) == nil {
		out.Set(level, &domain.LocationRef{Code: code})
	}

	current, currentCode := level, code
	for {
		parent, ok := current.Parent()
		if !ok || ancestorsKnown(out, current) {
			return out
		}
		loc := r.lookup(ctx, current, currentCode)
		if loc == nil || strings.TrimSpace(loc.ParentCode) == "" {
			return out
		}
		if out.Get(parent) == nil {
			out.Set(parent, &domain.LocationRef{Code: loc.ParentCode})
		}
		current, currentCode = parent, loc.ParentCode
	}
}

func ancestorsKnown(h domain.HierarchicalValue, level domain.Level) bool {
	for parent, ok := level.Parent(); ok; parent, ok = parent.Parent() {
		if h.Code(parent) == "" {
			return false
		}
	}
	return true
}

func (r *LocationResolver) lookup(ctx context.Context, level domain.Level, code string) *domain.Location {
	if r.cache != nil {
		if loc, ok := r.cache.get(level, code); ok {
			return loc
		}
	}
	loc := r.runStrategies(ctx, level, code)
	if r.cache != nil {
		r.cache.put(level, code, loc)
	}
	return loc
}

func (r *LocationResolver) runStrategies(ctx context.Context, level domain.Level, code string) *domain.Location {
	if r.store == nil {
		return nil
	}
	for _, strategy := range r.strategies[level] {
		loc, err := strategy.Lookup(ctx, r.store, level, code)
		if err != nil {
			if !domain.IsKind(err, domain.ErrNotFound) {
				r.logger.Warn("location_lookup_failed",
					"level", string(level),
					"code", code,
					"strategy", strategy.Name,
					"error", err,
				)
			}
			continue
		}
		if loc != nil && strings.TrimSpace(loc.Name) != "" {
			return loc
		}
	}
	return nil
}

type lookupKey struct {
	level domain.Level
	code  string
}

type lookupCache struct {
	mu   sync.Mutex
	rows map[lookupKey]*domain.Location
}

func (c *lookupCache) get(level domain.Level, code string) (*domain.Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.rows[lookupKey{level: level, code: code}]
	return loc, ok
}

func (c *lookupCache) put(level domain.Level, code string, loc *domain.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[lookupKey{level: level, code: code}] = loc
}

package engine

import (
	"context"
	"regexp"
	"strings"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

const systemDateLayout = "2006-01-02"

var cascadingFieldPattern = regexp.MustCompile(`^(.+)_(region|province|city|municipality|barangay)$`)

// MatchInput is everything one field match may look at.
type MatchInput struct {
	Field    domain.TemplateFieldDefinition
	Metadata []domain.MetadataEntry
	Document domain.Document
}

// MatchResult is the value a strategy bound plus where it came from.
type MatchResult struct {
	Value             string
	Source            domain.BindingSource
	MetadataKey       string
	LocationFallbacks int
}

// MatchStrategy inspects one input and reports whether it applies. The first
// strategy that applies decides the field's value, even when that value is empty.
type MatchStrategy interface {
	Source() domain.BindingSource
	Apply(ctx context.Context, in MatchInput) (MatchResult, bool)
}

// FieldMatcher binds a single template field from document data.
type FieldMatcher struct {
	strategies []MatchStrategy
}

func NewFieldMatcher(locator Locator) *FieldMatcher {
	return NewFieldMatcherWithStrategies(DefaultMatchStrategies(locator)...)
}

func NewFieldMatcherWithStrategies(strategies ...MatchStrategy) *FieldMatcher {
	return &FieldMatcher{strategies: strategies}
}

// DefaultMatchStrategies is the production rule order: system shortcuts,
// exact key, cascading location suffix, substring.
func DefaultMatchStrategies(locator Locator) []MatchStrategy {
	return []MatchStrategy{
		systemFieldStrategy{},
		exactKeyStrategy{locator: locator},
		cascadingStrategy{locator: locator},
		substringStrategy{locator: locator},
	}
}

// Match returns the bound value for field, or "" when nothing applies.
func (m *FieldMatcher) Match(
	ctx context.Context,
	field domain.TemplateFieldDefinition,
	metadata []domain.MetadataEntry,
	doc domain.Document,
) string {
	return m.MatchDetailed(ctx, MatchInput{Field: field, Metadata: metadata, Document: doc}).Value
}

func (m *FieldMatcher) MatchDetailed(ctx context.Context, in MatchInput) MatchResult {
	for _, strategy := range m.strategies {
		if result, ok := strategy.Apply(ctx, in); ok {
			result.Source = strategy.Source()
			return result
		}
	}
	return MatchResult{Source: domain.SourceNone}
}

func normalizedName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type systemFieldStrategy struct{}

func (systemFieldStrategy) Source() domain.BindingSource { return domain.SourceSystem }

func (systemFieldStrategy) Apply(_ context.Context, in MatchInput) (MatchResult, bool) {
	name := normalizedName(in.Field.Name)
	doc := in.Document
	switch {
	case name == "":
		return MatchResult{}, false
	case strings.Contains(name, "title"):
		return MatchResult{Value: doc.Title}, true
	case strings.Contains(name, "type"):
		return MatchResult{Value: doc.TypeName}, true
	case strings.Contains(name, "date"):
		if doc.CreatedAt.IsZero() {
			return MatchResult{}, true
		}
		return MatchResult{Value: doc.CreatedAt.Format(systemDateLayout)}, true
	case strings.Contains(name, "author"), strings.Contains(name, "uploaded"):
		return MatchResult{Value: doc.UploaderName}, true
	default:
		return MatchResult{}, false
	}
}

type exactKeyStrategy struct {
	locator Locator
}

func (exactKeyStrategy) Source() domain.BindingSource { return domain.SourceExact }

func (s exactKeyStrategy) Apply(ctx context.Context, in MatchInput) (MatchResult, bool) {
	name := normalizedName(in.Field.Name)
	if name == "" {
		return MatchResult{}, false
	}
	for _, entry := range in.Metadata {
		if normalizedName(entry.Key) != name {
			continue
		}
		if level, ok := fieldLevel(name); ok {
			return resolveEntryLevel(ctx, s.locator, entry, level), true
		}
		return renderEntry(ctx, s.locator, entry), true
	}
	return MatchResult{}, false
}

type cascadingStrategy struct {
	locator Locator
}

func (cascadingStrategy) Source() domain.BindingSource { return domain.SourceCascading }

func (s cascadingStrategy) Apply(ctx context.Context, in MatchInput) (MatchResult, bool) {
	name := normalizedName(in.Field.Name)
	parts := cascadingFieldPattern.FindStringSubmatch(name)
	if parts == nil {
		return MatchResult{}, false
	}
	base, levelName := parts[1], parts[2]
	level, _ := domain.ParseLevel(levelName)

	entry, ok := findCascadingEntry(in.Metadata, base, levelName)
	if !ok {
		return MatchResult{}, false
	}
	return resolveEntryLevel(ctx, s.locator, entry, level), true
}

// findCascadingEntry picks the metadata entry holding the location chain for
// base: a *_citymun key for city fields, then the base key itself, then the
// first key sharing a substring with base.
func findCascadingEntry(metadata []domain.MetadataEntry, base, levelName string) (domain.MetadataEntry, bool) {
	if levelName == "city" {
		for _, entry := range metadata {
			key := normalizedName(entry.Key)
			if key == base+"_citymun" {
				return entry, true
			}
		}
		for _, entry := range metadata {
			key := normalizedName(entry.Key)
			if prefix, ok := strings.CutSuffix(key, "_citymun"); ok && sharesSubstring(prefix, base) {
				return entry, true
			}
		}
	}
	for _, entry := range metadata {
		if normalizedName(entry.Key) == base {
			return entry, true
		}
	}
	for _, entry := range metadata {
		if sharesSubstring(normalizedName(entry.Key), base) {
			return entry, true
		}
	}
	return domain.MetadataEntry{}, false
}

func sharesSubstring(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

type substringStrategy struct {
	locator Locator
}

func (substringStrategy) Source() domain.BindingSource { return domain.SourceSubstring }

func (s substringStrategy) Apply(ctx context.Context, in MatchInput) (MatchResult, bool) {
	name := normalizedName(in.Field.Name)
	if name == "" {
		return MatchResult{}, false
	}
	for _, entry := range in.Metadata {
		if sharesSubstring(normalizedName(entry.Key), name) {
			return renderEntry(ctx, s.locator, entry), true
		}
	}
	return MatchResult{}, false
}

// fieldLevel reports the location level a field or key name ends with.
func fieldLevel(name string) (domain.Level, bool) {
	if strings.HasSuffix(name, "_citymun") {
		return domain.LevelCity, true
	}
	parts := cascadingFieldPattern.FindStringSubmatch(name)
	if parts == nil {
		return "", false
	}
	return domain.ParseLevel(parts[2])
}

// entryHierarchy reads an entry as a location chain. A scalar stored under a
// level-suffixed key (address_province = "0434") is that level's code.
func entryHierarchy(entry domain.MetadataEntry) domain.HierarchicalValue {
	if keyLevel, ok := fieldLevel(normalizedName(entry.Key)); ok && !isStructured(entry.Value) {
		code := strings.TrimSpace(entry.StringValue())
		if code != "" && !looksLikeJSON(code) && !strings.Contains(code, ",") {
			var hv domain.HierarchicalValue
			hv.Set(keyLevel, &domain.LocationRef{Code: code})
			return hv
		}
	}
	return ParseHierarchicalValue(entry.Value)
}

func isStructured(v any) bool {
	switch v.(type) {
	case map[string]any, map[string]string, domain.HierarchicalValue, *domain.HierarchicalValue:
		return true
	}
	return false
}

func resolveEntryLevel(ctx context.Context, locator Locator, entry domain.MetadataEntry, level domain.Level) MatchResult {
	result := MatchResult{MetadataKey: entry.Key}
	hv := entryHierarchy(entry)
	if hv.IsEmpty() || locator == nil {
		return result
	}
	if hv.Get(level) == nil {
		if lowest, ok := hv.Lowest(); ok {
			hv = locator.ResolveAncestors(ctx, lowest, hv.Code(lowest), hv)
		}
	}
	ref := hv.Get(level)
	if ref == nil {
		return result
	}
	name, fallback := displayName(ctx, locator, level, ref)
	result.Value = name
	if fallback {
		result.LocationFallbacks = 1
	}
	return result
}

// renderEntry formats an entry for a field that is not itself a location
// level. Location chains render as comma-joined names from region down.
func renderEntry(ctx context.Context, locator Locator, entry domain.MetadataEntry) MatchResult {
	result := MatchResult{MetadataKey: entry.Key}
	if !entry.IsHierarchical() || locator == nil {
		result.Value = entry.StringValue()
		return result
	}
	hv := entryHierarchy(entry)
	names := make([]string, 0, len(domain.Levels))
	for _, level := range domain.Levels {
		ref := hv.Get(level)
		if ref == nil || ref.Code == "" {
			continue
		}
		name, fallback := displayName(ctx, locator, level, ref)
		if fallback {
			result.LocationFallbacks++
		}
		names = append(names, name)
	}
	result.Value = strings.Join(names, ", ")
	return result
}

// displayName prefers the store's name, then the label captured with the
// value, then the placeholder text.
func displayName(ctx context.Context, locator Locator, level domain.Level, ref *domain.LocationRef) (string, bool) {
	resolved := locator.Resolve(ctx, level, ref.Code)
	if !resolved.Fallback {
		return resolved.DisplayName, false
	}
	if text := strings.TrimSpace(ref.Text); text != "" && text != ref.Code {
		return text, false
	}
	return resolved.DisplayName, true
}

package engine

import (
	"context"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

// TemplateBinder runs the field matcher over every field of a template.
type TemplateBinder struct {
	resolver *LocationResolver
}

func NewTemplateBinder(resolver *LocationResolver) *TemplateBinder {
	return &TemplateBinder{resolver: resolver}
}

// Bind produces the binding of doc onto fields. Each field is matched
// independently; location lookups are memoized for the duration of the call.
func (b *TemplateBinder) Bind(
	ctx context.Context,
	fields []domain.TemplateFieldDefinition,
	doc domain.Document,
	metadata []domain.MetadataEntry,
) domain.Binding {
	var locator Locator
	if b.resolver != nil {
		locator = b.resolver.WithRequestCache()
	}
	matcher := NewFieldMatcher(locator)

	binding := domain.Binding{
		DocumentID: doc.ID,
		Values:     make(map[string]string, len(fields)),
		Fields:     make([]domain.BoundField, 0, len(fields)),
		TotalCount: len(fields),
	}
	for _, field := range fields {
		result := matcher.MatchDetailed(ctx, MatchInput{Field: field, Metadata: metadata, Document: doc})
		binding.Values[field.Name] = result.Value
		binding.Fields = append(binding.Fields, domain.BoundField{
			Name:        field.Name,
			Value:       result.Value,
			Source:      result.Source,
			MetadataKey: result.MetadataKey,
		})
		binding.LocationFallbacks += result.LocationFallbacks
		if result.Value != "" {
			binding.PopulatedCount++
		} else {
			binding.EmptyCount++
		}
	}
	return binding
}

package engine

import (
	"math"
	"reflect"
	"testing"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

func snapshot(id, docType string, completeness float64, usage int, fields ...domain.TemplateFieldDefinition) TemplateSnapshot {
	return TemplateSnapshot{
		Template: domain.Template{
			ID:             id,
			Name:           "Template " + id,
			DocumentTypeID: docType,
			UsageCount:     usage,
			Fields:         fields,
		},
		Completeness: completeness,
	}
}

func fieldsNamed(names ...string) []domain.TemplateFieldDefinition {
	out := make([]domain.TemplateFieldDefinition, 0, len(names))
	for _, name := range names {
		out = append(out, field(name))
	}
	return out
}

func hasCategory(recs []domain.Recommendation, category string, priority domain.Priority) bool {
	for _, rec := range recs {
		if rec.Category == category && rec.Priority == priority {
			return true
		}
	}
	return false
}

func TestCompareTemplatesSimilarityScenario(t *testing.T) {
	a := snapshot("a", "birth", 0.8, 3, fieldsNamed("a", "b", "c")...)
	b := snapshot("b", "birth", 0.8, 3, fieldsNamed("a", "b", "d")...)

	got := CompareTemplates(a, b)

	if math.Abs(got.Similarity.FieldSimilarity-2.0/3.0) > 1e-9 {
		t.Fatalf("field similarity = %v, want 2/3", got.Similarity.FieldSimilarity)
	}
	if got.Similarity.CompletenessSimilarity != 1 {
		t.Fatalf("completeness similarity = %v, want 1", got.Similarity.CompletenessSimilarity)
	}
	if math.Abs(got.Similarity.Overall-0.7666666) > 1e-3 {
		t.Fatalf("overall = %v, want ~0.767", got.Similarity.Overall)
	}
	if !reflect.DeepEqual(got.CommonFields, []string{"a", "b"}) {
		t.Fatalf("unexpected common fields %v", got.CommonFields)
	}
	if !reflect.DeepEqual(got.UniqueToA, []string{"c"}) || !reflect.DeepEqual(got.UniqueToB, []string{"d"}) {
		t.Fatalf("unexpected unique sets %v / %v", got.UniqueToA, got.UniqueToB)
	}
}

func TestCompareTemplatesIsSymmetric(t *testing.T) {
	a := snapshot("a", "birth", 0.9, 0, fieldsNamed("x", "y", "z", "w")...)
	b := snapshot("b", "death", 0.35, 40, fieldsNamed("x", "q")...)

	ab := CompareTemplates(a, b)
	ba := CompareTemplates(b, a)

	if ab.Similarity.Overall != ba.Similarity.Overall {
		t.Fatalf("overall differs: %v vs %v", ab.Similarity.Overall, ba.Similarity.Overall)
	}
	if !reflect.DeepEqual(ab.CommonFields, ba.CommonFields) {
		t.Fatalf("common fields differ: %v vs %v", ab.CommonFields, ba.CommonFields)
	}
	if !reflect.DeepEqual(ab.UniqueToA, ba.UniqueToB) || !reflect.DeepEqual(ab.UniqueToB, ba.UniqueToA) {
		t.Fatalf("unique sets not mirrored")
	}
}

func TestCompareTemplatesBothEmpty(t *testing.T) {
	got := CompareTemplates(snapshot("a", "t", 0, 1), snapshot("b", "t", 0, 1))
	if got.Similarity.FieldSimilarity != 0 {
		t.Fatalf("expected 0 field similarity for empty templates, got %v", got.Similarity.FieldSimilarity)
	}
	if got.Similarity.Overall != 0.3 {
		t.Fatalf("expected overall 0.3, got %v", got.Similarity.Overall)
	}
}

func TestCompareTemplatesRecordsTypeAndRequiredDifferences(t *testing.T) {
	a := snapshot("a", "t", 0.5, 1,
		domain.TemplateFieldDefinition{Name: "dob", Type: "date", Page: 1},
		domain.TemplateFieldDefinition{Name: "name", Type: "text", Required: true, Page: 1},
	)
	b := snapshot("b", "t", 0.5, 1,
		domain.TemplateFieldDefinition{Name: "dob", Type: "text", Page: 1},
		domain.TemplateFieldDefinition{Name: "name", Type: "text", Required: false, Page: 1},
	)

	got := CompareTemplates(a, b)
	if len(got.FieldTypeDifferences) != 2 {
		t.Fatalf("expected 2 differences, got %+v", got.FieldTypeDifferences)
	}
	if got.FieldTypeDifferences[0].Field != "dob" || got.FieldTypeDifferences[0].TypeA != "date" {
		t.Fatalf("unexpected first difference %+v", got.FieldTypeDifferences[0])
	}
	if !hasCategory(got.Recommendations, "field_types", domain.PriorityMedium) {
		t.Fatalf("expected medium field_types recommendation, got %+v", got.Recommendations)
	}
}

func TestCompareTemplatesRecommendations(t *testing.T) {
	a := snapshot("a", "birth", 0.9, 0, fieldsNamed("f1", "f2", "f3", "f4", "f5", "f6", "f7", "shared")...)
	b := snapshot("b", "marriage", 0.4, 0, fieldsNamed("g1", "g2", "g3", "shared")...)

	recs := CompareTemplates(a, b).Recommendations

	if !hasCategory(recs, "document_type", domain.PriorityHigh) {
		t.Fatalf("expected high document_type recommendation")
	}
	if !hasCategory(recs, "missing_fields", domain.PriorityHigh) {
		t.Fatalf("expected high missing_fields for 7 unique fields")
	}
	if !hasCategory(recs, "missing_fields", domain.PriorityMedium) {
		t.Fatalf("expected medium missing_fields for 3 unique fields")
	}
	if !hasCategory(recs, "completeness", domain.PriorityHigh) {
		t.Fatalf("expected completeness gap recommendation")
	}
	if !hasCategory(recs, "usage", domain.PriorityLow) {
		t.Fatalf("expected unused templates recommendation")
	}
	if hasCategory(recs, "consolidation", domain.PriorityLow) {
		t.Fatalf("did not expect consolidation for low overlap")
	}
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Priority.Rank() > recs[i].Priority.Rank() {
			t.Fatalf("recommendations not ordered by priority: %+v", recs)
		}
	}
}

func TestCompareTemplatesConsolidationAndUsageGap(t *testing.T) {
	shared := fieldsNamed("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
	a := snapshot("a", "birth", 0.7, 25, shared...)
	b := snapshot("b", "birth", 0.75, 2, append(fieldsNamed("k"), shared...)...)

	recs := CompareTemplates(a, b).Recommendations

	if !hasCategory(recs, "consolidation", domain.PriorityLow) {
		t.Fatalf("expected consolidation recommendation, got %+v", recs)
	}
	if !hasCategory(recs, "usage", domain.PriorityMedium) {
		t.Fatalf("expected usage gap recommendation, got %+v", recs)
	}
	if !hasCategory(recs, "missing_fields", domain.PriorityLow) {
		t.Fatalf("expected low missing_fields for a single unique field")
	}
	if hasCategory(recs, "completeness", domain.PriorityHigh) {
		t.Fatalf("did not expect completeness recommendation for a 0.05 gap")
	}
}

func TestCompareTemplatesGapAtThresholdIsNotFlagged(t *testing.T) {
	a := snapshot("a", "birth", 0.8, 0, fieldsNamed("a", "b", "c")...)
	b := snapshot("b", "birth", 0.6, 0, fieldsNamed("a", "b", "d")...)

	recs := CompareTemplates(a, b).Recommendations
	if hasCategory(recs, "completeness", domain.PriorityHigh) {
		t.Fatalf("a gap of exactly 0.2 must not trigger a completeness recommendation: %+v", recs)
	}

	b.Completeness = 0.59
	recs = CompareTemplates(a, b).Recommendations
	if !hasCategory(recs, "completeness", domain.PriorityHigh) {
		t.Fatalf("expected completeness recommendation above the threshold, got %+v", recs)
	}
}

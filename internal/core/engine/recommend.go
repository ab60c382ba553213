package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

const (
	completenessGapThreshold = 0.2
	consolidationThreshold   = 0.8
	usageGapThreshold        = 10

	// ratioEpsilon absorbs float error so a gap of exactly a threshold
	// does not count as exceeding it.
	ratioEpsilon = 1e-9
)

func recommend(a, b TemplateSnapshot, cmp domain.ComparisonResult, sizeA, sizeB int) []domain.Recommendation {
	nameA, nameB := templateLabel(a.Template), templateLabel(b.Template)
	recs := make([]domain.Recommendation, 0, 8)

	if a.Template.DocumentTypeID != b.Template.DocumentTypeID {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityHigh,
			Category: "document_type",
			Message: fmt.Sprintf("%s and %s target different document types (%s vs %s); compare templates of the same type before merging them",
				nameA, nameB, documentTypeLabel(a.Template), documentTypeLabel(b.Template)),
		})
	}

	if n := len(cmp.UniqueToA); n > 0 {
		recs = append(recs, domain.Recommendation{
			Priority: uniqueFieldPriority(n),
			Category: "missing_fields",
			Message:  fmt.Sprintf("Consider adding %d field(s) from %s to %s", n, nameA, nameB),
			Fields:   cmp.UniqueToA,
		})
	}
	if n := len(cmp.UniqueToB); n > 0 {
		recs = append(recs, domain.Recommendation{
			Priority: uniqueFieldPriority(n),
			Category: "missing_fields",
			Message:  fmt.Sprintf("Consider adding %d field(s) from %s to %s", n, nameB, nameA),
			Fields:   cmp.UniqueToB,
		})
	}

	if gap := math.Abs(a.Completeness - b.Completeness); exceeds(gap, completenessGapThreshold) {
		stronger, weaker := a, b
		if b.Completeness > a.Completeness {
			stronger, weaker = b, a
		}
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityHigh,
			Category: "completeness",
			Message: fmt.Sprintf("%s is more complete (%.0f%% vs %.0f%%); use it as the reference when improving %s",
				templateLabel(stronger.Template), stronger.Completeness*100, weaker.Completeness*100, templateLabel(weaker.Template)),
		})
	}

	if len(cmp.FieldTypeDifferences) > 0 {
		fields := make([]string, 0, len(cmp.FieldTypeDifferences))
		for _, diff := range cmp.FieldTypeDifferences {
			fields = append(fields, diff.Field)
		}
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityMedium,
			Category: "field_types",
			Message:  fmt.Sprintf("%d shared field(s) differ in type or required flag; align their definitions", len(fields)),
			Fields:   fields,
		})
	}

	if exceeds(overlapRatio(len(cmp.CommonFields), sizeA, sizeB), consolidationThreshold) {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityLow,
			Category: "consolidation",
			Message:  fmt.Sprintf("%s and %s share most of their fields; consider consolidating them", nameA, nameB),
		})
	}

	usageA, usageB := a.Template.UsageCount, b.Template.UsageCount
	switch {
	case usageA == 0 && usageB == 0:
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityLow,
			Category: "usage",
			Message:  "Neither template has been used yet; validate both against real documents",
		})
	case absInt(usageA-usageB) > usageGapThreshold:
		popular, other := a.Template, b.Template
		if usageB > usageA {
			popular, other = b.Template, a.Template
		}
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityMedium,
			Category: "usage",
			Message: fmt.Sprintf("%s is used far more often than %s (%d vs %d); review why %s is avoided",
				templateLabel(popular), templateLabel(other), popular.UsageCount, other.UsageCount, templateLabel(other)),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
	return recs
}

func uniqueFieldPriority(n int) domain.Priority {
	switch {
	case n > 5:
		return domain.PriorityHigh
	case n > 2:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func templateLabel(t domain.Template) string {
	if t.Name != "" {
		return fmt.Sprintf("%q", t.Name)
	}
	return fmt.Sprintf("template %s", t.ID)
}

func documentTypeLabel(t domain.Template) string {
	if t.DocumentTypeName != "" {
		return t.DocumentTypeName
	}
	if t.DocumentTypeID != "" {
		return t.DocumentTypeID
	}
	return "none"
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func exceeds(value, threshold float64) bool {
	return value-threshold > ratioEpsilon
}

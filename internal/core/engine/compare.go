package engine

import (
	"math"
	"sort"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

const (
	fieldSimilarityWeight        = 0.7
	completenessSimilarityWeight = 0.3
)

// TemplateSnapshot is a template together with the completeness it is
// compared on.
type TemplateSnapshot struct {
	Template     domain.Template
	Completeness float64
}

// CompareTemplates reports how two templates differ in fields and quality.
// Swapping a and b swaps the unique sets and leaves the scores unchanged.
func CompareTemplates(a, b TemplateSnapshot) domain.ComparisonResult {
	fieldsA := indexFields(a.Template.Fields)
	fieldsB := indexFields(b.Template.Fields)

	result := domain.ComparisonResult{
		TemplateA:            a.Template.ID,
		TemplateB:            b.Template.ID,
		CommonFields:         []string{},
		UniqueToA:            []string{},
		UniqueToB:            []string{},
		FieldTypeDifferences: []domain.FieldTypeDifference{},
	}

	for name, defA := range fieldsA {
		defB, ok := fieldsB[name]
		if !ok {
			result.UniqueToA = append(result.UniqueToA, name)
			continue
		}
		result.CommonFields = append(result.CommonFields, name)
		if defA.Type != defB.Type || defA.Required != defB.Required {
			result.FieldTypeDifferences = append(result.FieldTypeDifferences, domain.FieldTypeDifference{
				Field:     name,
				TypeA:     defA.Type,
				TypeB:     defB.Type,
				RequiredA: defA.Required,
				RequiredB: defB.Required,
			})
		}
	}
	for name := range fieldsB {
		if _, ok := fieldsA[name]; !ok {
			result.UniqueToB = append(result.UniqueToB, name)
		}
	}

	sort.Strings(result.CommonFields)
	sort.Strings(result.UniqueToA)
	sort.Strings(result.UniqueToB)
	sort.Slice(result.FieldTypeDifferences, func(i, j int) bool {
		return result.FieldTypeDifferences[i].Field < result.FieldTypeDifferences[j].Field
	})

	result.Similarity = similarity(len(result.CommonFields), len(fieldsA), len(fieldsB), a.Completeness, b.Completeness)
	result.Recommendations = recommend(a, b, result, len(fieldsA), len(fieldsB))
	return result
}

// indexFields keys definitions by name; the first definition of a
// duplicated name wins.
func indexFields(defs []domain.TemplateFieldDefinition) map[string]domain.TemplateFieldDefinition {
	out := make(map[string]domain.TemplateFieldDefinition, len(defs))
	for _, def := range defs {
		if _, seen := out[def.Name]; seen {
			continue
		}
		out[def.Name] = def
	}
	return out
}

func overlapRatio(common, sizeA, sizeB int) float64 {
	largest := max(sizeA, sizeB)
	if largest == 0 {
		return 0
	}
	return float64(common) / float64(largest)
}

func similarity(common, sizeA, sizeB int, completenessA, completenessB float64) domain.Similarity {
	field := overlapRatio(common, sizeA, sizeB)
	completeness := 1 - math.Abs(completenessA-completenessB)
	return domain.Similarity{
		FieldSimilarity:        field,
		CompletenessSimilarity: completeness,
		Overall:                fieldSimilarityWeight*field + completenessSimilarityWeight*completeness,
	}
}

package engine

import (
	"sort"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

const requiredWeight = 2

// NameSet builds the set of bound field names a score is computed over.
func NameSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// ScoreCompleteness weighs required fields twice as heavily as optional ones.
// A document type without requirements counts as fully satisfied as soon as
// anything is bound.
func ScoreCompleteness(bound map[string]struct{}, requirements []domain.FieldRequirement) domain.CompletenessScore {
	score := domain.CompletenessScore{
		MissingRequired: []string{},
		MissingOptional: []string{},
	}

	ordered := make([]domain.FieldRequirement, len(requirements))
	copy(ordered, requirements)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DisplayOrder < ordered[j].DisplayOrder
	})

	for _, req := range ordered {
		_, present := bound[req.FieldName]
		if req.IsRequired {
			score.RequiredTotal++
			if present {
				score.RequiredMapped++
			} else {
				score.MissingRequired = append(score.MissingRequired, req.FieldName)
			}
			continue
		}
		score.OptionalTotal++
		if present {
			score.OptionalMapped++
		} else {
			score.MissingOptional = append(score.MissingOptional, req.FieldName)
		}
	}

	denominator := score.RequiredTotal*requiredWeight + score.OptionalTotal
	if denominator == 0 {
		if len(bound) > 0 {
			score.Percentage = 1
		}
		return score
	}
	numerator := score.RequiredMapped*requiredWeight + score.OptionalMapped
	score.Percentage = float64(numerator) / float64(denominator)
	return score
}

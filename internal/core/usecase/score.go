package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/engine"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

type ScoreTemplateUseCase struct {
	templates    ports.TemplateStore
	requirements ports.RequirementStore
}

func NewScoreTemplateUseCase(templates ports.TemplateStore, requirements ports.RequirementStore) *ScoreTemplateUseCase {
	return &ScoreTemplateUseCase{
		templates:    templates,
		requirements: requirements,
	}
}

// ScoreTemplate measures how well the template's fields cover the
// requirements of documentTypeID.
func (uc *ScoreTemplateUseCase) ScoreTemplate(ctx context.Context, templateID, documentTypeID string) (*domain.CompletenessScore, error) {
	if strings.TrimSpace(documentTypeID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "score template", errors.New("document type id is required"))
	}
	tpl, err := uc.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if _, err := uc.requirements.GetDocumentType(ctx, documentTypeID); err != nil {
		return nil, fmt.Errorf("load document type: %w", err)
	}
	return uc.scoreAgainst(ctx, tpl, documentTypeID)
}

// scoreAgainst assumes the document type, if any, exists. A template without
// a document type is scored with no requirements.
func (uc *ScoreTemplateUseCase) scoreAgainst(ctx context.Context, tpl *domain.Template, documentTypeID string) (*domain.CompletenessScore, error) {
	var reqs []domain.FieldRequirement
	if documentTypeID != "" {
		var err error
		reqs, err = uc.requirements.ListRequirements(ctx, documentTypeID)
		if err != nil {
			return nil, fmt.Errorf("load field requirements: %w", err)
		}
	}
	score := engine.ScoreCompleteness(engine.NameSet(tpl.FieldNames()...), reqs)
	return &score, nil
}

package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/engine"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

type CompareTemplatesUseCase struct {
	templates ports.TemplateStore
	scorer    *ScoreTemplateUseCase
}

func NewCompareTemplatesUseCase(templates ports.TemplateStore, scorer *ScoreTemplateUseCase) *CompareTemplatesUseCase {
	return &CompareTemplatesUseCase{
		templates: templates,
		scorer:    scorer,
	}
}

// CompareTemplates loads both templates and compares them on their cached
// completeness, scoring on the fly when no cached value exists.
func (uc *CompareTemplatesUseCase) CompareTemplates(ctx context.Context, templateIDA, templateIDB string) (*domain.ComparisonResult, error) {
	a, err := uc.snapshot(ctx, templateIDA)
	if err != nil {
		return nil, err
	}
	b, err := uc.snapshot(ctx, templateIDB)
	if err != nil {
		return nil, err
	}
	result := engine.CompareTemplates(a, b)
	return &result, nil
}

func (uc *CompareTemplatesUseCase) snapshot(ctx context.Context, templateID string) (engine.TemplateSnapshot, error) {
	tpl, err := uc.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return engine.TemplateSnapshot{}, fmt.Errorf("load template %s: %w", templateID, err)
	}
	if tpl.Completeness != nil {
		return engine.TemplateSnapshot{Template: *tpl, Completeness: *tpl.Completeness}, nil
	}
	score, err := uc.scorer.scoreAgainst(ctx, tpl, tpl.DocumentTypeID)
	if err != nil {
		return engine.TemplateSnapshot{}, fmt.Errorf("score template %s: %w", templateID, err)
	}
	return engine.TemplateSnapshot{Template: *tpl, Completeness: score.Percentage}, nil
}

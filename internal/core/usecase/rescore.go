package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

type RescoreTemplateUseCase struct {
	templates ports.TemplateStore
	scorer    *ScoreTemplateUseCase
	cache     ports.ScoreCache
	queue     ports.RescoreQueue
}

func NewRescoreTemplateUseCase(
	templates ports.TemplateStore,
	scorer *ScoreTemplateUseCase,
	cache ports.ScoreCache,
	queue ports.RescoreQueue,
) *RescoreTemplateUseCase {
	return &RescoreTemplateUseCase{
		templates: templates,
		scorer:    scorer,
		cache:     cache,
		queue:     queue,
	}
}

// RequestRescore checks that the template exists and queues a rescore job.
func (uc *RescoreTemplateUseCase) RequestRescore(ctx context.Context, templateID string) error {
	if _, err := uc.templates.GetTemplate(ctx, templateID); err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	if err := uc.queue.PublishRescore(ctx, templateID); err != nil {
		return fmt.Errorf("publish rescore request: %w", err)
	}
	return nil
}

// RescoreTemplate scores the template against its own document type and
// stores the percentage on the template record.
func (uc *RescoreTemplateUseCase) RescoreTemplate(ctx context.Context, templateID string) (*domain.CompletenessScore, error) {
	tpl, err := uc.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	score, err := uc.scorer.scoreAgainst(ctx, tpl, tpl.DocumentTypeID)
	if err != nil {
		return nil, err
	}
	if err := uc.cache.SaveCompleteness(ctx, tpl.ID, score.Percentage); err != nil {
		return nil, fmt.Errorf("save completeness: %w", err)
	}
	return score, nil
}

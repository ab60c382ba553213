package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type templateRescorer interface {
	RescoreTemplate(ctx context.Context, templateID string) (*domain.CompletenessScore, error)
}

type rescoreMetrics interface {
	StartRescore()
	FinishRescore(service string, duration time.Duration, err error)
	ObserveQueueLag(service string, lag time.Duration)
	ObserveRescoreCompleteness(service string, percentage float64)
}

type rescoreHandler struct {
	rescorer templateRescorer
	metrics  rescoreMetrics
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

func (h *rescoreHandler) Handle(ctx context.Context, req domain.RescoreRequest) error {
	start := h.now()
	if !req.RequestedAt.IsZero() {
		h.metrics.ObserveQueueLag(serviceName, start.Sub(req.RequestedAt))
	}

	h.metrics.StartRescore()
	runCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	score, err := h.rescorer.RescoreTemplate(runCtx, req.TemplateID)
	h.metrics.FinishRescore(serviceName, h.now().Sub(start), err)
	if err != nil {
		return err
	}

	h.metrics.ObserveRescoreCompleteness(serviceName, score.Percentage)
	h.logger.Info("template_rescored",
		"template_id", req.TemplateID,
		"percentage", score.Percentage,
		"missing_required", len(score.MissingRequired),
	)
	return nil
}

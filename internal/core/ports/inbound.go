package ports

import (
	"context"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

// TemplateBinder is the inbound contract for binding document data to a template.
type TemplateBinder interface {
	BindTemplate(ctx context.Context, templateID, documentID string) (*domain.Binding, error)
}

// TemplateScorer computes template completeness against a document type.
type TemplateScorer interface {
	ScoreTemplate(ctx context.Context, templateID, documentTypeID string) (*domain.CompletenessScore, error)
}

// TemplateRescorer refreshes the cached completeness of a template.
type TemplateRescorer interface {
	RescoreTemplate(ctx context.Context, templateID string) (*domain.CompletenessScore, error)
}

// TemplateComparer compares two templates.
type TemplateComparer interface {
	CompareTemplates(ctx context.Context, templateIDA, templateIDB string) (*domain.ComparisonResult, error)
}

// TemplateLinter checks a template's field layout.
type TemplateLinter interface {
	LintTemplate(ctx context.Context, templateID string) (*domain.TemplateLintReport, error)
}

// RescoreRequester queues an asynchronous rescore of a template.
type RescoreRequester interface {
	RequestRescore(ctx context.Context, templateID string) error
}

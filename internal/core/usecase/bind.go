package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/engine"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

type BindTemplateUseCase struct {
	templates ports.TemplateStore
	documents ports.DocumentStore
	binder    *engine.TemplateBinder
}

func NewBindTemplateUseCase(
	templates ports.TemplateStore,
	documents ports.DocumentStore,
	binder *engine.TemplateBinder,
) *BindTemplateUseCase {
	return &BindTemplateUseCase{
		templates: templates,
		documents: documents,
		binder:    binder,
	}
}

// BindTemplate fills every field of the template from the document. Missing
// templates or documents are reported before any matching runs.
func (uc *BindTemplateUseCase) BindTemplate(ctx context.Context, templateID, documentID string) (*domain.Binding, error) {
	tpl, err := uc.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	doc, err := uc.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	metadata, err := uc.documents.ListMetadata(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document metadata: %w", err)
	}

	binding := uc.binder.Bind(ctx, tpl.Fields, *doc, metadata)
	binding.TemplateID = tpl.ID
	return &binding, nil
}

package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

func newScoreFixture() (*templateStoreFake, *requirementStoreFake) {
	templates := newTemplateStoreFake(
		domain.Template{
			ID:             "tpl-1",
			DocumentTypeID: "birth",
			Fields:         []domain.TemplateFieldDefinition{field("child_name"), field("remarks")},
		},
		domain.Template{ID: "tpl-untyped", Fields: []domain.TemplateFieldDefinition{field("anything")}},
	)
	reqs := &requirementStoreFake{
		types: map[string]domain.DocumentType{
			"birth": {ID: "birth", Name: "Birth"},
			"death": {ID: "death", Name: "Death"},
		},
		reqs: map[string][]domain.FieldRequirement{
			"birth": {
				{FieldName: "child_name", IsRequired: true, DisplayOrder: 1},
				{FieldName: "mother_name", IsRequired: true, DisplayOrder: 2},
				{FieldName: "remarks", DisplayOrder: 3},
			},
		},
	}
	return templates, reqs
}

func TestScoreTemplateWeightsRequiredFields(t *testing.T) {
	templates, reqs := newScoreFixture()
	uc := NewScoreTemplateUseCase(templates, reqs)

	score, err := uc.ScoreTemplate(context.Background(), "tpl-1", "birth")
	if err != nil {
		t.Fatalf("ScoreTemplate() error = %v", err)
	}
	// (1*2 + 1) / (2*2 + 1)
	if math.Abs(score.Percentage-0.6) > 1e-9 {
		t.Fatalf("percentage = %v, want 0.6", score.Percentage)
	}
	if len(score.MissingRequired) != 1 || score.MissingRequired[0] != "mother_name" {
		t.Fatalf("unexpected missing required %v", score.MissingRequired)
	}
}

func TestScoreTemplateNoRequirementsIsSatisfied(t *testing.T) {
	templates, reqs := newScoreFixture()
	uc := NewScoreTemplateUseCase(templates, reqs)

	score, err := uc.ScoreTemplate(context.Background(), "tpl-1", "death")
	if err != nil {
		t.Fatalf("ScoreTemplate() error = %v", err)
	}
	if score.Percentage != 1 {
		t.Fatalf("percentage = %v, want 1", score.Percentage)
	}
}

func TestScoreTemplateNotFoundBeforeComputation(t *testing.T) {
	templates, reqs := newScoreFixture()
	uc := NewScoreTemplateUseCase(templates, reqs)

	tests := []struct {
		name     string
		template string
		docType  string
		kind     error
	}{
		{name: "missing template", template: "nope", docType: "birth", kind: domain.ErrTemplateNotFound},
		{name: "missing document type", template: "tpl-1", docType: "marriage", kind: domain.ErrDocumentTypeNotFound},
		{name: "blank document type", template: "tpl-1", docType: " ", kind: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs.reqCalls = 0
			_, err := uc.ScoreTemplate(context.Background(), tt.template, tt.docType)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			if reqs.reqCalls != 0 {
				t.Fatalf("requirements must not be listed on failure")
			}
		})
	}
}

func TestRescoreTemplateSavesOwnDocumentTypeScore(t *testing.T) {
	templates, reqs := newScoreFixture()
	cache := &scoreCacheFake{}
	uc := NewRescoreTemplateUseCase(templates, NewScoreTemplateUseCase(templates, reqs), cache, &rescoreQueueFake{})

	score, err := uc.RescoreTemplate(context.Background(), "tpl-1")
	if err != nil {
		t.Fatalf("RescoreTemplate() error = %v", err)
	}
	if got := cache.saved["tpl-1"]; got != score.Percentage {
		t.Fatalf("saved %v, returned %v", got, score.Percentage)
	}
}

func TestRescoreTemplateWithoutDocumentType(t *testing.T) {
	templates, reqs := newScoreFixture()
	cache := &scoreCacheFake{}
	uc := NewRescoreTemplateUseCase(templates, NewScoreTemplateUseCase(templates, reqs), cache, &rescoreQueueFake{})

	score, err := uc.RescoreTemplate(context.Background(), "tpl-untyped")
	if err != nil {
		t.Fatalf("RescoreTemplate() error = %v", err)
	}
	if score.Percentage != 1 || cache.saved["tpl-untyped"] != 1 {
		t.Fatalf("expected untyped template with fields to score 1, got %v", score.Percentage)
	}
	if reqs.reqCalls != 0 {
		t.Fatalf("requirements must not be listed without a document type")
	}
}

func TestRequestRescorePublishesOnlyKnownTemplates(t *testing.T) {
	templates, reqs := newScoreFixture()
	queue := &rescoreQueueFake{}
	uc := NewRescoreTemplateUseCase(templates, NewScoreTemplateUseCase(templates, reqs), &scoreCacheFake{}, queue)

	if err := uc.RequestRescore(context.Background(), "tpl-1"); err != nil {
		t.Fatalf("RequestRescore() error = %v", err)
	}
	err := uc.RequestRescore(context.Background(), "nope")
	if !domain.IsKind(err, domain.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if len(queue.published) != 1 || queue.published[0] != "tpl-1" {
		t.Fatalf("unexpected published ids %v", queue.published)
	}
}

func TestRequestRescorePropagatesQueueError(t *testing.T) {
	templates, reqs := newScoreFixture()
	queueErr := domain.WrapError(domain.ErrTemporary, "publish", errors.New("nats down"))
	uc := NewRescoreTemplateUseCase(templates, NewScoreTemplateUseCase(templates, reqs), &scoreCacheFake{}, &rescoreQueueFake{err: queueErr})

	err := uc.RequestRescore(context.Background(), "tpl-1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

package httpadapter

import (
	"context"
	"net/http"

	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type binderFake struct {
	err        error
	templateID string
	documentID string
}

func (f *binderFake) BindTemplate(_ context.Context, templateID, documentID string) (*domain.Binding, error) {
	f.templateID = templateID
	f.documentID = documentID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Binding{
		TemplateID:     templateID,
		DocumentID:     documentID,
		Values:         map[string]string{"first_name": "Juan"},
		Fields:         []domain.BoundField{{Name: "first_name", Value: "Juan", Source: domain.SourceExact}},
		PopulatedCount: 1,
		TotalCount:     1,
	}, nil
}

type scorerFake struct {
	err            error
	documentTypeID string
}

func (f *scorerFake) ScoreTemplate(_ context.Context, _ string, documentTypeID string) (*domain.CompletenessScore, error) {
	f.documentTypeID = documentTypeID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CompletenessScore{RequiredMapped: 1, RequiredTotal: 2, Percentage: 0.5}, nil
}

type comparerFake struct {
	err  error
	a, b string
}

func (f *comparerFake) CompareTemplates(_ context.Context, a, b string) (*domain.ComparisonResult, error) {
	f.a, f.b = a, b
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ComparisonResult{TemplateA: a, TemplateB: b, Similarity: domain.Similarity{Overall: 0.8}}, nil
}

type rescorerFake struct {
	err        error
	templateID string
}

func (f *rescorerFake) RequestRescore(_ context.Context, templateID string) error {
	f.templateID = templateID
	return f.err
}

type linterFake struct {
	err error
}

func (f *linterFake) LintTemplate(_ context.Context, templateID string) (*domain.TemplateLintReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TemplateLintReport{TemplateID: templateID, Issues: []domain.TemplateLintIssue{}}, nil
}

type observerFake struct {
	bindings    int
	scores      []float64
	comparisons int
	rescores    int
}

func (o *observerFake) RecordBinding(string, string, domain.Binding) { o.bindings++ }
func (o *observerFake) RecordCompleteness(_, _ string, percentage float64) {
	o.scores = append(o.scores, percentage)
}
func (o *observerFake) RecordComparison(string, domain.ComparisonResult) { o.comparisons++ }
func (o *observerFake) RecordRescoreRequest(string) { o.rescores++ }

type routerDeps struct {
	binder   *binderFake
	scorer   *scorerFake
	comparer *comparerFake
	rescorer *rescorerFake
	linter   *linterFake
	observer *observerFake
}

func newRouterDeps() *routerDeps {
	return &routerDeps{
		binder:   &binderFake{},
		scorer:   &scorerFake{},
		comparer: &comparerFake{},
		rescorer: &rescorerFake{},
		linter:   &linterFake{},
		observer: &observerFake{},
	}
}

func (d *routerDeps) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, d.binder, d.scorer, d.comparer, d.rescorer, d.linter, WithObserver(d.observer)).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newRouterDeps().handler(cfg)
}

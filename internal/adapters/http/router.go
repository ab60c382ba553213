package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/civil-registry-forms/internal/config"
	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

const (
	serviceName         = "api"
	maxCompareBodyBytes = 16 << 10
)

// Observer receives domain outcomes of served requests.
type Observer interface {
	RecordBinding(service, endpoint string, binding domain.Binding)
	RecordCompleteness(service, endpoint string, percentage float64)
	RecordComparison(service string, result domain.ComparisonResult)
	RecordRescoreRequest(service string)
}

type noopObserver struct{}

func (noopObserver) RecordBinding(string, string, domain.Binding) {}
func (noopObserver) RecordCompleteness(string, string, float64) {}
func (noopObserver) RecordComparison(string, domain.ComparisonResult) {}
func (noopObserver) RecordRescoreRequest(string) {}

type RouterOption func(*Router)

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

func WithObserver(observer Observer) RouterOption {
	return func(rt *Router) {
		if observer != nil {
			rt.observer = observer
		}
	}
}

type Router struct {
	cfg      config.Config
	binder   ports.TemplateBinder
	scorer   ports.TemplateScorer
	comparer ports.TemplateComparer
	rescorer ports.RescoreRequester
	linter   ports.TemplateLinter
	logger   *slog.Logger
	observer Observer
	validate *validator.Validate
}

func NewRouter(
	cfg config.Config,
	binder ports.TemplateBinder,
	scorer ports.TemplateScorer,
	comparer ports.TemplateComparer,
	rescorer ports.RescoreRequester,
	linter ports.TemplateLinter,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:      cfg,
		binder:   binder,
		scorer:   scorer,
		comparer: comparer,
		rescorer: rescorer,
		linter:   linter,
		logger:   slog.Default(),
		observer: noopObserver{},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openapi)
	mux.HandleFunc("POST /v1/templates/compare", rt.compareTemplates)
	mux.HandleFunc("GET /v1/templates/{templateID}/bindings/{documentID}", rt.bindTemplate)
	mux.HandleFunc("GET /v1/templates/{templateID}/completeness", rt.scoreTemplate)
	mux.HandleFunc("POST /v1/templates/{templateID}/rescore", rt.rescoreTemplate)
	mux.HandleFunc("GET /v1/templates/{templateID}/lint", rt.lintTemplate)

	var handler http.Handler = mux
	if rt.cfg.OpenAPIValidation {
		router, err := loadOpenAPIRouter(context.Background())
		if err != nil {
			rt.logger.Error("openapi_router_load_failed", "error", err)
		} else {
			handler = openAPIValidationMiddleware(router, handler)
		}
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = timeoutMiddleware(handler, rt.cfg.APIRequestTimeout)
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openapi(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(OpenAPISpec())
}

func (rt *Router) bindTemplate(w http.ResponseWriter, r *http.Request) {
	var templateID, documentID string
	if err := bindPathParam(r, "templateID", &templateID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := bindPathParam(r, "documentID", &documentID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	binding, err := rt.binder.BindTemplate(r.Context(), templateID, documentID)
	if err != nil {
		rt.writeDomainError(w, r, "bind_template", err)
		return
	}
	rt.observer.RecordBinding(serviceName, "bind", *binding)
	writeJSON(w, http.StatusOK, binding)
}

func (rt *Router) scoreTemplate(w http.ResponseWriter, r *http.Request) {
	var templateID, documentTypeID string
	if err := bindPathParam(r, "templateID", &templateID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "document_type_id", r.URL.Query(), &documentTypeID); err != nil {
		writeError(w, http.StatusBadRequest, "query parameter document_type_id is required")
		return
	}

	score, err := rt.scorer.ScoreTemplate(r.Context(), templateID, documentTypeID)
	if err != nil {
		rt.writeDomainError(w, r, "score_template", err)
		return
	}
	rt.observer.RecordCompleteness(serviceName, "score", score.Percentage)
	writeJSON(w, http.StatusOK, score)
}

type compareRequest struct {
	TemplateA string `json:"template_a" validate:"required,max=128"`
	TemplateB string `json:"template_b" validate:"required,max=128"`
}

func (rt *Router) compareTemplates(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxCompareBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.TemplateA = strings.TrimSpace(req.TemplateA)
	req.TemplateB = strings.TrimSpace(req.TemplateB)
	if err := rt.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, compareValidationMessage(err))
		return
	}

	result, err := rt.comparer.CompareTemplates(r.Context(), req.TemplateA, req.TemplateB)
	if err != nil {
		rt.writeDomainError(w, r, "compare_templates", err)
		return
	}
	rt.observer.RecordComparison(serviceName, *result)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) rescoreTemplate(w http.ResponseWriter, r *http.Request) {
	var templateID string
	if err := bindPathParam(r, "templateID", &templateID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := rt.rescorer.RequestRescore(r.Context(), templateID); err != nil {
		rt.writeDomainError(w, r, "request_rescore", err)
		return
	}
	rt.observer.RecordRescoreRequest(serviceName)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "template_id": templateID})
}

func (rt *Router) lintTemplate(w http.ResponseWriter, r *http.Request) {
	var templateID string
	if err := bindPathParam(r, "templateID", &templateID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := rt.linter.LintTemplate(r.Context(), templateID)
	if err != nil {
		rt.writeDomainError(w, r, "lint_template", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", operation,
			"status", status,
			"error", err,
		)
	}
	writeError(w, status, errorMessage(status, err))
}

func bindPathParam(r *http.Request, name string, dest *string) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(*dest) == "" {
		return errors.New("path parameter " + name + " is required")
	}
	return nil
}

func compareValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := "template_a"
	if fe.StructField() == "TemplateB" {
		field = "template_b"
	}
	if fe.Tag() == "required" {
		return field + " is required"
	}
	return field + " is too long"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

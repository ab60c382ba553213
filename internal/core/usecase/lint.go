package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/core/ports"
)

type LintTemplateUseCase struct {
	templates ports.TemplateStore
	storage   ports.ObjectStorage
	pages     ports.PageCounter
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewLintTemplateUseCase(
	templates ports.TemplateStore,
	storage ports.ObjectStorage,
	pages ports.PageCounter,
	logger *slog.Logger,
) *LintTemplateUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &LintTemplateUseCase{
		templates: templates,
		storage:   storage,
		pages:     pages,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// LintTemplate reports layout problems in a template's field definitions.
// The page check runs only when the template file can be read.
func (uc *LintTemplateUseCase) LintTemplate(ctx context.Context, templateID string) (*domain.TemplateLintReport, error) {
	tpl, err := uc.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	report := &domain.TemplateLintReport{
		TemplateID: tpl.ID,
		Issues:     LintFields(uc.validate, tpl.Fields),
	}

	pageCount, err := uc.countPages(ctx, tpl.FilePath)
	if err != nil {
		uc.logger.Warn("template_page_count_failed",
			"template_id", tpl.ID,
			"file_path", tpl.FilePath,
			"error", err.Error(),
		)
		report.Issues = append(report.Issues, domain.TemplateLintIssue{Problem: "template file unreadable"})
		return report, nil
	}
	report.PageCount = pageCount
	if pageCount > 0 {
		for _, f := range tpl.Fields {
			if f.Page > pageCount {
				report.Issues = append(report.Issues, domain.TemplateLintIssue{
					Field:   f.Name,
					Problem: fmt.Sprintf("page %d beyond document page count %d", f.Page, pageCount),
				})
			}
		}
	}
	return report, nil
}

// LintFields validates field definitions and flags duplicate names.
func LintFields(validate *validator.Validate, fields []domain.TemplateFieldDefinition) []domain.TemplateLintIssue {
	issues := make([]domain.TemplateLintIssue, 0)
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		if err := validate.Struct(f); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					issues = append(issues, domain.TemplateLintIssue{
						Field:   fieldLabel(f, i),
						Problem: describeViolation(fe),
					})
				}
			} else {
				issues = append(issues, domain.TemplateLintIssue{Field: fieldLabel(f, i), Problem: err.Error()})
			}
		}
		if f.Name == "" {
			continue
		}
		key := strings.ToLower(f.Name)
		seen[key]++
		if seen[key] == 2 {
			issues = append(issues, domain.TemplateLintIssue{Field: f.Name, Problem: "duplicate field name"})
		}
	}
	return issues
}

func fieldLabel(f domain.TemplateFieldDefinition, index int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("#%d", index+1)
}

func describeViolation(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

func (uc *LintTemplateUseCase) countPages(ctx context.Context, key string) (int, error) {
	if key == "" || uc.storage == nil || uc.pages == nil {
		return 0, nil
	}
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("open template file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, fmt.Errorf("read template file: %w", err)
	}
	n, err := uc.pages.CountPages(ctx, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("count template pages: %w", err)
	}
	return n, nil
}

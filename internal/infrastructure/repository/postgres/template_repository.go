package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type TemplateRepository struct {
	db *sql.DB
}

func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetTemplate loads a template with its field definitions in position order.
func (r *TemplateRepository) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT tp.id, tp.name, COALESCE(tp.document_type_id, ''), COALESCE(dt.name, ''), tp.file_path,
	tp.completeness_score, tp.usage_count, tp.created_at, tp.updated_at
FROM templates tp
LEFT JOIN document_types dt ON dt.id = tp.document_type_id
WHERE tp.id = $1
`, id)

	var (
		tpl          domain.Template
		completeness sql.NullFloat64
	)
	err := row.Scan(
		&tpl.ID, &tpl.Name, &tpl.DocumentTypeID, &tpl.DocumentTypeName, &tpl.FilePath,
		&completeness, &tpl.UsageCount, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan template: %w", err)
	}
	if completeness.Valid {
		value := completeness.Float64
		tpl.Completeness = &value
	}

	fields, err := r.listFields(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl.Fields = fields
	return &tpl, nil
}

func (r *TemplateRepository) listFields(ctx context.Context, templateID string) ([]domain.TemplateFieldDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name, x, y, width, height, page, field_type, is_required
FROM template_fields
WHERE template_id = $1
ORDER BY position ASC
`, templateID)
	if err != nil {
		return nil, fmt.Errorf("query template fields: %w", err)
	}
	defer rows.Close()

	fields := make([]domain.TemplateFieldDefinition, 0, 32)
	for rows.Next() {
		var f domain.TemplateFieldDefinition
		if err := rows.Scan(&f.Name, &f.X, &f.Y, &f.Width, &f.Height, &f.Page, &f.Type, &f.Required); err != nil {
			return nil, fmt.Errorf("scan template field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template fields: %w", err)
	}
	return fields, nil
}

func (r *TemplateRepository) SaveCompleteness(ctx context.Context, templateID string, percentage float64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE templates
SET completeness_score = $2, updated_at = $3
WHERE id = $1
`, templateID, percentage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save template completeness: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save template completeness rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrTemplateNotFound, "save template completeness", fmt.Errorf("id=%s", templateID))
	}
	return nil
}

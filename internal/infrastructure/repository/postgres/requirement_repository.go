package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type RequirementRepository struct {
	db *sql.DB
}

func NewRequirementRepository(db *sql.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

func (r *RequirementRepository) GetDocumentType(ctx context.Context, id string) (*domain.DocumentType, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name FROM document_types WHERE id = $1`, id)

	var dt domain.DocumentType
	if err := row.Scan(&dt.ID, &dt.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentTypeNotFound, "get document type", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document type: %w", err)
	}
	return &dt, nil
}

// ListRequirements may return an empty slice; a type without requirements is valid.
func (r *RequirementRepository) ListRequirements(ctx context.Context, documentTypeID string) ([]domain.FieldRequirement, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT field_name, is_required, display_order
FROM document_type_fields
WHERE document_type_id = $1
ORDER BY display_order ASC, field_name ASC
`, documentTypeID)
	if err != nil {
		return nil, fmt.Errorf("query field requirements: %w", err)
	}
	defer rows.Close()

	reqs := make([]domain.FieldRequirement, 0, 16)
	for rows.Next() {
		var req domain.FieldRequirement
		if err := rows.Scan(&req.FieldName, &req.IsRequired, &req.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scan field requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field requirements: %w", err)
	}
	return reqs, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT d.id, d.title, COALESCE(d.document_type_id, ''), COALESCE(t.name, ''), COALESCE(u.full_name, ''), d.created_at
FROM documents d
LEFT JOIN document_types t ON t.id = d.document_type_id
LEFT JOIN users u ON u.id = d.uploaded_by
WHERE d.id = $1
`, id)

	var doc domain.Document
	err := row.Scan(&doc.ID, &doc.Title, &doc.DocumentTypeID, &doc.TypeName, &doc.UploaderName, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

// ListMetadata returns the document's entries in capture order.
func (r *DocumentRepository) ListMetadata(ctx context.Context, documentID string) ([]domain.MetadataEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT meta_key, meta_value, label, field_type
FROM document_metadata
WHERE document_id = $1
ORDER BY position ASC, meta_key ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query document metadata: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.MetadataEntry, 0, 16)
	for rows.Next() {
		var (
			entry     domain.MetadataEntry
			raw       []byte
			fieldType string
		)
		if err := rows.Scan(&entry.Key, &raw, &entry.Label, &fieldType); err != nil {
			return nil, fmt.Errorf("scan document metadata: %w", err)
		}
		entry.Value = domain.DecodeMetadataValue(raw)
		entry.Type = domain.MetadataType(fieldType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document metadata: %w", err)
	}
	return entries, nil
}

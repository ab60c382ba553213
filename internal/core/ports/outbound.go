package ports

import (
	"context"
	"io"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

// LocationStore is the read-only administrative location reference. Lookups
// that find nothing return an error wrapping domain.ErrLocationNotFound.
type LocationStore interface {
	LocationByCode(ctx context.Context, level domain.Level, code string) (*domain.Location, error)
	LocationByID(ctx context.Context, level domain.Level, id int64) (*domain.Location, error)
}

// DocumentStore reads documents and their metadata.
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListMetadata(ctx context.Context, documentID string) ([]domain.MetadataEntry, error)
}

// RequirementStore reads document types and their ordered field requirements.
type RequirementStore interface {
	GetDocumentType(ctx context.Context, id string) (*domain.DocumentType, error)
	ListRequirements(ctx context.Context, documentTypeID string) ([]domain.FieldRequirement, error)
}

// TemplateStore reads templates with their ordered field definitions.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
}

// ScoreCache persists the latest completeness percentage on the template record.
type ScoreCache interface {
	SaveCompleteness(ctx context.Context, templateID string, percentage float64) error
}

// ObjectStorage opens stored template files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// PageCounter reports how many pages a PDF has.
type PageCounter interface {
	CountPages(ctx context.Context, r io.ReaderAt, size int64) (int, error)
}

// RescoreQueue publishes/consumes template rescore requests.
type RescoreQueue interface {
	PublishRescore(ctx context.Context, templateID string) error
	SubscribeRescore(ctx context.Context, handler func(context.Context, domain.RescoreRequest) error) error
}

// LocationWriter loads reference rows, used by import tooling.
type LocationWriter interface {
	UpsertLocations(ctx context.Context, locations []domain.Location) (int, error)
}

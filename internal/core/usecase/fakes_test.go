package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

type templateStoreFake struct {
	templates map[string]domain.Template
	calls     int
}

func newTemplateStoreFake(templates ...domain.Template) *templateStoreFake {
	f := &templateStoreFake{templates: make(map[string]domain.Template, len(templates))}
	for _, tpl := range templates {
		f.templates[tpl.ID] = tpl
	}
	return f
}

func (f *templateStoreFake) GetTemplate(_ context.Context, id string) (*domain.Template, error) {
	f.calls++
	tpl, ok := f.templates[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrTemplateNotFound, "get template", fmt.Errorf("id=%s", id))
	}
	return &tpl, nil
}

type documentStoreFake struct {
	docs          map[string]domain.Document
	metadata      map[string][]domain.MetadataEntry
	metadataErr   error
	metadataCalls int
}

func (f *documentStoreFake) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	return &doc, nil
}

func (f *documentStoreFake) ListMetadata(_ context.Context, id string) ([]domain.MetadataEntry, error) {
	f.metadataCalls++
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	return f.metadata[id], nil
}

type requirementStoreFake struct {
	types    map[string]domain.DocumentType
	reqs     map[string][]domain.FieldRequirement
	reqCalls int
}

func (f *requirementStoreFake) GetDocumentType(_ context.Context, id string) (*domain.DocumentType, error) {
	dt, ok := f.types[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentTypeNotFound, "get document type", fmt.Errorf("id=%s", id))
	}
	return &dt, nil
}

func (f *requirementStoreFake) ListRequirements(_ context.Context, id string) ([]domain.FieldRequirement, error) {
	f.reqCalls++
	return f.reqs[id], nil
}

type scoreCacheFake struct {
	saved map[string]float64
	err   error
}

func (f *scoreCacheFake) SaveCompleteness(_ context.Context, id string, pct float64) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]float64)
	}
	f.saved[id] = pct
	return nil
}

type rescoreQueueFake struct {
	published []string
	err       error
}

func (f *rescoreQueueFake) PublishRescore(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func (f *rescoreQueueFake) SubscribeRescore(context.Context, func(context.Context, domain.RescoreRequest) error) error {
	return nil
}

type storageFake struct {
	files map[string][]byte
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.files[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open file", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type pageCounterFake struct {
	pages    int
	err      error
	lastSize int64
}

func (f *pageCounterFake) CountPages(_ context.Context, _ io.ReaderAt, size int64) (int, error) {
	f.lastSize = size
	return f.pages, f.err
}

type locationStoreFake struct {
	byCode map[domain.Level]map[string]domain.Location
}

func (f *locationStoreFake) LocationByCode(_ context.Context, level domain.Level, code string) (*domain.Location, error) {
	loc, ok := f.byCode[level][code]
	if !ok {
		return nil, domain.WrapError(domain.ErrLocationNotFound, "location by code", errors.New(code))
	}
	return &loc, nil
}

func (f *locationStoreFake) LocationByID(context.Context, domain.Level, int64) (*domain.Location, error) {
	return nil, domain.WrapError(domain.ErrLocationNotFound, "location by id", errors.New("unsupported"))
}

func field(name string) domain.TemplateFieldDefinition {
	return domain.TemplateFieldDefinition{Name: name, Page: 1, Type: "text"}
}

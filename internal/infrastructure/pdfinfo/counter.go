package pdfinfo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

// Counter reads page counts from PDF template files.
type Counter struct{}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) CountPages(ctx context.Context, r io.ReaderAt, size int64) (n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r == nil || size <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "count pdf pages", errors.New("empty pdf"))
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			n = 0
			err = domain.WrapError(domain.ErrInvalidInput, "count pdf pages", fmt.Errorf("malformed pdf: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "count pdf pages", err)
	}
	return reader.NumPage(), nil
}

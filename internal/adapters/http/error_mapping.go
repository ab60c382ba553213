package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internal error detail behind 5xx responses.
func errorMessage(status int, err error) string {
	switch {
	case status == http.StatusNotFound:
		return notFoundMessage(err)
	case status >= 500:
		return http.StatusText(status)
	default:
		return err.Error()
	}
}

func notFoundMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrTemplateNotFound):
		return "template not found"
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return "document not found"
	case domain.IsKind(err, domain.ErrDocumentTypeNotFound):
		return "document type not found"
	default:
		return "not found"
	}
}

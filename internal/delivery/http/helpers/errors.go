package helpers

import (
	"errors"
	"net/http"

	"eventmanager/internal/domain"
	"eventmanager/internal/validation"
)

// StatusFor returns the HTTP status and error code for an error kind.
func StatusFor(kind domain.ErrorKind) (int, string) {
	switch kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity, ErrCodeValidation
	case domain.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case domain.KindConflict:
		return http.StatusConflict, ErrCodeConflict
	case domain.KindForbidden:
		return http.StatusForbidden, ErrCodeForbidden
	case domain.KindUnauthorized:
		return http.StatusUnauthorized, ErrCodeUnauthorized
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// FieldErrors renders every violation of err as localized messages keyed by field.
// It returns nil when err carries no *domain.ValidationError.
func FieldErrors(catalog *validation.Catalog, locale string, err error) map[string][]string {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.HasViolations() {
		return nil
	}
	out := make(map[string][]string, len(verr.Violations))
	for _, v := range verr.Violations {
		out[v.Field] = append(out[v.Field], catalog.Violation(locale, v.Field, v.Rule))
	}
	return out
}

package middleware

import (
	"net/http"

	h "eventmanager/internal/delivery/http/helpers"
	"eventmanager/internal/validation"
)

// Locale negotiates the response language from Accept-Language, stores it in the
// request context and echoes it in Content-Language.
func Locale(catalog *validation.Catalog, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := catalog.Locale(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", locale)
		next.ServeHTTP(w, r.WithContext(h.WithLocale(r.Context(), locale)))
	})
}

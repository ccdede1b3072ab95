package helpers

import "context"

type localeKey struct{}

// WithLocale returns a context carrying the negotiated response locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// LocaleFromContext returns the negotiated locale, or "" when none was set.
func LocaleFromContext(ctx context.Context) string {
	locale, _ := ctx.Value(localeKey{}).(string)
	return locale
}

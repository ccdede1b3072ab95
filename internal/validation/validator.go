// Package validation checks event request bodies and localizes the resulting messages.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"eventmanager/internal/clock"
	"eventmanager/internal/domain"
)

// ErrMalformedBody marks a request body that is not valid JSON.
var ErrMalformedBody = errors.New("malformed request body")

// tagRules maps validator tags to the rule codes reported to clients.
var tagRules = map[string]string{
	"required":   domain.RuleRequired,
	"filled":     domain.RuleRequired,
	"max":        domain.RuleMax,
	"min":        domain.RuleMin,
	"event_type": domain.RuleIn,
	"audience":   domain.RuleIn,
	"date":       domain.RuleDate,
	"after":      domain.RuleAfter,
	"before":     domain.RuleBefore,
}

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// Validator runs the static request rules. Rules needing storage (existence of
// locations and speakers) are checked by the event service.
type Validator struct {
	validate *validator.Validate
	clock    clock.Clock
}

// New returns a Validator whose "future" checks are relative to clk.
func New(clk clock.Clock) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("filled", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return domain.EventType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		return domain.Audience(fl.Field().String()).IsValid()
	})

	val := &Validator{validate: v, clock: clk}
	v.RegisterStructValidation(val.createRules, CreateEventRequest{})
	v.RegisterStructValidation(val.updateRules, UpdateEventRequest{})
	return val
}

// Struct validates s and returns a *domain.ValidationError listing every failed rule.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := domain.NewValidationError()
	for _, fe := range fieldErrs {
		out.Add(fieldPath(fe.Field()), ruleFor(fe.Tag()))
	}
	return out.OrNil()
}

// DecodeAndValidate decodes a JSON body into dest and validates it. An empty body is
// validated as an empty object. A value of the wrong JSON type is reported as a field
// violation alongside the rule failures; syntactically broken JSON yields ErrMalformedBody.
func (v *Validator) DecodeAndValidate(body io.Reader, dest any) error {
	out := domain.NewValidationError()
	typed := map[string]bool{}

	err := json.NewDecoder(body).Decode(dest)
	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil, errors.Is(err, io.EOF):
	case errors.As(err, &typeErr) && typeErr.Field != "":
		field := fieldPath(typeErr.Field)
		out.Add(field, typeRule(typeErr.Type))
		typed[field] = true
	default:
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}

	if err := v.Struct(dest); err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		for _, fv := range verr.Violations {
			if !typed[fv.Field] {
				out.Add(fv.Field, fv.Rule)
			}
		}
	}
	return out.OrNil()
}

func (v *Validator) createRules(sl validator.StructLevel) {
	req := sl.Current().Interface().(CreateEventRequest)
	startsAt := checkDate(sl, req.StartsAt, "starts_at", "StartsAt", true)
	endsAt := checkDate(sl, req.EndsAt, "ends_at", "EndsAt", true)
	deadline := checkDate(sl, req.RegistrationDeadline, "registration_deadline", "RegistrationDeadline", false)
	v.checkWindow(sl, startsAt, endsAt, deadline)
}

func (v *Validator) updateRules(sl validator.StructLevel) {
	req := sl.Current().Interface().(UpdateEventRequest)
	startsAt := checkDate(sl, req.StartsAt, "starts_at", "StartsAt", false)
	endsAt := checkDate(sl, req.EndsAt, "ends_at", "EndsAt", false)
	deadline := checkDate(sl, req.RegistrationDeadline, "registration_deadline", "RegistrationDeadline", false)
	v.checkWindow(sl, startsAt, endsAt, deadline)
}

// checkWindow applies the ordering rules between whichever dates are present.
func (v *Validator) checkWindow(sl validator.StructLevel, startsAt, endsAt, deadline *time.Time) {
	if startsAt != nil && !startsAt.After(v.clock.Now()) {
		sl.ReportError(*startsAt, "starts_at", "StartsAt", "after", "now")
	}
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		sl.ReportError(*endsAt, "ends_at", "EndsAt", "after", "starts_at")
	}
	if startsAt != nil && deadline != nil && !deadline.Before(*startsAt) {
		sl.ReportError(*deadline, "registration_deadline", "RegistrationDeadline", "before", "starts_at")
	}
}

// checkDate reports a missing required date or an unparsable one and returns the
// parsed time when usable.
func checkDate(sl validator.StructLevel, d *DateTime, field, structField string, required bool) *time.Time {
	if d == nil {
		if required {
			sl.ReportError(nil, field, structField, "required", "")
		}
		return nil
	}
	if !d.Valid {
		sl.ReportError(*d, field, structField, "date", "")
		return nil
	}
	t := d.Time
	return &t
}

// fieldPath turns "audience_types[2]" or "audience_types.2" into "audience_types.*".
func fieldPath(field string) string {
	field = indexPattern.ReplaceAllString(field, ".*")
	parts := strings.Split(field, ".")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789") == "" {
			parts[i] = "*"
		}
	}
	return strings.Join(parts, ".")
}

func ruleFor(tag string) string {
	if rule, ok := tagRules[tag]; ok {
		return rule
	}
	return tag
}

func typeRule(t reflect.Type) string {
	if t == nil {
		return domain.RuleString
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return domain.RuleArray
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return domain.RuleInteger
	case reflect.Bool:
		return domain.RuleBoolean
	default:
		return domain.RuleString
	}
}

package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"
)

// Response message keys.
const (
	MsgEventsListFailed  = "events.list_failed"
	MsgEventCreated      = "events.created"
	MsgEventCreateFailed = "events.create_failed"
	MsgEventFetchFailed  = "events.fetch_failed"
	MsgEventUpdated      = "events.updated"
	MsgEventUpdateFailed = "events.update_failed"
	MsgEventDeleted      = "events.deleted"
	MsgEventDeleteFailed = "events.delete_failed"
	MsgEventNotFound     = "events.not_found"
	MsgEventConflict     = "events.conflict"
	MsgValidationFailed  = "errors.validation"
	MsgBadRequest        = "errors.bad_request"
	MsgUnauthorized      = "errors.unauthorized"
	MsgForbidden         = "errors.forbidden"
	MsgTooManyRequests   = "errors.too_many_requests"
	MsgInternal          = "errors.internal"
	MsgConflictsChecked  = "events.conflicts_checked"
)

const ruleFallbackKeyPrefix = "rule."

var catalog = map[string]map[string]string{
	"en": {
		MsgEventsListFailed:  "Failed to fetch events",
		MsgEventCreated:      "Event created successfully",
		MsgEventCreateFailed: "Failed to create event",
		MsgEventFetchFailed:  "Failed to fetch event details",
		MsgEventUpdated:      "Event updated successfully",
		MsgEventUpdateFailed: "Failed to update event",
		MsgEventDeleted:      "Event deleted successfully",
		MsgEventDeleteFailed: "Failed to delete event",
		MsgEventNotFound:     "Event not found",
		MsgEventConflict:     "The location is already booked for this time",
		MsgConflictsChecked:  "Conflict check completed",
		MsgValidationFailed:  "The given data was invalid",
		MsgBadRequest:        "Malformed request body",
		MsgUnauthorized:      "Authentication required",
		MsgForbidden:         "You are not allowed to perform this action",
		MsgTooManyRequests:   "Too many requests",
		MsgInternal:          "Something went wrong, please try again later",

		"title.required":               "The event title is required",
		"title.max":                    "The event title may not exceed 255 characters",
		"type.required":                "The event type is required",
		"type.in":                      "The event type is invalid",
		"location_id.required":         "The location is required",
		"location_id.exists":           "The selected location does not exist",
		"starts_at.required":           "The start date is required",
		"starts_at.date":               "The start date is invalid",
		"starts_at.after":              "The start date must be in the future",
		"ends_at.required":             "The end date is required",
		"ends_at.date":                 "The end date is invalid",
		"ends_at.after":                "The end date must be after the start date",
		"capacity.integer":             "The capacity must be an integer",
		"capacity.min":                 "The capacity must be at least 1",
		"capacity.max":                 "The capacity may not exceed 10000",
		"audience_types.array":         "The audience types must be a list",
		"audience_types.*.in":          "The audience type is invalid",
		"speaker_ids.array":            "The speakers must be a list",
		"speaker_ids.*.exists":         "One of the selected speakers does not exist",
		"registration_deadline.date":   "The registration deadline is invalid",
		"registration_deadline.before": "The registration deadline must be before the event starts",
		"requirements.max":             "The requirements may not exceed 1000 characters",
		"agenda.max":                   "The agenda may not exceed 5000 characters",
		"description.max":              "The description may not exceed 5000 characters",

		"rule.required": "The {0} field is required",
		"rule.max":      "The {0} field is too long",
		"rule.min":      "The {0} field is too small",
		"rule.in":       "The selected {0} is invalid",
		"rule.exists":   "The selected {0} does not exist",
		"rule.after":    "The {0} field is too early",
		"rule.before":   "The {0} field is too late",
		"rule.date":     "The {0} field is not a valid date",
		"rule.integer":  "The {0} field must be an integer",
		"rule.array":    "The {0} field must be a list",
		"rule.boolean":  "The {0} field must be true or false",
		"rule.string":   "The {0} field must be a string",
		"rule.invalid":  "The {0} field is invalid",
	},
	"ar": {
		MsgEventsListFailed:  "فشل في جلب الفعاليات",
		MsgEventCreated:      "تم إنشاء الفعالية بنجاح",
		MsgEventCreateFailed: "فشل في إنشاء الفعالية",
		MsgEventFetchFailed:  "فشل في جلب تفاصيل الفعالية",
		MsgEventUpdated:      "تم تحديث الفعالية بنجاح",
		MsgEventUpdateFailed: "فشل في تحديث الفعالية",
		MsgEventDeleted:      "تم حذف الفعالية بنجاح",
		MsgEventDeleteFailed: "فشل في حذف الفعالية",
		MsgEventNotFound:     "الفعالية غير موجودة",
		MsgEventConflict:     "الموقع محجوز في هذا الوقت",
		MsgConflictsChecked:  "تم التحقق من التعارضات",
		MsgValidationFailed:  "البيانات المدخلة غير صحيحة",
		MsgBadRequest:        "صيغة الطلب غير صحيحة",
		MsgUnauthorized:      "يجب تسجيل الدخول",
		MsgForbidden:         "غير مسموح لك بتنفيذ هذا الإجراء",
		MsgTooManyRequests:   "طلبات كثيرة جدا",
		MsgInternal:          "حدث خطأ ما، يرجى المحاولة لاحقا",

		"title.required":               "عنوان الفعالية مطلوب",
		"title.max":                    "عنوان الفعالية يجب ألا يتجاوز 255 حرف",
		"type.required":                "نوع الفعالية مطلوب",
		"type.in":                      "نوع الفعالية غير صحيح",
		"location_id.required":         "الموقع مطلوب",
		"location_id.exists":           "الموقع المحدد غير موجود",
		"starts_at.required":           "تاريخ البداية مطلوب",
		"starts_at.date":               "تاريخ البداية غير صحيح",
		"starts_at.after":              "تاريخ البداية يجب أن يكون في المستقبل",
		"ends_at.required":             "تاريخ النهاية مطلوب",
		"ends_at.date":                 "تاريخ النهاية غير صحيح",
		"ends_at.after":                "تاريخ النهاية يجب أن يكون بعد تاريخ البداية",
		"capacity.integer":             "السعة يجب أن تكون رقم صحيح",
		"capacity.min":                 "السعة يجب أن تكون على الأقل 1",
		"capacity.max":                 "السعة يجب ألا تتجاوز 10000",
		"audience_types.array":         "أنواع الجمهور يجب أن تكون مصفوفة",
		"audience_types.*.in":          "نوع الجمهور غير صحيح",
		"speaker_ids.array":            "المتحدثون يجب أن يكونوا مصفوفة",
		"speaker_ids.*.exists":         "أحد المتحدثين المحددين غير موجود",
		"registration_deadline.date":   "موعد انتهاء التسجيل غير صحيح",
		"registration_deadline.before": "موعد انتهاء التسجيل يجب أن يكون قبل بداية الفعالية",
		"requirements.max":             "المتطلبات يجب ألا تتجاوز 1000 حرف",
		"agenda.max":                   "جدول الأعمال يجب ألا يتجاوز 5000 حرف",
		"description.max":              "الوصف يجب ألا يتجاوز 5000 حرف",

		"rule.required": "الحقل {0} مطلوب",
		"rule.max":      "قيمة الحقل {0} أكبر من المسموح",
		"rule.min":      "قيمة الحقل {0} أصغر من المسموح",
		"rule.in":       "قيمة الحقل {0} غير صحيحة",
		"rule.exists":   "قيمة الحقل {0} غير موجودة",
		"rule.after":    "قيمة الحقل {0} مبكرة جدا",
		"rule.before":   "قيمة الحقل {0} متأخرة جدا",
		"rule.date":     "الحقل {0} ليس تاريخا صحيحا",
		"rule.integer":  "الحقل {0} يجب أن يكون رقما صحيحا",
		"rule.array":    "الحقل {0} يجب أن يكون مصفوفة",
		"rule.boolean":  "الحقل {0} يجب أن يكون صح أو خطأ",
		"rule.string":   "الحقل {0} يجب أن يكون نصا",
		"rule.invalid":  "الحقل {0} غير صحيح",
	},
}

// Catalog resolves message keys to localized text.
type Catalog struct {
	uni           *ut.UniversalTranslator
	defaultLocale string
}

// NewCatalog loads the built-in en and ar messages. defaultLocale is used when a
// request names no supported locale; unknown values fall back to en.
func NewCatalog(defaultLocale string) (*Catalog, error) {
	translators := map[string]locales.Translator{"en": en.New(), "ar": ar.New()}
	uni := ut.New(translators["en"], translators["en"], translators["ar"])
	for locale, messages := range catalog {
		trans, ok := uni.GetTranslator(locale)
		if !ok {
			return nil, fmt.Errorf("locale %q not registered", locale)
		}
		for key, text := range messages {
			if err := trans.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("add %s message %q: %w", locale, key, err)
			}
		}
	}
	if _, ok := translators[defaultLocale]; !ok {
		defaultLocale = "en"
	}
	return &Catalog{uni: uni, defaultLocale: defaultLocale}, nil
}

// Locale picks the best supported locale for an Accept-Language header value.
func (c *Catalog) Locale(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err == nil {
		for _, tag := range tags {
			base, _ := tag.Base()
			if trans, ok := c.uni.GetTranslator(base.String()); ok {
				return trans.Locale()
			}
		}
	}
	return c.defaultLocale
}

func (c *Catalog) translator(locale string) ut.Translator {
	if trans, ok := c.uni.GetTranslator(locale); ok {
		return trans
	}
	trans, _ := c.uni.GetTranslator(c.defaultLocale)
	return trans
}

// Message returns the text for key in locale, or key itself when it has no entry.
func (c *Catalog) Message(locale, key string) string {
	text, err := c.translator(locale).T(key)
	if err != nil {
		return key
	}
	return text
}

// Violation returns the text for a failed field rule: the "<field>.<rule>" entry when
// present, else the generic rule text naming the field.
func (c *Catalog) Violation(locale, field, rule string) string {
	trans := c.translator(locale)
	if text, err := trans.T(field + "." + rule); err == nil {
		return text
	}
	name := strings.ReplaceAll(strings.TrimSuffix(field, ".*"), "_", " ")
	if text, err := trans.T(ruleFallbackKeyPrefix+rule, name); err == nil {
		return text
	}
	text, _ := trans.T(ruleFallbackKeyPrefix+"invalid", name)
	return text
}

package helpers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"eventmanager/internal/domain"
	"eventmanager/internal/validation"
)

// ParseEventFilter reads the listing filters from the query string. Unparseable
// dates, unknown types, non-UUID exclude ids and non-positive limits are ignored. A
// location_id that is not a UUID matches no event.
func ParseEventFilter(r *http.Request) domain.EventFilter {
	q := r.URL.Query()
	f := domain.EventFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Upcoming:  validation.Truthy(q.Get("upcoming")),
		Today:     validation.Truthy(q.Get("today")),
		OwnEvents: validation.Truthy(q.Get("user_events")),
	}
	if s := strings.TrimSpace(q.Get("location_id")); s != "" {
		f.LocationID = uuid.Nil.String()
		if id, err := uuid.Parse(s); err == nil {
			f.LocationID = id.String()
		}
	}
	if id, err := uuid.Parse(strings.TrimSpace(q.Get("exclude"))); err == nil {
		f.ExcludeID = id.String()
	}
	if t := domain.EventType(strings.TrimSpace(q.Get("type"))); t.IsValid() {
		f.Type = t
	}
	if d, ok := validation.ParseCalendarDate(q.Get("date_from")); ok {
		f.DateFrom = &d
	}
	if d, ok := validation.ParseCalendarDate(q.Get("date_to")); ok {
		f.DateTo = &d
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	return f
}

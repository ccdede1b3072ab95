package validation

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexBool is a boolean that also accepts the common truthy spellings sent by forms:
// "1", "true", "on", "yes" (any case) and the number 1. Everything else is false.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = FlexBool(v)
	case float64:
		*b = v == 1
	case string:
		*b = FlexBool(Truthy(v))
	default:
		*b = false
	}
	return nil
}

// Truthy reports whether s is one of "1", "true", "on" or "yes", ignoring case and spaces.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// dateLayouts are the accepted date-time spellings, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DateTime is a JSON date-time that records unparsable input instead of failing the
// whole decode, so the "date" rule can report it against its field.
type DateTime struct {
	Time  time.Time
	Valid bool
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = DateTime{}
		return nil
	}
	t, ok := ParseDate(s)
	*d = DateTime{Time: t, Valid: ok}
	return nil
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time)
}

// ParseDate parses s with the accepted layouts. Values without a zone are read as UTC.
func ParseDate(s string) (time.Time, bool) {
	t, ok := parseDate(s)
	if !ok {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseCalendarDate returns the calendar day written in s, as midnight UTC. The day is
// taken in the value's own zone, so "2030-06-01T23:30:00-05:00" is June 1.
func ParseCalendarDate(s string) (time.Time, bool) {
	t, ok := parseDate(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), true
	}
	return time.Time{}, false
}

package fieldtype

import (
	"strings"
	"time"
)

const (
	// DateLayout is the canonical stored date form.
	DateLayout = "2006-01-02"
	// TimeLayout is the canonical stored time form.
	TimeLayout = "15:04"
)

// dateLayouts are the human input forms accepted for dates, tried in order.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
}

// timeLayouts are the human input forms accepted for times of day.
var timeLayouts = []string{
	TimeLayout,
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"03:04 PM",
	"3 PM",
	"3PM",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
}

// ParseDate returns s in YYYY-MM-DD form, or "" when no layout matches.
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout)
		}
	}
	return ""
}

// ParseTime returns s in HH:MM form, or "" when no layout matches.
func ParseTime(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout)
		}
	}
	return ""
}

package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DayLayout is the canonical form of a calendar day.
const DayLayout = "2006-01-02"

var slotRe = regexp.MustCompile(`^\s*(\d{1,2})\s*:\s*(\d{2})\s*(?i:(am|pm))?\s*$`)

// Day normalises a calendar day. It accepts "2006-01-02" and full RFC 3339
// timestamps, from which only the date part is kept.
func Day(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t.Format(DayLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(DayLayout), nil
	}
	// A date with a trailing time but no zone, as browsers send it.
	if len(s) > len(DayLayout) && s[len(DayLayout)] == 'T' {
		if t, err := time.Parse(DayLayout, s[:len(DayLayout)]); err == nil {
			return t.Format(DayLayout), nil
		}
	}
	return "", fmt.Errorf("unable to parse date: %q", raw)
}

// Slot normalises a time slot to "HH:00". Slots have one-hour granularity, so
// any minute other than 00 is rejected. A 12-hour suffix is accepted.
func Slot(raw string) (string, error) {
	m := slotRe.FindStringSubmatch(raw)
	if m == nil {
		return "", fmt.Errorf("unable to parse time slot: %q", raw)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	if suffix := strings.ToLower(m[3]); suffix != "" {
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("hour out of range in time slot: %q", raw)
		}
		hour %= 12
		if suffix == "pm" {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return "", fmt.Errorf("time slot out of range: %q", raw)
	}
	if minute != 0 {
		return "", fmt.Errorf("time slot must start on the hour: %q", raw)
	}
	return fmt.Sprintf("%02d:00", hour), nil
}

// Today returns the calendar day of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DayLayout)
}

// ID parses a canonical uuid.
func ID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id format: %q", raw)
	}
	return id, nil
}

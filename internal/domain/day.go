package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the portal's date format.
const DayLayout = "02/01/2006"

// Day is a calendar date without time of day.
type Day struct {
	time.Time
}

// NewDay truncates t to its calendar date in UTC.
func NewDay(t time.Time) Day {
	y, m, d := t.Date()
	return Day{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a DD/MM/YYYY string.
func ParseDay(value string) (Day, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(DayLayout, value)
	if err != nil {
		return Day{}, &ParseError{Field: "date", Value: value, Err: err}
	}
	return NewDay(t), nil
}

// AddDays shifts the date by n calendar days.
func (d Day) AddDays(n int) Day {
	return Day{d.Time.AddDate(0, 0, n)}
}

// String formats the day as DD/MM/YYYY; the zero day renders empty.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DayLayout)
}

// MarshalJSON encodes the day in portal format.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts DD/MM/YYYY strings; empty strings and null leave the zero day.
func (d *Day) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode day: %w", err)
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(*raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

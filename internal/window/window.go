// Package window derives the set of portal dates that may carry activity for a notification.
package window

import (
	"sort"
	"strings"

	"CaseScanner/internal/domain"
)

// DefaultTolerance covers the notification day and the two days before it.
const DefaultTolerance = 3

// DateSet is a set of days keyed by their DD/MM/YYYY form.
type DateSet map[string]domain.Day

// Contains reports whether the raw date cell belongs to the set. Only the first
// whitespace-separated token is considered so "09/01/2024 14:32" still matches.
func (s DateSet) Contains(raw string) bool {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return false
	}
	_, ok := s[fields[0]]
	return ok
}

// ContainsDay reports whether d belongs to the set.
func (s DateSet) ContainsDay(d domain.Day) bool {
	_, ok := s[d.String()]
	return ok
}

// Len returns the number of distinct days.
func (s DateSet) Len() int {
	return len(s)
}

// Sorted returns the days in ascending order.
func (s DateSet) Sorted() []domain.Day {
	days := make([]domain.Day, 0, len(s))
	for _, d := range s {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j].Time) })
	return days
}

// Strings returns the ascending days formatted for logs.
func (s DateSet) Strings() []string {
	days := s.Sorted()
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}

// Calculator expands notification dates into a backward tolerance window.
type Calculator struct {
	Tolerance int
}

// New returns a calculator; non-positive tolerances fall back to DefaultTolerance.
func New(tolerance int) Calculator {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return Calculator{Tolerance: tolerance}
}

// TargetDates parses the comma-joined DD/MM/YYYY list and returns the union of
// {D, D-1, ..., D-(tolerance-1)} over every date D.
func (c Calculator) TargetDates(joined string) (DateSet, error) {
	tolerance := c.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	set := DateSet{}
	for _, raw := range strings.Split(joined, ",") {
		day, err := domain.ParseDay(raw)
		if err != nil {
			return nil, err
		}
		for i := 0; i < tolerance; i++ {
			d := day.AddDays(-i)
			set[d.String()] = d
		}
	}
	return set, nil
}

// Package event flags calendar days that tend to move sales, such as national holidays.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// Event represents a named span of time
type Event struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within [Start, End)
func (e Event) Contains(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// Holiday returns a one day event for every observed occurrence of the holiday between start
// and end inclusive, in the location of start.
func Holiday(hol *cal.Holiday, start, end time.Time) []Event {
	startLoc := start.Location()

	events := []Event{}
	for i := start.Year(); i <= end.Year(); i++ {
		_, observed := hol.Calc(i)
		day := time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, startLoc)

		if !day.Before(start) && !day.After(end) {
			events = append(events, Event{
				Name:  strings.ReplaceAll(fmt.Sprintf("%s_%d", hol.Name, i), " ", "_"),
				Start: day,
				End:   day.Add(24 * time.Hour),
			})
		}
	}
	return events
}

// Calendar answers whether a date is an observed holiday
type Calendar struct {
	holidays []*cal.Holiday
}

// NewCalendar creates a calendar from a set of holidays
func NewCalendar(holidays ...*cal.Holiday) *Calendar {
	return &Calendar{holidays: holidays}
}

// NewUSCalendar returns a calendar of the US federal holidays
func NewUSCalendar() *Calendar {
	return NewCalendar(
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
}

// IsHoliday reports whether the calendar day of t is an observed holiday
func (c *Calendar) IsHoliday(t time.Time) bool {
	if c == nil {
		return false
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for _, hol := range c.holidays {
		for _, e := range Holiday(hol, day, day) {
			if e.Contains(day) {
				return true
			}
		}
	}
	return false
}

package event

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/stretchr/testify/assert"
)

func TestHoliday(t *testing.T) {
	testData := map[string]struct {
		hol      *cal.Holiday
		start    time.Time
		end      time.Time
		expected []Event
	}{
		"simple": {
			hol:   us.ChristmasDay,
			start: time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2026, 12, 8, 0, 0, 0, 0, time.UTC),
			expected: []Event{
				{
					"Christmas_Day_2024",
					time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
					time.Date(2024, 12, 26, 0, 0, 0, 0, time.UTC),
				},
				{
					"Christmas_Day_2025",
					time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
					time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
				},
			},
		},
		"non utc tz": {
			hol:   us.ChristmasDay,
			start: time.Date(2024, 12, 8, 0, 0, 0, 0, time.FixedZone("UTC-8", -8*60*60)),
			end:   time.Date(2025, 12, 8, 0, 0, 0, 0, time.FixedZone("UTC-8", -8*60*60)),
			expected: []Event{
				{
					"Christmas_Day_2024",
					time.Date(2024, 12, 25, 0, 0, 0, 0, time.FixedZone("UTC-8", -8*60*60)),
					time.Date(2024, 12, 26, 0, 0, 0, 0, time.FixedZone("UTC-8", -8*60*60)),
				},
			},
		},
		"outside range": {
			hol:      us.ChristmasDay,
			start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			end:      time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			expected: []Event{},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := Holiday(td.hol, td.start, td.end)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestEventContains(t *testing.T) {
	e := Event{"e", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	testData := map[string]struct {
		t        time.Time
		expected bool
	}{
		"start":        {e.Start, true},
		"within":       {e.Start.Add(12 * time.Hour), true},
		"end excluded": {e.End, false},
		"before":       {e.Start.Add(-time.Second), false},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, e.Contains(td.t))
		})
	}
}

func TestCalendarIsHoliday(t *testing.T) {
	c := NewUSCalendar()
	assert.True(t, c.IsHoliday(time.Date(2024, 12, 25, 15, 0, 0, 0, time.UTC)))
	assert.True(t, c.IsHoliday(time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.IsHoliday(time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC)))

	var nilCal *Calendar
	assert.False(t, nilCal.IsHoliday(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)))
}

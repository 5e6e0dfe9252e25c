// internal/courses/schedule_test.go
package courses

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekly(label string, days ...time.Weekday) *Course {
	return &Course{ID: uuid.New(), Label: label, Weekdays: days}
}

func TestIsSessionDate(t *testing.T) {
	c := weekly("Gi", time.Monday)
	c.Dates = []time.Time{date(2023, time.November, 2)} // a Thursday

	assert.True(t, c.IsSessionDate(date(2023, time.November, 6)), "Monday matches the weekday rule")
	assert.True(t, c.IsSessionDate(date(2023, time.November, 2)), "explicit date matches")
	assert.False(t, c.IsSessionDate(date(2023, time.November, 7)), "plain Tuesday does not match")
}

func TestGenerateSessionsYieldsEveryCourse(t *testing.T) {
	gi := weekly("Gi", time.Monday)
	nogi := weekly("NoGi", time.Monday, time.Wednesday)

	// Mon 6th .. Sun 12th November 2023
	sessions := GenerateSessions(date(2023, time.November, 6), date(2023, time.November, 12), []*Course{gi, nogi}, false)

	require.Len(t, sessions, 3)
	assert.Equal(t, gi.ID, sessions[0].Course.ID)
	assert.Equal(t, date(2023, time.November, 6), sessions[0].Date)
	assert.Equal(t, nogi.ID, sessions[1].Course.ID)
	assert.Equal(t, date(2023, time.November, 6), sessions[1].Date)
	assert.Equal(t, nogi.ID, sessions[2].Course.ID)
	assert.Equal(t, date(2023, time.November, 8), sessions[2].Date)
}

func TestGenerateSessionsExclusiveFirstCourseWins(t *testing.T) {
	gi := weekly("Gi", time.Monday)
	nogi := weekly("NoGi", time.Monday)

	sessions := GenerateSessions(date(2023, time.November, 6), date(2023, time.November, 6), []*Course{gi, nogi}, true)

	require.Len(t, sessions, 1)
	assert.Equal(t, gi.ID, sessions[0].Course.ID)
}

func TestGenerateSessionsRangeIsInclusive(t *testing.T) {
	c := weekly("Gi", time.Monday)

	sessions := GenerateSessions(date(2023, time.November, 6), date(2023, time.November, 6), []*Course{c}, false)

	require.Len(t, sessions, 1)
}

func TestNextSessionSkipsToWeekday(t *testing.T) {
	c := weekly("Gi", time.Monday)

	// Wednesday 1st November 2023 -> Monday 6th
	next, err := NextSession(date(2023, time.November, 1), c)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.November, 6), next.Date)
}

func TestNextSessionOnSessionDateReturnsSameDay(t *testing.T) {
	c := weekly("Gi", time.Monday)

	next, err := NextSession(date(2023, time.November, 6), c)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.November, 6), next.Date)
}

func TestNextSessionExplicitDatesOnly(t *testing.T) {
	c := &Course{ID: uuid.New(), Label: "Seminar", Dates: []time.Time{date(2024, time.March, 9)}}

	next, err := NextSession(date(2024, time.January, 1), c)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 9), next.Date)
}

func TestNextSessionNoFutureSession(t *testing.T) {
	empty := &Course{ID: uuid.New(), Label: "Retired"}
	_, err := NextSession(date(2024, time.January, 1), empty)
	assert.ErrorIs(t, err, ErrNoFutureSession)

	past := &Course{ID: uuid.New(), Label: "One-off", Dates: []time.Time{date(2020, time.June, 1)}}
	_, err = NextSession(date(2024, time.January, 1), past)
	assert.ErrorIs(t, err, ErrNoFutureSession)
}

func TestPreviousSession(t *testing.T) {
	c := weekly("Gi", time.Monday)

	prev, err := PreviousSession(date(2023, time.November, 8), c)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.November, 6), prev.Date)

	past := &Course{ID: uuid.New(), Dates: []time.Time{date(2023, time.June, 1), date(2023, time.July, 1)}}
	prev, err = PreviousSession(date(2023, time.November, 8), past)
	require.NoError(t, err)
	assert.Equal(t, date(2023, time.July, 1), prev.Date)

	future := &Course{ID: uuid.New(), Dates: []time.Time{date(2024, time.June, 1)}}
	_, err = PreviousSession(date(2023, time.November, 8), future)
	assert.ErrorIs(t, err, ErrNoFutureSession)
}

func TestGenerateSessionsProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dayCount := rapid.IntRange(0, 60).Draw(t, "days")
		start := date(2023, time.January, 1).AddDate(0, 0, rapid.IntRange(0, 365).Draw(t, "offset"))
		end := start.AddDate(0, 0, dayCount)

		var cs []*Course
		for i, n := 0, rapid.IntRange(1, 4).Draw(t, "courses"); i < n; i++ {
			wds := rapid.SliceOfNDistinct(rapid.IntRange(0, 6), 0, 7, rapid.ID).Draw(t, "weekdays")
			c := &Course{ID: uuid.New()}
			for _, wd := range wds {
				c.Weekdays = append(c.Weekdays, time.Weekday(wd))
			}
			cs = append(cs, c)
		}

		sessions := GenerateSessions(start, end, cs, false)
		for i, s := range sessions {
			if s.Date.Before(start) || s.Date.After(end) {
				t.Fatalf("session %d outside range: %s", i, s.Date)
			}
			if !s.Course.IsSessionDate(s.Date) {
				t.Fatalf("session %d on a non-session date %s", i, s.Date)
			}
			if i > 0 && s.Date.Before(sessions[i-1].Date) {
				t.Fatalf("sessions out of order at %d", i)
			}
		}

		// Exclusive mode never yields two sessions on one date.
		seen := map[time.Time]bool{}
		for _, s := range GenerateSessions(start, end, cs, true) {
			if seen[s.Date] {
				t.Fatalf("exclusive mode yielded %s twice", s.Date)
			}
			seen[s.Date] = true
		}
	})
}

// internal/courses/domain.go
package courses

import (
	"time"

	"github.com/google/uuid"
)

// Course is a recurring class offering. A session of the course runs on
// every date whose weekday is in Weekdays, plus every explicitly listed
// date. Two courses are the same course only if their IDs match.
type Course struct {
	ID        uuid.UUID      `json:"id"`
	Label     string         `json:"label"`
	Weekdays  []time.Weekday `json:"weekdays"`
	Dates     []time.Time    `json:"dates"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   int            `json:"version"`
}

// Day normalises a timestamp to its calendar date in UTC. All schedule
// comparisons happen on normalised dates.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsSessionDate reports whether the course runs on the given day.
func (c *Course) IsSessionDate(day time.Time) bool {
	day = Day(day)
	for _, d := range c.Dates {
		if Day(d).Equal(day) {
			return true
		}
	}
	for _, wd := range c.Weekdays {
		if day.Weekday() == wd {
			return true
		}
	}
	return false
}

// HasFutureSessions reports whether the course can run on or after the
// given day. A course with no weekdays and no explicit dates on or after
// the day can never occur again.
func (c *Course) HasFutureSessions(day time.Time) bool {
	if len(c.Weekdays) > 0 {
		return true
	}
	day = Day(day)
	for _, d := range c.Dates {
		if !Day(d).Before(day) {
			return true
		}
	}
	return false
}

// Event represents a domain event related to the course catalog.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// CourseAddedEvent is published when a course is added to the catalog.
type CourseAddedEvent struct {
	ID       uuid.UUID      `json:"id"`
	Label    string         `json:"label"`
	Weekdays []time.Weekday `json:"weekdays"`
	Dates    []time.Time    `json:"dates"`
}

// CourseRemovedEvent is published when a course is removed from the catalog.
type CourseRemovedEvent struct {
	ID uuid.UUID `json:"id"`
}

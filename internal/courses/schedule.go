// internal/courses/schedule.go
package courses

import (
	"errors"
	"time"
)

// ErrNoFutureSession is returned when a course's schedule admits no date on
// or after the query start.
var ErrNoFutureSession = errors.New("course has no future session dates")

// Session is one occurrence of a course on a calendar date.
type Session struct {
	Date   time.Time `json:"date"`
	Course *Course   `json:"course"`
}

// GenerateSessions enumerates a session for every course that runs on every
// day in [start, end] inclusive, in ascending date order. Several courses on
// the same day each yield their own session. In exclusive mode at most one
// session is yielded per date: the first course in the given slice that runs
// on the date wins.
//
// The function is pure; callers may re-invoke it freely.
func GenerateSessions(start, end time.Time, cs []*Course, exclusive bool) []Session {
	var out []Session
	for day := Day(start); !day.After(Day(end)); day = day.AddDate(0, 0, 1) {
		for _, c := range cs {
			if !c.IsSessionDate(day) {
				continue
			}
			out = append(out, Session{Date: day, Course: c})
			if exclusive {
				break
			}
		}
	}
	return out
}

// NextSession returns the earliest session of the course on or after start,
// or ErrNoFutureSession if the schedule admits none.
func NextSession(start time.Time, c *Course) (Session, error) {
	day := Day(start)
	if !c.HasFutureSessions(day) {
		return Session{}, ErrNoFutureSession
	}
	for !c.IsSessionDate(day) {
		day = day.AddDate(0, 0, 1)
	}
	return Session{Date: day, Course: c}, nil
}

// PreviousSession returns the latest session of the course on or before
// start, or ErrNoFutureSession if the schedule admits none. It bounds its
// search at the earliest explicit date when the course has no weekdays.
func PreviousSession(start time.Time, c *Course) (Session, error) {
	day := Day(start)
	if len(c.Weekdays) == 0 {
		var found bool
		var latest time.Time
		for _, d := range c.Dates {
			d = Day(d)
			if d.After(day) {
				continue
			}
			if !found || d.After(latest) {
				found = true
				latest = d
			}
		}
		if !found {
			return Session{}, ErrNoFutureSession
		}
		return Session{Date: latest, Course: c}, nil
	}
	for !c.IsSessionDate(day) {
		day = day.AddDate(0, 0, -1)
	}
	return Session{Date: day, Course: c}, nil
}

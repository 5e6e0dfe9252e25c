// internal/attendance/domain.go
package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Domain rejections. Every error here refuses a requested state transition;
// none is process-fatal and none is retried by the engine.
var (
	// ErrExpiredLicence means the member's licence lapsed before the
	// attendance date.
	ErrExpiredLicence = errors.New("licence has expired")

	// ErrNoRemainingTrialSessions means an unlicenced member has used up
	// the trial allowance.
	ErrNoRemainingTrialSessions = errors.New("no remaining trial sessions")

	// ErrNoPaymentFound means resolution to paid was requested but neither
	// a matching stored payment nor an active subscription exists.
	ErrNoPaymentFound = errors.New("no payment found")

	// ErrInvalidResolution guards against constructing an attendance that
	// is both paid and complementary.
	ErrInvalidResolution = errors.New("attendance cannot be both paid and complementary")

	// ErrAttendanceNotFound means no live attendance matches the request.
	ErrAttendanceNotFound = errors.New("attendance not found")
)

// Resolution is the settled payment state of an attendance. Representing it
// as a single tagged value makes the paid/complementary dual state
// unconstructible through normal use.
type Resolution string

const (
	ResolutionUnresolved    Resolution = "unresolved"
	ResolutionPaid          Resolution = "paid"
	ResolutionComplementary Resolution = "complementary"
)

// ResolutionFromFlags converts a stored paid/complementary flag pair into a
// Resolution, rejecting the dual-true state.
func ResolutionFromFlags(paid, complementary bool) (Resolution, error) {
	switch {
	case paid && complementary:
		return "", ErrInvalidResolution
	case paid:
		return ResolutionPaid, nil
	case complementary:
		return ResolutionComplementary, nil
	default:
		return ResolutionUnresolved, nil
	}
}

// Flags returns the paid/complementary pair for the read model columns.
func (r Resolution) Flags() (paid, complementary bool) {
	return r == ResolutionPaid, r == ResolutionComplementary
}

func (r Resolution) Valid() bool {
	switch r {
	case ResolutionUnresolved, ResolutionPaid, ResolutionComplementary:
		return true
	}
	return false
}

// Attendance is one registration of a member into one course session. At
// most one live attendance exists per (member, course, date); a superseding
// registration clears the prior row first.
type Attendance struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	MemberID   uuid.UUID  `json:"member_id" db:"member_id"`
	CourseID   uuid.UUID  `json:"course_id" db:"course_id"`
	Date       time.Time  `json:"date" db:"date"`
	Resolution Resolution `json:"resolution" db:"resolution"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	Version    int        `json:"version" db:"version"`
}

func (a *Attendance) String() string {
	return fmt.Sprintf("attendance %s: member %s, course %s, %s (%s)",
		a.ID, a.MemberID, a.CourseID, a.Date.Format("2006-01-02"), a.Resolution)
}

// Event represents a domain event in the attendance context.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AttendanceRegisteredEvent struct {
	AttendanceID uuid.UUID `json:"attendance_id"`
	MemberID     uuid.UUID `json:"member_id"`
	CourseID     uuid.UUID `json:"course_id"`
	Date         time.Time `json:"date"`
	Superseded   bool      `json:"superseded"`
}

type AttendanceClearedEvent struct {
	AttendanceID uuid.UUID `json:"attendance_id"`
	MemberID     uuid.UUID `json:"member_id"`
	CourseID     uuid.UUID `json:"course_id"`
	Date         time.Time `json:"date"`
}

type AttendanceResolvedEvent struct {
	AttendanceID uuid.UUID  `json:"attendance_id"`
	Resolution   Resolution `json:"resolution"`
	PaymentID    *uuid.UUID `json:"payment_id,omitempty"`
	Subscription bool       `json:"subscription"`
}

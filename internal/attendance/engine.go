// internal/attendance/engine.go
package attendance

import (
	"time"

	"clubroll/internal/membership"

	"github.com/google/uuid"
)

// The engine is the pure core of the attendance lifecycle: it runs against a
// member aggregate and attendance rows the host has already loaded, performs
// no I/O, and reports the mutations for the host to persist. Hosts must wrap
// each call in one transactional unit keyed by the member so the
// clear-then-create sequence inside Register is atomic.

// Register validates eligibility and creates a new unresolved attendance,
// superseding any existing row for the same (member, course, date). The
// eligibility gate sees the state as of before this call's own clear takes
// effect, so nothing leaks on a rejected re-registration. Net counter
// effect: +1 for a fresh slot, 0 when replacing.
func Register(m *membership.Member, courseID uuid.UUID, date time.Time, existing *Attendance) (*Attendance, error) {
	if err := CheckEligibility(m, date, existing != nil); err != nil {
		return nil, err
	}

	if existing != nil {
		m.DecrementAttendance(1)
	}
	m.IncrementAttendance()

	now := time.Now().UTC()
	return &Attendance{
		ID:         uuid.New(),
		MemberID:   m.ID,
		CourseID:   courseID,
		Date:       date,
		Resolution: ResolutionUnresolved,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}, nil
}

// Clear reverses the member's counter by the number of attendance rows the
// host removed. Removing zero rows is a no-op.
func Clear(m *membership.Member, removed int) {
	m.DecrementAttendance(removed)
}

// Pay resolves the attendance to paid.
//
// With useSubscription the member must hold a subscription covering the
// course on the attendance date; nothing is consumed, subscriptions are
// unlimited-use. Without it, the newest unused payment matching the course
// (course-bound or wildcard) is consumed and returned so the host can
// persist its used flag. Either way a missing credit is ErrNoPaymentFound.
func Pay(m *membership.Member, a *Attendance, useSubscription bool) (*membership.Payment, error) {
	if useSubscription {
		if !m.Ledger().HasSubscription(a.CourseID, a.Date) {
			return nil, ErrNoPaymentFound
		}
		a.Resolution = ResolutionPaid
		a.UpdatedAt = time.Now().UTC()
		return nil, nil
	}

	p := m.Ledger().Prepaid(a.CourseID)
	if p == nil {
		return nil, ErrNoPaymentFound
	}
	m.Ledger().Consume(p)
	a.Resolution = ResolutionPaid
	a.UpdatedAt = time.Now().UTC()
	return p, nil
}

// MarkComplementary sets the resolution to complementary unconditionally,
// clearing any prior paid state.
func MarkComplementary(a *Attendance) {
	a.Resolution = ResolutionComplementary
	a.UpdatedAt = time.Now().UTC()
}

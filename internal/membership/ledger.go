// internal/membership/ledger.go
package membership

import (
	"time"

	"github.com/google/uuid"
)

// Payment is a single-use purchase credit. A payment with no course is a
// wildcard: it was taken before a course was finalised and redeems against
// any course. Once used it is permanently excluded from resolution.
type Payment struct {
	ID       uuid.UUID  `json:"id" db:"id"`
	At       time.Time  `json:"at" db:"datetime"`
	Used     bool       `json:"used" db:"used"`
	CourseID *uuid.UUID `json:"course_id,omitempty" db:"course_id"`
}

// CanPayFor reports whether the payment redeems against the given course.
func (p *Payment) CanPayFor(courseID uuid.UUID) bool {
	return p.CourseID == nil || *p.CourseID == courseID
}

// SubscriptionTypeTime is the only subscription type currently sold: validity
// is purely a date comparison.
const SubscriptionTypeTime = "time"

// Subscription is a time-boxed unlimited-use credit for one course. It is
// never consumed; it simply stops matching once expired.
type Subscription struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CourseID   uuid.UUID `json:"course_id" db:"course_id"`
	Type       string    `json:"type" db:"type"`
	ExpiryDate time.Time `json:"expiry_date" db:"expiry_date"`
}

// Covers reports whether the subscription is valid for the course on the
// given day. Expiry is strict: a subscription expiring on the day itself no
// longer covers it.
func (s *Subscription) Covers(courseID uuid.UUID, day time.Time) bool {
	return s.CourseID == courseID && s.ExpiryDate.After(day)
}

// Ledger is the in-memory view over one member's payments and subscriptions.
// It is owned by the Member aggregate and never shared across requests;
// hosts load it fresh per call and persist the mutations it reports.
type Ledger struct {
	unused        []*Payment // newest first
	used          []*Payment
	subscriptions []*Subscription
}

// TakePayment inserts a payment at the front of the unused set. Newest-first
// ordering decides which payment a resolution consumes.
func (l *Ledger) TakePayment(p *Payment) {
	l.unused = append([]*Payment{p}, l.unused...)
}

// Subscribe adds a subscription to the ledger.
func (l *Ledger) Subscribe(s *Subscription) {
	l.subscriptions = append([]*Subscription{s}, l.subscriptions...)
}

// UnusedPayments returns unused payments usable for the given course,
// newest first. A nil filter matches every unused payment; a wildcard
// payment matches every filter.
func (l *Ledger) UnusedPayments(courseID *uuid.UUID) []*Payment {
	var out []*Payment
	for _, p := range l.unused {
		if p.Used {
			continue
		}
		if courseID == nil || p.CanPayFor(*courseID) {
			out = append(out, p)
		}
	}
	return out
}

// Prepaid returns the payment a resolution would consume for the course: the
// most recently added matching unused payment, or nil.
func (l *Ledger) Prepaid(courseID uuid.UUID) *Payment {
	if usable := l.UnusedPayments(&courseID); len(usable) > 0 {
		return usable[0]
	}
	return nil
}

// Consume marks the payment used and moves it into the spent history.
func (l *Ledger) Consume(p *Payment) {
	p.Used = true
	for i, candidate := range l.unused {
		if candidate.ID == p.ID {
			l.unused = append(l.unused[:i], l.unused[i+1:]...)
			break
		}
	}
	l.used = append([]*Payment{p}, l.used...)
}

// HasSubscription reports whether any subscription covers the course on the
// given day.
func (l *Ledger) HasSubscription(courseID uuid.UUID, day time.Time) bool {
	for _, s := range l.subscriptions {
		if s.Covers(courseID, day) {
			return true
		}
	}
	return false
}

// UnexpiredSubscriptions returns subscriptions still valid after the given
// day, for any course.
func (l *Ledger) UnexpiredSubscriptions(day time.Time) []*Subscription {
	var out []*Subscription
	for _, s := range l.subscriptions {
		if s.ExpiryDate.After(day) {
			out = append(out, s)
		}
	}
	return out
}

// SpentPayments returns up to n consumed payments, most recent first.
func (l *Ledger) SpentPayments(n int) []*Payment {
	if n > len(l.used) {
		n = len(l.used)
	}
	return l.used[:n]
}

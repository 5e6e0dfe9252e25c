// internal/membership/ledger_test.go
package membership

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func paymentFor(courseID *uuid.UUID, at time.Time) *Payment {
	return &Payment{ID: uuid.New(), At: at, CourseID: courseID}
}

func TestWildcardPaymentMatchesAnyCourse(t *testing.T) {
	p := paymentFor(nil, time.Now().UTC())

	assert.True(t, p.CanPayFor(uuid.New()))
	assert.True(t, p.CanPayFor(uuid.New()))
}

func TestCoursePaymentMatchesOnlyItsCourse(t *testing.T) {
	courseID := uuid.New()
	p := paymentFor(&courseID, time.Now().UTC())

	assert.True(t, p.CanPayFor(courseID))
	assert.False(t, p.CanPayFor(uuid.New()))
}

func TestPrepaidPrefersNewestPayment(t *testing.T) {
	courseID := uuid.New()
	var l Ledger

	older := paymentFor(&courseID, day(2026, time.January, 5))
	newer := paymentFor(&courseID, day(2026, time.February, 5))
	l.TakePayment(older)
	l.TakePayment(newer)

	got := l.Prepaid(courseID)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestConsumeRemovesPaymentFromResolution(t *testing.T) {
	courseID := uuid.New()
	var l Ledger

	p := paymentFor(&courseID, time.Now().UTC())
	l.TakePayment(p)

	l.Consume(p)

	assert.True(t, p.Used)
	assert.Nil(t, l.Prepaid(courseID))
	assert.Empty(t, l.UnusedPayments(nil))
	assert.Len(t, l.SpentPayments(10), 1)
}

func TestUnusedPaymentsFiltersByCourse(t *testing.T) {
	courseA := uuid.New()
	courseB := uuid.New()
	var l Ledger

	l.TakePayment(paymentFor(&courseA, time.Now().UTC()))
	l.TakePayment(paymentFor(&courseB, time.Now().UTC()))
	l.TakePayment(paymentFor(nil, time.Now().UTC()))

	assert.Len(t, l.UnusedPayments(nil), 3)
	// The wildcard counts for either course.
	assert.Len(t, l.UnusedPayments(&courseA), 2)
	assert.Len(t, l.UnusedPayments(&courseB), 2)
}

func TestSubscriptionExpiryIsStrict(t *testing.T) {
	courseID := uuid.New()
	sub := &Subscription{
		ID:         uuid.New(),
		CourseID:   courseID,
		Type:       SubscriptionTypeTime,
		ExpiryDate: day(2026, time.March, 10),
	}

	assert.True(t, sub.Covers(courseID, day(2026, time.March, 9)))
	// A subscription expiring on the day no longer covers it.
	assert.False(t, sub.Covers(courseID, day(2026, time.March, 10)))
	assert.False(t, sub.Covers(uuid.New(), day(2026, time.March, 9)))
}

func TestHasSubscription(t *testing.T) {
	courseID := uuid.New()
	var l Ledger

	l.Subscribe(&Subscription{
		ID:         uuid.New(),
		CourseID:   courseID,
		Type:       SubscriptionTypeTime,
		ExpiryDate: day(2026, time.July, 1),
	})

	assert.True(t, l.HasSubscription(courseID, day(2026, time.June, 30)))
	assert.False(t, l.HasSubscription(courseID, day(2026, time.July, 1)))
	assert.False(t, l.HasSubscription(uuid.New(), day(2026, time.June, 30)))

	assert.Len(t, l.UnexpiredSubscriptions(day(2026, time.June, 30)), 1)
	assert.Empty(t, l.UnexpiredSubscriptions(day(2026, time.July, 2)))
}

// Consuming payments one at a time drains the ledger exactly once per
// payment, regardless of the mix of wildcard and course-bound credits.
func TestLedgerExhaustionProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		courseID := uuid.New()

		n := rapid.IntRange(0, 12).Draw(t, "payments")
		var l Ledger
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(t, "wildcard") {
				l.TakePayment(paymentFor(nil, time.Now().UTC()))
			} else {
				l.TakePayment(paymentFor(&courseID, time.Now().UTC()))
			}
		}

		consumed := 0
		for {
			p := l.Prepaid(courseID)
			if p == nil {
				break
			}
			l.Consume(p)
			consumed++
		}

		if consumed != n {
			t.Fatalf("consumed %d of %d payments", consumed, n)
		}
		if got := len(l.UnusedPayments(nil)); got != 0 {
			t.Fatalf("%d payments left unused after exhaustion", got)
		}
		if got := len(l.SpentPayments(n + 1)); got != n {
			t.Fatalf("spent list holds %d of %d payments", got, n)
		}
	})
}

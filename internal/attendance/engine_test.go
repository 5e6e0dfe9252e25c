// internal/attendance/engine_test.go
package attendance

import (
	"testing"
	"time"

	"clubroll/internal/membership"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTrialMember(t rapid.TB) *membership.Member {
	t.Helper()
	m, err := membership.NewMember(membership.Profile{Name: "Trial Member"}, nil)
	require.NoError(t, err)
	return m
}

func newLicencedMember(t testing.TB, expires time.Time) *membership.Member {
	t.Helper()
	m, err := membership.NewMember(membership.Profile{Name: "Licenced Member"}, &membership.Licence{Number: 100, Expires: expires})
	require.NoError(t, err)
	return m
}

func TestRegisterLicencedMember(t *testing.T) {
	m := newLicencedMember(t, day(2030, time.January, 1))
	courseID := uuid.New()

	// A Monday.
	a, err := Register(m, courseID, day(2026, time.September, 7), nil)
	require.NoError(t, err)

	assert.Equal(t, ResolutionUnresolved, a.Resolution)
	assert.Equal(t, 1, m.SessionsAttended())
}

func TestRegisterExpiredLicence(t *testing.T) {
	m := newLicencedMember(t, day(2016, time.January, 1))

	_, err := Register(m, uuid.New(), day(2020, time.January, 1), nil)
	assert.ErrorIs(t, err, ErrExpiredLicence)
	assert.Equal(t, 0, m.SessionsAttended())
}

func TestRegisterExhaustsTrialAllowance(t *testing.T) {
	m := newTrialMember(t)
	courseID := uuid.New()

	_, err := Register(m, courseID, day(2026, time.September, 7), nil)
	require.NoError(t, err)
	_, err = Register(m, courseID, day(2026, time.September, 14), nil)
	require.NoError(t, err)

	_, err = Register(m, courseID, day(2026, time.September, 21), nil)
	assert.ErrorIs(t, err, ErrNoRemainingTrialSessions)
	assert.Equal(t, 2, m.SessionsAttended())
}

func TestReRegisterSameSlotIsIdempotent(t *testing.T) {
	m := newTrialMember(t)
	courseID := uuid.New()
	date := day(2026, time.September, 7)

	first, err := Register(m, courseID, date, nil)
	require.NoError(t, err)

	second, err := Register(m, courseID, date, first)
	require.NoError(t, err)

	// Re-submitting the same session never consumes a second trial.
	assert.Equal(t, 1, m.SessionsAttended())
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, ResolutionUnresolved, second.Resolution)
}

func TestReRegisterAtZeroAllowanceStillPasses(t *testing.T) {
	m := newTrialMember(t)
	courseID := uuid.New()

	first, err := Register(m, courseID, day(2026, time.September, 7), nil)
	require.NoError(t, err)
	_, err = Register(m, courseID, day(2026, time.September, 14), nil)
	require.NoError(t, err)
	require.Equal(t, 0, m.RemainingTrialSessions())

	// Replacing the first slot notionally restores its trial before the
	// check, so the allowance is not exhausted by the replacement itself.
	_, err = Register(m, courseID, day(2026, time.September, 7), first)
	require.NoError(t, err)
	assert.Equal(t, 2, m.SessionsAttended())
}

func TestFailedReRegistrationLeavesCounterUntouched(t *testing.T) {
	m := newLicencedMember(t, day(2026, time.January, 1))
	courseID := uuid.New()

	first, err := Register(m, courseID, day(2025, time.December, 29), nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.SessionsAttended())

	// The licence has lapsed by the second attempt; the rejection must not
	// leak the supersede's decrement.
	_, err = Register(m, courseID, day(2026, time.February, 2), first)
	assert.ErrorIs(t, err, ErrExpiredLicence)
	assert.Equal(t, 1, m.SessionsAttended())
}

func TestClearReversesCounter(t *testing.T) {
	m := newTrialMember(t)
	courseID := uuid.New()

	_, err := Register(m, courseID, day(2026, time.September, 7), nil)
	require.NoError(t, err)

	Clear(m, 1)
	assert.Equal(t, 0, m.SessionsAttended())

	// Deleting zero rows is a no-op on the counter.
	Clear(m, 0)
	assert.Equal(t, 0, m.SessionsAttended())
}

func TestCounterConservation(t *testing.T) {
	m := newTrialMember(t)
	courseID := uuid.New()
	date := day(2026, time.September, 7)

	_, err := Register(m, courseID, date, nil)
	require.NoError(t, err)
	before := m.RemainingTrialSessions()

	Clear(m, 1)
	_, err = Register(m, courseID, date, nil)
	require.NoError(t, err)

	assert.Equal(t, before, m.RemainingTrialSessions())
}

func TestPayConsumesNewestMatchingPayment(t *testing.T) {
	m := newTrialMember(t)
	courseID := uuid.New()

	older := &membership.Payment{ID: uuid.New(), At: day(2026, time.January, 1), CourseID: &courseID}
	newer := &membership.Payment{ID: uuid.New(), At: day(2026, time.February, 1), CourseID: &courseID}
	m.Ledger().TakePayment(older)
	m.Ledger().TakePayment(newer)

	a, err := Register(m, courseID, day(2026, time.September, 7), nil)
	require.NoError(t, err)

	consumed, err := Pay(m, a, false)
	require.NoError(t, err)

	assert.Equal(t, newer.ID, consumed.ID)
	assert.True(t, consumed.Used)
	assert.Equal(t, ResolutionPaid, a.Resolution)
}

func TestPayRejectsPaymentForOtherCourse(t *testing.T) {
	m := newTrialMember(t)
	courseA := uuid.New()
	courseB := uuid.New()

	m.Ledger().TakePayment(&membership.Payment{ID: uuid.New(), At: time.Now().UTC(), CourseID: &courseA})

	a, err := Register(m, courseB, day(2026, time.September, 7), nil)
	require.NoError(t, err)

	_, err = Pay(m, a, false)
	assert.ErrorIs(t, err, ErrNoPaymentFound)
	assert.Equal(t, ResolutionUnresolved, a.Resolution)
}

func TestPayAcceptsWildcardPayment(t *testing.T) {
	m := newTrialMember(t)

	wildcard := &membership.Payment{ID: uuid.New(), At: time.Now().UTC()}
	m.Ledger().TakePayment(wildcard)

	a, err := Register(m, uuid.New(), day(2026, time.September, 7), nil)
	require.NoError(t, err)

	consumed, err := Pay(m, a, false)
	require.NoError(t, err)
	assert.Equal(t, wildcard.ID, consumed.ID)
}

func TestPayWithSubscription(t *testing.T) {
	m := newLicencedMember(t, day(2030, time.January, 1))
	courseID := uuid.New()
	m.Ledger().Subscribe(&membership.Subscription{
		ID:         uuid.New(),
		CourseID:   courseID,
		Type:       membership.SubscriptionTypeTime,
		ExpiryDate: day(2023, time.November, 15),
	})

	t.Run("covers a session before expiry", func(t *testing.T) {
		a, err := Register(m, courseID, day(2023, time.October, 15), nil)
		require.NoError(t, err)

		consumed, err := Pay(m, a, true)
		require.NoError(t, err)
		assert.Nil(t, consumed)
		assert.Equal(t, ResolutionPaid, a.Resolution)
	})

	t.Run("rejects a session after expiry", func(t *testing.T) {
		a, err := Register(m, courseID, day(2023, time.November, 20), nil)
		require.NoError(t, err)

		_, err = Pay(m, a, true)
		assert.ErrorIs(t, err, ErrNoPaymentFound)
		assert.Equal(t, ResolutionUnresolved, a.Resolution)
	})
}

func TestSubscriptionIsNotConsumed(t *testing.T) {
	m := newLicencedMember(t, day(2030, time.January, 1))
	courseID := uuid.New()
	m.Ledger().Subscribe(&membership.Subscription{
		ID:         uuid.New(),
		CourseID:   courseID,
		Type:       membership.SubscriptionTypeTime,
		ExpiryDate: day(2030, time.January, 1),
	})

	for week := 0; week < 10; week++ {
		a, err := Register(m, courseID, day(2026, time.September, 7).AddDate(0, 0, 7*week), nil)
		require.NoError(t, err)
		_, err = Pay(m, a, true)
		require.NoError(t, err)
	}
}

func TestMarkComplementaryClearsPaid(t *testing.T) {
	m := newTrialMember(t)
	courseID := uuid.New()
	m.Ledger().TakePayment(&membership.Payment{ID: uuid.New(), At: time.Now().UTC(), CourseID: &courseID})

	a, err := Register(m, courseID, day(2026, time.September, 7), nil)
	require.NoError(t, err)

	_, err = Pay(m, a, false)
	require.NoError(t, err)
	require.Equal(t, ResolutionPaid, a.Resolution)

	MarkComplementary(a)
	assert.Equal(t, ResolutionComplementary, a.Resolution)

	paid, comp := a.Resolution.Flags()
	assert.False(t, paid)
	assert.True(t, comp)
}

func TestResolutionFromFlags(t *testing.T) {
	r, err := ResolutionFromFlags(false, false)
	require.NoError(t, err)
	assert.Equal(t, ResolutionUnresolved, r)

	r, err = ResolutionFromFlags(true, false)
	require.NoError(t, err)
	assert.Equal(t, ResolutionPaid, r)

	r, err = ResolutionFromFlags(false, true)
	require.NoError(t, err)
	assert.Equal(t, ResolutionComplementary, r)

	_, err = ResolutionFromFlags(true, true)
	assert.ErrorIs(t, err, ErrInvalidResolution)
}

// Any sequence of register calls on one slot leaves at most one live
// attendance and moves the counter by exactly one net.
func TestRegisterUniquenessProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newTrialMember(t)
		courseID := uuid.New()
		date := day(2026, time.September, 7)

		var live *Attendance
		n := rapid.IntRange(1, 10).Draw(t, "registrations")
		for i := 0; i < n; i++ {
			a, err := Register(m, courseID, date, live)
			if err != nil {
				t.Fatalf("registration %d rejected: %v", i, err)
			}
			live = a
		}

		if live == nil {
			t.Fatal("no live attendance after registering")
		}
		if m.SessionsAttended() != 1 {
			t.Fatalf("counter moved to %d, want 1 net", m.SessionsAttended())
		}
	})
}

// After any sequence of pay/mark-complementary calls the resolution is one
// of the three legal states; the flag pair never reads dual-true.
func TestResolutionMutualExclusionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newTrialMember(t)
		courseID := uuid.New()
		m.Ledger().Subscribe(&membership.Subscription{
			ID:         uuid.New(),
			CourseID:   courseID,
			Type:       membership.SubscriptionTypeTime,
			ExpiryDate: day(2030, time.January, 1),
		})

		a, err := Register(m, courseID, day(2026, time.September, 7), nil)
		if err != nil {
			t.Fatalf("register: %v", err)
		}

		n := rapid.IntRange(1, 8).Draw(t, "resolutions")
		for i := 0; i < n; i++ {
			if rapid.Bool().Draw(t, "complementary") {
				MarkComplementary(a)
			} else if _, err := Pay(m, a, true); err != nil {
				t.Fatalf("pay: %v", err)
			}

			if !a.Resolution.Valid() {
				t.Fatalf("illegal resolution %q", a.Resolution)
			}
			paid, comp := a.Resolution.Flags()
			if paid && comp {
				t.Fatal("attendance reads both paid and complementary")
			}
		}
	})
}

// A consumed payment never reappears in the unused set, for any course.
func TestCreditExhaustionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := newTrialMember(t)
		courseID := uuid.New()

		n := rapid.IntRange(1, 6).Draw(t, "payments")
		for i := 0; i < n; i++ {
			p := &membership.Payment{ID: uuid.New(), At: time.Now().UTC()}
			if rapid.Bool().Draw(t, "bound") {
				p.CourseID = &courseID
			}
			m.Ledger().TakePayment(p)
		}

		a, err := Register(m, courseID, day(2026, time.September, 7), nil)
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		consumed, err := Pay(m, a, false)
		if err != nil {
			t.Fatalf("pay: %v", err)
		}

		for _, p := range m.Ledger().UnusedPayments(nil) {
			if p.ID == consumed.ID {
				t.Fatal("consumed payment still reads as unused")
			}
		}
	})
}

// internal/membership/domain_test.go
package membership

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewMemberTrialAllowance(t *testing.T) {
	t.Run("unlicenced members get the default allowance", func(t *testing.T) {
		m, err := NewMember(Profile{Name: "Ayesha Khan"}, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultTrialSessions, m.AllowedTrialSessions)
		assert.Equal(t, DefaultTrialSessions, m.RemainingTrialSessions())
	})

	t.Run("licenced members get no trial sessions", func(t *testing.T) {
		m, err := NewMember(Profile{Name: "Ayesha Khan"}, &Licence{Number: 4123, Expires: day(2027, time.March, 1)})
		require.NoError(t, err)
		assert.Equal(t, 0, m.AllowedTrialSessions)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := NewMember(Profile{}, nil)
		assert.ErrorIs(t, err, ErrNameRequired)
	})
}

func TestLicenceExpiry(t *testing.T) {
	m, err := NewMember(Profile{Name: "Ben Oduya"}, &Licence{Number: 991, Expires: day(2026, time.June, 15)})
	require.NoError(t, err)

	assert.False(t, m.LicenceExpired(day(2026, time.June, 14)))
	// The licence covers its expiry date itself.
	assert.False(t, m.LicenceExpired(day(2026, time.June, 15)))
	assert.True(t, m.LicenceExpired(day(2026, time.June, 16)))
}

func TestAttachLicenceStopsTrialCounting(t *testing.T) {
	m, err := NewMember(Profile{Name: "Carla Mendes"}, nil)
	require.NoError(t, err)

	m.IncrementAttendance()
	assert.Equal(t, 1, m.RemainingTrialSessions())

	m.AttachLicence(Licence{Number: 17, Expires: day(2027, time.January, 1)})
	require.True(t, m.HasLicence())
}

func TestAttendanceCounter(t *testing.T) {
	m, err := NewMember(Profile{Name: "Dan Petrov"}, nil)
	require.NoError(t, err)

	m.IncrementAttendance()
	m.IncrementAttendance()
	assert.Equal(t, 2, m.SessionsAttended())
	assert.Equal(t, 0, m.RemainingTrialSessions())

	m.DecrementAttendance(1)
	assert.Equal(t, 1, m.SessionsAttended())

	// The counter never goes negative, however many rows get cleared.
	m.DecrementAttendance(5)
	assert.Equal(t, 0, m.SessionsAttended())
}

func TestSignUpDeduplicates(t *testing.T) {
	m, err := NewMember(Profile{Name: "Elena Ruiz"}, nil)
	require.NoError(t, err)

	courseID := uuid.New()
	m.SignUp(courseID)
	m.SignUp(courseID)
	assert.Len(t, m.Courses(), 1)
}

func TestStateRoundTrip(t *testing.T) {
	m, err := NewMember(Profile{Name: "Farid Aziz", Email: "farid@example.com"}, nil)
	require.NoError(t, err)

	courseID := uuid.New()
	m.SignUp(courseID)
	m.IncrementAttendance()
	m.Ledger().TakePayment(&Payment{ID: uuid.New(), At: time.Now().UTC(), CourseID: &courseID})
	m.Ledger().Subscribe(&Subscription{
		ID:         uuid.New(),
		CourseID:   courseID,
		Type:       SubscriptionTypeTime,
		ExpiryDate: day(2027, time.May, 1),
	})

	restored := FromState(m.State())

	assert.Equal(t, m.ID, restored.ID)
	assert.Equal(t, m.AllowedTrialSessions, restored.AllowedTrialSessions)
	assert.Equal(t, m.SessionsAttended(), restored.SessionsAttended())
	assert.Equal(t, m.Courses(), restored.Courses())
	assert.Len(t, restored.Ledger().UnusedPayments(nil), 1)
	assert.True(t, restored.Ledger().HasSubscription(courseID, day(2026, time.April, 30)))
}

func TestRestoreAttendanceCount(t *testing.T) {
	m, err := NewMember(Profile{Name: "Grace Liu"}, nil)
	require.NoError(t, err)

	m.RestoreAttendanceCount(7)
	assert.Equal(t, 7, m.SessionsAttended())
	assert.Equal(t, DefaultTrialSessions-7, m.RemainingTrialSessions())
}

func TestRecentNotes(t *testing.T) {
	m, err := NewMember(Profile{Name: "Hana Sato"}, nil)
	require.NoError(t, err)

	assert.False(t, m.HasNotes())

	author := uuid.New()
	for i := 0; i < 5; i++ {
		m.AddNote(&Note{ID: uuid.New(), AuthorID: author, Text: "checked in", At: time.Now().UTC()})
	}

	assert.True(t, m.HasNotes())
	assert.Len(t, m.RecentNotes(3), 3)
	assert.Len(t, m.RecentNotes(10), 5)
}

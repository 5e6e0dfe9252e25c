// internal/membership/domain.go
package membership

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTrialSessions is the trial allowance granted to members who join
// without a licence. Licenced members get none; their licence already covers
// attendance.
const DefaultTrialSessions = 2

var ErrNameRequired = errors.New("member name cannot be blank")

// Profile holds the personal details of a member. The attendance engine
// treats these as opaque.
type Profile struct {
	Name    string     `json:"name"`
	DOB     *time.Time `json:"dob,omitempty"`
	Phone   string     `json:"phone,omitempty"`
	Email   string     `json:"email,omitempty"`
	Address string     `json:"address,omitempty"`
}

// Licence is a membership credential granting unlimited, trial-exempt
// attendance until its expiry date. A member holds at most one.
type Licence struct {
	Number  int       `json:"number"`
	Expires time.Time `json:"expires"`
}

// Note is a free-text remark attached to a member's record.
type Note struct {
	ID       uuid.UUID `json:"id" db:"id"`
	AuthorID uuid.UUID `json:"author_id" db:"author_id"`
	Text     string    `json:"text" db:"text"`
	At       time.Time `json:"at" db:"datetime"`
}

// Member is the aggregate the attendance engine operates on: identity,
// licence state, the trial-session counter and the credit ledger. The
// counter and ledger mutate only through the methods below.
type Member struct {
	ID                   uuid.UUID
	Profile              Profile
	Licence              *Licence
	AllowedTrialSessions int
	JoinDate             time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int

	courses          []uuid.UUID
	sessionsAttended int
	ledger           Ledger
	notes            []*Note
}

// NewMember creates a member. Members joining with a licence get no trial
// sessions; unlicenced members get the default allowance.
func NewMember(profile Profile, licence *Licence) (*Member, error) {
	if profile.Name == "" {
		return nil, ErrNameRequired
	}

	allowed := DefaultTrialSessions
	if licence != nil {
		allowed = 0
	}

	return &Member{
		ID:                   uuid.New(),
		Profile:              profile,
		Licence:              licence,
		AllowedTrialSessions: allowed,
		JoinDate:             time.Now().UTC(),
	}, nil
}

func (m *Member) HasLicence() bool {
	return m.Licence != nil
}

// LicenceExpired reports whether the member's licence has lapsed relative to
// the given day. A member without a licence is never expired.
func (m *Member) LicenceExpired(day time.Time) bool {
	return m.Licence != nil && m.Licence.Expires.Before(day)
}

// AttachLicence adds or replaces the member's licence. Past attendance is
// unaffected.
func (m *Member) AttachLicence(l Licence) {
	m.Licence = &l
}

// RemainingTrialSessions is the trial allowance left. It can read negative
// mid-way through an idempotent re-registration; the eligibility gate
// compensates for that.
func (m *Member) RemainingTrialSessions() int {
	return m.AllowedTrialSessions - m.sessionsAttended
}

func (m *Member) SessionsAttended() int {
	return m.sessionsAttended
}

// RestoreAttendanceCount sets the attendance counter from persisted state.
// The count is derived from live attendance rows and is loaded by the host
// before the engine runs.
func (m *Member) RestoreAttendanceCount(n int) {
	m.sessionsAttended = n
}

func (m *Member) IncrementAttendance() {
	m.sessionsAttended++
}

// DecrementAttendance reverses the counter by the number of attendance rows
// removed. Clearing zero rows is a no-op and the counter never goes negative.
func (m *Member) DecrementAttendance(count int) {
	m.sessionsAttended -= count
	if m.sessionsAttended < 0 {
		m.sessionsAttended = 0
	}
}

// Ledger returns the member's credit ledger.
func (m *Member) Ledger() *Ledger {
	return &m.ledger
}

// SignUp records the member's enrolment in a course.
func (m *Member) SignUp(courseID uuid.UUID) {
	for _, id := range m.courses {
		if id == courseID {
			return
		}
	}
	m.courses = append(m.courses, courseID)
}

func (m *Member) Courses() []uuid.UUID {
	return m.courses
}

func (m *Member) AddNote(n *Note) {
	m.notes = append([]*Note{n}, m.notes...)
}

// RecentNotes returns up to n notes, most recent first.
func (m *Member) RecentNotes(n int) []*Note {
	if n > len(m.notes) {
		n = len(m.notes)
	}
	return m.notes[:n]
}

func (m *Member) HasNotes() bool {
	return len(m.notes) > 0
}

// MemberState is the wire snapshot of the aggregate: what the membership
// service returns and what hosts feed back into FromState before invoking
// the attendance engine.
type MemberState struct {
	ID                   uuid.UUID       `json:"id"`
	Profile              Profile         `json:"profile"`
	Licence              *Licence        `json:"licence,omitempty"`
	AllowedTrialSessions int             `json:"allowed_trial_sessions"`
	SessionsAttended     int             `json:"sessions_attended"`
	JoinDate             time.Time       `json:"join_date"`
	Courses              []uuid.UUID     `json:"courses"`
	UnusedPayments       []*Payment      `json:"unused_payments"`
	UsedPayments         []*Payment      `json:"used_payments"`
	Subscriptions        []*Subscription `json:"subscriptions"`
	Version              int             `json:"version"`
}

// State snapshots the aggregate for transport.
func (m *Member) State() MemberState {
	return MemberState{
		ID:                   m.ID,
		Profile:              m.Profile,
		Licence:              m.Licence,
		AllowedTrialSessions: m.AllowedTrialSessions,
		SessionsAttended:     m.sessionsAttended,
		JoinDate:             m.JoinDate,
		Courses:              m.courses,
		UnusedPayments:       m.ledger.unused,
		UsedPayments:         m.ledger.used,
		Subscriptions:        m.ledger.subscriptions,
		Version:              m.Version,
	}
}

// FromState reconstitutes a member aggregate from a snapshot. Unused
// payments are expected newest-first, as State produces them.
func FromState(s MemberState) *Member {
	return &Member{
		ID:                   s.ID,
		Profile:              s.Profile,
		Licence:              s.Licence,
		AllowedTrialSessions: s.AllowedTrialSessions,
		JoinDate:             s.JoinDate,
		Version:              s.Version,
		courses:              s.Courses,
		sessionsAttended:     s.SessionsAttended,
		ledger: Ledger{
			unused:        s.UnusedPayments,
			used:          s.UsedPayments,
			subscriptions: s.Subscriptions,
		},
	}
}

// Event represents a domain event related to a member.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// MemberRegisteredEvent is published when a new member registers.
type MemberRegisteredEvent struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Licenced             bool      `json:"licenced"`
	AllowedTrialSessions int       `json:"allowed_trial_sessions"`
}

// LicenceAttachedEvent is published when a licence is added to a member.
type LicenceAttachedEvent struct {
	ID      uuid.UUID `json:"id"`
	Number  int       `json:"number"`
	Expires time.Time `json:"expires"`
}

// PaymentTakenEvent is published when a prepaid purchase is recorded.
type PaymentTakenEvent struct {
	ID        uuid.UUID  `json:"id"`
	PaymentID uuid.UUID  `json:"payment_id"`
	CourseID  *uuid.UUID `json:"course_id,omitempty"`
	At        time.Time  `json:"at"`
}

// PaymentUsedEvent is published when a payment is consumed by an attendance.
type PaymentUsedEvent struct {
	ID        uuid.UUID `json:"id"`
	PaymentID uuid.UUID `json:"payment_id"`
}

// PaymentRestoredEvent is published when a consumed payment is handed back,
// compensating a failed attendance resolution.
type PaymentRestoredEvent struct {
	ID        uuid.UUID `json:"id"`
	PaymentID uuid.UUID `json:"payment_id"`
}

// SubscriptionStartedEvent is published when a subscription is started.
type SubscriptionStartedEvent struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	CourseID       uuid.UUID `json:"course_id"`
	ExpiryDate     time.Time `json:"expiry_date"`
}

// CourseSignedUpEvent is published when a member signs up for a course.
type CourseSignedUpEvent struct {
	ID       uuid.UUID `json:"id"`
	CourseID uuid.UUID `json:"course_id"`
}

// NoteAddedEvent is published when a note is attached to a member.
type NoteAddedEvent struct {
	ID       uuid.UUID `json:"id"`
	NoteID   uuid.UUID `json:"note_id"`
	AuthorID uuid.UUID `json:"author_id"`
}

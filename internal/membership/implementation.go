// internal/membership/implementation.go
package membership

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clubroll/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"
)

// service implements the Service interface.
type service struct {
	eventStore  *eventstore.EventStore
	db          *sqlx.DB
	rateLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(es *eventstore.EventStore, db *sqlx.DB) Service {
	return &service{
		eventStore:  es,
		db:          db,
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 requests per minute
	}
}

type memberRow struct {
	ID                   uuid.UUID  `db:"id"`
	Name                 string     `db:"name"`
	DOB                  *time.Time `db:"dob"`
	Phone                *string    `db:"phone"`
	Email                *string    `db:"email"`
	Address              *string    `db:"address"`
	LicenceNumber        *int       `db:"licence_number"`
	LicenceExpires       *time.Time `db:"licence_expires"`
	AllowedTrialSessions int        `db:"allowed_trial_sessions"`
	JoinDate             time.Time  `db:"join_date"`
	Version              int        `db:"version"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

func (r memberRow) state() MemberState {
	s := MemberState{
		ID: r.ID,
		Profile: Profile{
			Name: r.Name,
			DOB:  r.DOB,
		},
		AllowedTrialSessions: r.AllowedTrialSessions,
		JoinDate:             r.JoinDate,
		Version:              r.Version,
	}
	if r.Phone != nil {
		s.Profile.Phone = *r.Phone
	}
	if r.Email != nil {
		s.Profile.Email = *r.Email
	}
	if r.Address != nil {
		s.Profile.Address = *r.Address
	}
	if r.LicenceNumber != nil && r.LicenceExpires != nil {
		s.Licence = &Licence{Number: *r.LicenceNumber, Expires: *r.LicenceExpires}
	}
	return s
}

// RegisterMember creates a new member with login credentials.
func (s *service) RegisterMember(ctx context.Context, profile Profile, licence *Licence, password string) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	member, err := NewMember(profile, licence)
	if err != nil {
		return nil, err
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	eventData := MemberRegisteredEvent{
		ID:                   member.ID,
		Name:                 profile.Name,
		Email:                profile.Email,
		Licenced:             licence != nil,
		AllowedTrialSessions: member.AllowedTrialSessions,
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   member.ID,
		AggregateType: "member",
		EventType:     "MemberRegistered",
		EventData:     jsonData,
		Version:       1,
	}

	if err := s.eventStore.AppendEvents(ctx, member.ID, "member", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	member.Version = 1
	if err := s.insertMemberIntoReadModel(ctx, member, passwordHash, salt); err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	return member, nil
}

func (s *service) insertMemberIntoReadModel(ctx context.Context, member *Member, passwordHash, salt string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var licenceNumber *int
	var licenceExpires *time.Time
	if member.Licence != nil {
		licenceNumber = &member.Licence.Number
		licenceExpires = &member.Licence.Expires
	}

	memberQuery := `
		INSERT INTO members (id, name, dob, phone, email, address, licence_number, licence_expires, allowed_trial_sessions, join_date, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, memberQuery, member.ID, member.Profile.Name, member.Profile.DOB,
		member.Profile.Phone, member.Profile.Email, member.Profile.Address,
		licenceNumber, licenceExpires, member.AllowedTrialSessions, member.JoinDate, member.Version)
	if err != nil {
		return err
	}

	credQuery := `
		INSERT INTO credentials (member_id, password_hash, salt)
		VALUES ($1, $2, $3)
	`
	_, err = tx.ExecContext(ctx, credQuery, member.ID, passwordHash, salt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Authenticate verifies a member's credentials and returns the member if successful.
func (s *service) Authenticate(ctx context.Context, email, password string) (*Member, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	var row memberRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, dob, phone, email, address, licence_number, licence_expires, allowed_trial_sessions, join_date, version, created_at, updated_at
		FROM members
		WHERE email = $1 AND status = 'active'
	`, email)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	var cred struct {
		PasswordHash string `db:"password_hash"`
		Salt         string `db:"salt"`
	}
	err = s.db.GetContext(ctx, &cred, `
		SELECT password_hash, salt
		FROM credentials
		WHERE member_id = $1
	`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(password, cred.Salt, cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("authentication failed: invalid credentials")
	}

	return FromState(row.state()), nil
}

// GetMember retrieves the full member aggregate: profile, licence, course
// signups, notes and the credit ledger, with unused payments newest-first.
func (s *service) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	var row memberRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, dob, phone, email, address, licence_number, licence_expires, allowed_trial_sessions, join_date, version, created_at, updated_at
		FROM members
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("member with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get member from read model: %w", err)
	}

	state := row.state()

	var payments []*Payment
	err = s.db.SelectContext(ctx, &payments, `
		SELECT id, datetime, used, course_id
		FROM payments
		WHERE member_id = $1
		ORDER BY datetime DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	for _, p := range payments {
		if p.Used {
			state.UsedPayments = append(state.UsedPayments, p)
		} else {
			state.UnusedPayments = append(state.UnusedPayments, p)
		}
	}

	err = s.db.SelectContext(ctx, &state.Subscriptions, `
		SELECT id, course_id, type, expiry_date
		FROM subscriptions
		WHERE member_id = $1
		ORDER BY expiry_date DESC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	err = s.db.SelectContext(ctx, &state.Courses, `
		SELECT course_id
		FROM member_courses
		WHERE member_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load course signups: %w", err)
	}

	member := FromState(state)

	var notes []*Note
	err = s.db.SelectContext(ctx, &notes, `
		SELECT id, author_id, text, datetime
		FROM notes
		WHERE member_id = $1
		ORDER BY datetime ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	for _, n := range notes {
		member.AddNote(n)
	}

	return member, nil
}

// AttachLicence adds or replaces a member's licence. Past attendance and the
// trial allowance granted at creation are unaffected.
func (s *service) AttachLicence(ctx context.Context, id uuid.UUID, licence Licence) error {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return err
	}

	eventData := LicenceAttachedEvent{ID: id, Number: licence.Number, Expires: licence.Expires}
	if err := s.appendMemberEvent(ctx, member, "LicenceAttached", eventData); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE members
		SET licence_number = $1, licence_expires = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
	`, licence.Number, licence.Expires, id, member.Version)
	return err
}

// SignUpForCourse enrols a member in a course.
func (s *service) SignUpForCourse(ctx context.Context, id, courseID uuid.UUID) error {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return err
	}

	eventData := CourseSignedUpEvent{ID: id, CourseID: courseID}
	if err := s.appendMemberEvent(ctx, member, "CourseSignedUp", eventData); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO member_courses (member_id, course_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, id, courseID); err != nil {
		return err
	}
	if err := s.bumpVersion(ctx, tx, id, member.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// AddNote attaches a note to the member's record.
func (s *service) AddNote(ctx context.Context, id, authorID uuid.UUID, text string) (*Note, error) {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	note := &Note{ID: uuid.New(), AuthorID: authorID, Text: text, At: time.Now().UTC()}

	eventData := NoteAddedEvent{ID: id, NoteID: note.ID, AuthorID: authorID}
	if err := s.appendMemberEvent(ctx, member, "NoteAdded", eventData); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, member_id, author_id, text, datetime)
		VALUES ($1, $2, $3, $4, $5)
	`, note.ID, id, note.AuthorID, note.Text, note.At); err != nil {
		return nil, err
	}
	if err := s.bumpVersion(ctx, tx, id, member.Version); err != nil {
		return nil, err
	}
	return note, tx.Commit()
}

// RecordPayment stores a prepaid purchase credit, optionally scoped to a
// course. A nil course makes the payment a wildcard.
func (s *service) RecordPayment(ctx context.Context, id uuid.UUID, courseID *uuid.UUID, at time.Time) (*Payment, error) {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}
	payment := &Payment{ID: uuid.New(), At: at, CourseID: courseID}

	eventData := PaymentTakenEvent{ID: id, PaymentID: payment.ID, CourseID: courseID, At: at}
	if err := s.appendMemberEvent(ctx, member, "PaymentTaken", eventData); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, member_id, course_id, datetime, used)
		VALUES ($1, $2, $3, $4, FALSE)
	`, payment.ID, id, courseID, at); err != nil {
		return nil, err
	}
	if err := s.bumpVersion(ctx, tx, id, member.Version); err != nil {
		return nil, err
	}
	return payment, tx.Commit()
}

// MarkPaymentUsed consumes a stored payment. It fails if the payment does
// not exist, belongs to another member, or was already consumed.
func (s *service) MarkPaymentUsed(ctx context.Context, id, paymentID uuid.UUID) error {
	return s.setPaymentUsed(ctx, id, paymentID, true)
}

// MarkPaymentUnused hands a consumed payment back. Callers use it to
// compensate a resolution that failed after the consume step.
func (s *service) MarkPaymentUnused(ctx context.Context, id, paymentID uuid.UUID) error {
	return s.setPaymentUsed(ctx, id, paymentID, false)
}

func (s *service) setPaymentUsed(ctx context.Context, id, paymentID uuid.UUID, used bool) error {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return err
	}

	eventType := "PaymentUsed"
	var eventData interface{} = PaymentUsedEvent{ID: id, PaymentID: paymentID}
	if !used {
		eventType = "PaymentRestored"
		eventData = PaymentRestoredEvent{ID: id, PaymentID: paymentID}
	}
	if err := s.appendMemberEvent(ctx, member, eventType, eventData); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET used = $1
		WHERE id = $2 AND member_id = $3 AND used = $4
	`, used, paymentID, id, !used)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("payment %s not in expected state for member %s", paymentID, id)
	}
	if err := s.bumpVersion(ctx, tx, id, member.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// StartSubscription begins a time-type subscription for a course.
func (s *service) StartSubscription(ctx context.Context, id, courseID uuid.UUID, expiry time.Time) (*Subscription, error) {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{ID: uuid.New(), CourseID: courseID, Type: SubscriptionTypeTime, ExpiryDate: expiry}

	eventData := SubscriptionStartedEvent{ID: id, SubscriptionID: sub.ID, CourseID: courseID, ExpiryDate: expiry}
	if err := s.appendMemberEvent(ctx, member, "SubscriptionStarted", eventData); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (id, member_id, course_id, type, expiry_date)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, id, sub.CourseID, sub.Type, sub.ExpiryDate); err != nil {
		return nil, err
	}
	if err := s.bumpVersion(ctx, tx, id, member.Version); err != nil {
		return nil, err
	}
	return sub, tx.Commit()
}

func (s *service) appendMemberEvent(ctx context.Context, member *Member, eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   member.ID,
		AggregateType: "member",
		EventType:     eventType,
		EventData:     jsonData,
		Version:       member.Version + 1,
	}

	if err := s.eventStore.AppendEvents(ctx, member.ID, "member", member.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *service) bumpVersion(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, fromVersion int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE members
		SET version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`, id, fromVersion)
	return err
}

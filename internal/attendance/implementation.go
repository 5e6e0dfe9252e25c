// internal/attendance/implementation.go
package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"clubroll/internal/courses"
	"clubroll/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// attendanceHistoryDays bounds the member attendance listing to a trailing
// year, matching the window the profile screen renders.
const attendanceHistoryDays = 365

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sqlx.DB
	members    MemberDirectory
	courses    CourseDirectory
}

// NewService creates a new attendance service instance.
func NewService(es *eventstore.EventStore, db *sqlx.DB, members MemberDirectory, coursesDir CourseDirectory) Service {
	return &service{
		eventStore: es,
		db:         db,
		members:    members,
		courses:    coursesDir,
	}
}

// RegisterAttendance orchestrates the register saga: load the member with
// its live attendance count, run the engine, then persist the supersede and
// the new row in one transaction.
func (s *service) RegisterAttendance(ctx context.Context, memberID, courseID uuid.UUID, date time.Time) (*Attendance, error) {
	day := courses.Day(date)

	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if _, err := s.courses.GetCourse(ctx, courseID); err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	count, err := s.liveAttendanceCount(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance: %w", err)
	}
	member.RestoreAttendanceCount(count)

	existing, err := s.getAttendanceForSlot(ctx, memberID, courseID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to look up slot: %w", err)
	}

	attendance, err := Register(member, courseID, day, existing)
	if err != nil {
		return nil, err
	}

	eventData := AttendanceRegisteredEvent{
		AttendanceID: attendance.ID,
		MemberID:     memberID,
		CourseID:     courseID,
		Date:         day,
		Superseded:   existing != nil,
	}
	if err := s.appendAttendanceEvent(ctx, attendance.ID, "AttendanceRegistered", 0, eventData); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if existing != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE id = $1`, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to supersede attendance: %w", err)
		}
	}

	query := `
		INSERT INTO attendances (id, member_id, course_id, date, resolution, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		attendance.ID, attendance.MemberID, attendance.CourseID, attendance.Date,
		attendance.Resolution, attendance.CreatedAt, attendance.UpdatedAt, attendance.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to insert attendance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return attendance, nil
}

// ClearAttendance deletes every row matching the slot. The member's counter
// is derived from live rows, so the deletion itself is the reversal.
func (s *service) ClearAttendance(ctx context.Context, memberID, courseID uuid.UUID, date time.Time) error {
	day := courses.Day(date)

	existing, err := s.getAttendanceForSlot(ctx, memberID, courseID, day)
	if err != nil {
		return fmt.Errorf("failed to look up slot: %w", err)
	}
	if existing == nil {
		return nil
	}

	eventData := AttendanceClearedEvent{
		AttendanceID: existing.ID,
		MemberID:     memberID,
		CourseID:     courseID,
		Date:         day,
	}
	if err := s.appendAttendanceEvent(ctx, existing.ID, "AttendanceCleared", existing.Version, eventData); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM attendances WHERE member_id = $1 AND course_id = $2 AND date = $3`,
		memberID, courseID, day)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	return nil
}

// ResolvePayment settles an attendance to paid via one of the three methods.
func (s *service) ResolvePayment(ctx context.Context, attendanceID uuid.UUID, method PaymentMethod) (*Attendance, error) {
	attendance, err := s.getAttendance(ctx, attendanceID)
	if err != nil {
		return nil, err
	}

	member, err := s.members.GetMember(ctx, attendance.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	var paymentID *uuid.UUID
	useSubscription := false

	switch method {
	case PaySubscription:
		useSubscription = true
		if _, err := Pay(member, attendance, true); err != nil {
			return nil, err
		}

	case PayNow:
		// New money goes through the same resolution path as stored
		// credit: record the payment first, then consume it.
		payment, err := s.members.RecordPayment(ctx, member.ID, &attendance.CourseID, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to record payment: %w", err)
		}
		member.Ledger().TakePayment(payment)
		fallthrough

	case PayPrepaid:
		payment, err := Pay(member, attendance, false)
		if err != nil {
			return nil, err
		}
		if err := s.members.MarkPaymentUsed(ctx, member.ID, payment.ID); err != nil {
			return nil, fmt.Errorf("failed to mark payment used: %w", err)
		}
		paymentID = &payment.ID

	default:
		return nil, fmt.Errorf("unknown payment method %q", method)
	}

	// Compensation: if persisting the resolution fails after the payment
	// has been consumed, restore the credit.
	compensation := func() {
		if paymentID == nil {
			return
		}
		log.Printf("Compensating for failed resolution: restoring payment %s for member %s", *paymentID, member.ID)
		if err := s.members.MarkPaymentUnused(ctx, member.ID, *paymentID); err != nil {
			log.Printf("Failed to restore payment %s: %v", *paymentID, err)
		}
	}

	eventData := AttendanceResolvedEvent{
		AttendanceID: attendance.ID,
		Resolution:   attendance.Resolution,
		PaymentID:    paymentID,
		Subscription: useSubscription,
	}
	if err := s.appendAttendanceEvent(ctx, attendance.ID, "AttendanceResolved", attendance.Version, eventData); err != nil {
		compensation()
		return nil, err
	}

	if err := s.updateResolution(ctx, attendance); err != nil {
		compensation()
		return nil, err
	}

	return attendance, nil
}

// MarkAttendanceComplementary settles an attendance as free of charge. No
// eligibility or credit checks apply.
func (s *service) MarkAttendanceComplementary(ctx context.Context, attendanceID uuid.UUID) (*Attendance, error) {
	attendance, err := s.getAttendance(ctx, attendanceID)
	if err != nil {
		return nil, err
	}

	MarkComplementary(attendance)

	eventData := AttendanceResolvedEvent{
		AttendanceID: attendance.ID,
		Resolution:   attendance.Resolution,
	}
	if err := s.appendAttendanceEvent(ctx, attendance.ID, "AttendanceResolved", attendance.Version, eventData); err != nil {
		return nil, err
	}

	if err := s.updateResolution(ctx, attendance); err != nil {
		return nil, err
	}

	return attendance, nil
}

func (s *service) ListMemberAttendance(ctx context.Context, memberID uuid.UUID) ([]*Attendance, error) {
	since := courses.Day(time.Now().UTC()).AddDate(0, 0, -attendanceHistoryDays)

	var rows []*Attendance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, member_id, course_id, date, resolution, created_at, updated_at, version
		FROM attendances
		WHERE member_id = $1 AND date >= $2
		ORDER BY date DESC
	`, memberID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return rows, nil
}

func (s *service) ListSessionAttendance(ctx context.Context, courseID uuid.UUID, date time.Time) ([]*Attendance, error) {
	var rows []*Attendance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, member_id, course_id, date, resolution, created_at, updated_at, version
		FROM attendances
		WHERE course_id = $1 AND date = $2
		ORDER BY created_at
	`, courseID, courses.Day(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list session attendance: %w", err)
	}
	return rows, nil
}

func (s *service) getAttendance(ctx context.Context, id uuid.UUID) (*Attendance, error) {
	var a Attendance
	err := s.db.GetContext(ctx, &a, `
		SELECT id, member_id, course_id, date, resolution, created_at, updated_at, version
		FROM attendances
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttendanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &a, nil
}

func (s *service) getAttendanceForSlot(ctx context.Context, memberID, courseID uuid.UUID, day time.Time) (*Attendance, error) {
	var a Attendance
	err := s.db.GetContext(ctx, &a, `
		SELECT id, member_id, course_id, date, resolution, created_at, updated_at, version
		FROM attendances
		WHERE member_id = $1 AND course_id = $2 AND date = $3
	`, memberID, courseID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *service) liveAttendanceCount(ctx context.Context, memberID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM attendances WHERE member_id = $1`, memberID)
	return count, err
}

func (s *service) updateResolution(ctx context.Context, a *Attendance) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attendances
		SET resolution = $1, updated_at = $2, version = version + 1
		WHERE id = $3 AND version = $4
	`, a.Resolution, a.UpdatedAt, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return eventstore.ErrConcurrencyConflict
	}
	a.Version++
	return nil
}

func (s *service) appendAttendanceEvent(ctx context.Context, aggregateID uuid.UUID, eventType string, expectedVersion int, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   aggregateID,
		AggregateType: "attendance",
		EventType:     eventType,
		EventData:     jsonData,
		Version:       expectedVersion + 1,
	}

	if err := s.eventStore.AppendEvents(ctx, aggregateID, "attendance", expectedVersion, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

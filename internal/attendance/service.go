// internal/attendance/service.go
package attendance

import (
	"context"
	"time"

	"clubroll/internal/courses"
	"clubroll/internal/membership"

	"github.com/google/uuid"
)

// PaymentMethod selects how a registration gets resolved to paid.
type PaymentMethod string

const (
	// PayNow records a fresh payment for the course and immediately
	// consumes it, so new money and stored credit share one path.
	PayNow PaymentMethod = "now"
	// PayPrepaid consumes the newest stored payment matching the course.
	PayPrepaid PaymentMethod = "prepaid"
	// PaySubscription resolves against an active subscription without
	// consuming anything.
	PaySubscription PaymentMethod = "subscription"
)

// MemberDirectory is the slice of the membership service this context needs.
type MemberDirectory interface {
	GetMember(ctx context.Context, id uuid.UUID) (*membership.Member, error)
	RecordPayment(ctx context.Context, memberID uuid.UUID, courseID *uuid.UUID, at time.Time) (*membership.Payment, error)
	MarkPaymentUsed(ctx context.Context, memberID, paymentID uuid.UUID) error
	MarkPaymentUnused(ctx context.Context, memberID, paymentID uuid.UUID) error
}

// CourseDirectory is the slice of the courses service this context needs.
type CourseDirectory interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*courses.Course, error)
}

// Service defines the interface for the attendance service.
type Service interface {
	RegisterAttendance(ctx context.Context, memberID, courseID uuid.UUID, date time.Time) (*Attendance, error)
	ClearAttendance(ctx context.Context, memberID, courseID uuid.UUID, date time.Time) error
	ResolvePayment(ctx context.Context, attendanceID uuid.UUID, method PaymentMethod) (*Attendance, error)
	MarkAttendanceComplementary(ctx context.Context, attendanceID uuid.UUID) (*Attendance, error)
	ListMemberAttendance(ctx context.Context, memberID uuid.UUID) ([]*Attendance, error)
	ListSessionAttendance(ctx context.Context, courseID uuid.UUID, date time.Time) ([]*Attendance, error)
}

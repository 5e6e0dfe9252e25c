// internal/membership/service.go
package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the membership service.
type Service interface {
	RegisterMember(ctx context.Context, profile Profile, licence *Licence, password string) (*Member, error)
	Authenticate(ctx context.Context, email, password string) (*Member, error)
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	AttachLicence(ctx context.Context, id uuid.UUID, licence Licence) error
	SignUpForCourse(ctx context.Context, id, courseID uuid.UUID) error
	AddNote(ctx context.Context, id, authorID uuid.UUID, text string) (*Note, error)
	RecordPayment(ctx context.Context, id uuid.UUID, courseID *uuid.UUID, at time.Time) (*Payment, error)
	MarkPaymentUsed(ctx context.Context, id, paymentID uuid.UUID) error
	MarkPaymentUnused(ctx context.Context, id, paymentID uuid.UUID) error
	StartSubscription(ctx context.Context, id, courseID uuid.UUID, expiry time.Time) (*Subscription, error)
}

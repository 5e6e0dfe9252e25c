// internal/courses/service.go
package courses

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the course catalog service.
type Service interface {
	AddCourse(ctx context.Context, label string, weekdays []time.Weekday, dates []time.Time) (*Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*Course, error)
	ListCourses(ctx context.Context) ([]*Course, error)
	RemoveCourse(ctx context.Context, id uuid.UUID) error
}

// internal/courses/implementation.go
package courses

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clubroll/pkg/eventstore"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const dateLayout = "2006-01-02"

// service implements the Service interface.
type service struct {
	eventStore *eventstore.EventStore
	db         *sql.DB
}

// NewService creates a new course catalog service instance.
func NewService(es *eventstore.EventStore, db *sql.DB) Service {
	return &service{
		eventStore: es,
		db:         db,
	}
}

// AddCourse creates a new course in the catalog.
func (s *service) AddCourse(ctx context.Context, label string, weekdays []time.Weekday, dates []time.Time) (*Course, error) {
	id := uuid.New()
	eventData := CourseAddedEvent{
		ID:       id,
		Label:    label,
		Weekdays: weekdays,
		Dates:    dates,
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "course",
		EventType:     "CourseAdded",
		EventData:     jsonData,
		Version:       1,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "course", 0, []eventstore.Event{event}); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	course := &Course{
		ID:       id,
		Label:    label,
		Weekdays: weekdays,
		Dates:    dates,
		Version:  1,
	}
	if err := s.insertCourseIntoReadModel(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to update read model: %w", err)
	}

	return course, nil
}

func (s *service) insertCourseIntoReadModel(ctx context.Context, course *Course) error {
	query := `
		INSERT INTO courses (id, label, weekdays, dates, status, version)
		VALUES ($1, $2, $3, $4, 'active', $5)
	`
	_, err := s.db.ExecContext(ctx, query, course.ID, course.Label,
		pq.Array(weekdaysToInts(course.Weekdays)), pq.Array(datesToStrings(course.Dates)), course.Version)
	return err
}

// GetCourse retrieves a course from the catalog by its ID.
func (s *service) GetCourse(ctx context.Context, id uuid.UUID) (*Course, error) {
	query := `
		SELECT id, label, weekdays, dates, version, created_at, updated_at
		FROM courses
		WHERE id = $1 AND status = 'active'
	`
	course := &Course{}
	var weekdays pq.Int64Array
	var dates pq.StringArray
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Label,
		&weekdays,
		&dates,
		&course.Version,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("course with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get course from read model: %w", err)
	}

	course.Weekdays = intsToWeekdays(weekdays)
	course.Dates, err = stringsToDates(dates)
	if err != nil {
		return nil, fmt.Errorf("failed to decode course dates: %w", err)
	}

	return course, nil
}

// ListCourses returns every active course in the catalog.
func (s *service) ListCourses(ctx context.Context) ([]*Course, error) {
	query := `
		SELECT id, label, weekdays, dates, version, created_at, updated_at
		FROM courses
		WHERE status = 'active'
		ORDER BY label ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var out []*Course
	for rows.Next() {
		course := &Course{}
		var weekdays pq.Int64Array
		var dates pq.StringArray
		if err := rows.Scan(&course.ID, &course.Label, &weekdays, &dates,
			&course.Version, &course.CreatedAt, &course.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		course.Weekdays = intsToWeekdays(weekdays)
		course.Dates, err = stringsToDates(dates)
		if err != nil {
			return nil, fmt.Errorf("failed to decode course dates: %w", err)
		}
		out = append(out, course)
	}

	return out, rows.Err()
}

// RemoveCourse marks a course as retired.
func (s *service) RemoveCourse(ctx context.Context, id uuid.UUID) error {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return err
	}

	eventData := CourseRemovedEvent{ID: id}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := eventstore.Event{
		AggregateID:   id,
		AggregateType: "course",
		EventType:     "CourseRemoved",
		EventData:     jsonData,
		Version:       course.Version + 1,
	}

	if err := s.eventStore.AppendEvents(ctx, id, "course", course.Version, []eventstore.Event{event}); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	query := `
		UPDATE courses
		SET status = 'retired', version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	_, err = s.db.ExecContext(ctx, query, id, course.Version)
	return err
}

func weekdaysToInts(ws []time.Weekday) []int64 {
	out := make([]int64, len(ws))
	for i, w := range ws {
		out[i] = int64(w)
	}
	return out
}

func intsToWeekdays(ns []int64) []time.Weekday {
	out := make([]time.Weekday, len(ns))
	for i, n := range ns {
		out[i] = time.Weekday(n)
	}
	return out
}

func datesToStrings(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = Day(d).Format(dateLayout)
	}
	return out
}

func stringsToDates(ss []string) ([]time.Time, error) {
	out := make([]time.Time, len(ss))
	for i, s := range ss {
		d, err := time.ParseInLocation(dateLayout, s, time.UTC)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// internal/clients/courses_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clubroll/internal/courses"

	"github.com/google/uuid"
)

// CoursesClient calls the courses service. It satisfies the attendance
// context's CourseDirectory.
type CoursesClient struct {
	baseClient
}

func NewCoursesClient(baseURL, token string) *CoursesClient {
	return &CoursesClient{baseClient: newBaseClient("courses", baseURL, token)}
}

func (c *CoursesClient) GetCourse(ctx context.Context, id uuid.UUID) (*courses.Course, error) {
	var view struct {
		ID       uuid.UUID      `json:"id"`
		Label    string         `json:"label"`
		Weekdays []time.Weekday `json:"weekdays"`
		Dates    []string       `json:"dates"`
	}
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/courses/%s", id), nil, &view)
	if err != nil {
		return nil, err
	}

	course := &courses.Course{
		ID:       view.ID,
		Label:    view.Label,
		Weekdays: view.Weekdays,
	}
	for _, d := range view.Dates {
		date, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session date %q: %w", d, err)
		}
		course.Dates = append(course.Dates, date)
	}
	return course, nil
}

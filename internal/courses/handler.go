// internal/courses/handler.go
package courses

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the catalog endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/courses", h.HandleAddCourse)
	r.Get("/courses", h.HandleListCourses)
	r.Get("/courses/{id}", h.HandleGetCourse)
	r.Delete("/courses/{id}", h.HandleRemoveCourse)
	r.Get("/courses/{id}/next-session", h.HandleNextSession)
}

type courseView struct {
	ID              uuid.UUID      `json:"id"`
	Label           string         `json:"label"`
	Weekdays        []time.Weekday `json:"weekdays"`
	Dates           []string       `json:"dates"`
	NextSessionDate string         `json:"next_session_date"`
}

func viewOf(c *Course) courseView {
	v := courseView{
		ID:       c.ID,
		Label:    c.Label,
		Weekdays: c.Weekdays,
		Dates:    datesToStrings(c.Dates),
		// The admin UI renders this verbatim for dead schedules.
		NextSessionDate: "Unknown",
	}
	if next, err := NextSession(time.Now().UTC(), c); err == nil {
		v.NextSessionDate = next.Date.Format(dateLayout)
	}
	return v
}

func (h *Handler) HandleAddCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label    string         `json:"label"`
		Weekdays []time.Weekday `json:"weekdays"`
		Dates    []string       `json:"dates"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dates, err := stringsToDates(req.Dates)
	if err != nil {
		http.Error(w, "dates must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	course, err := h.service.AddCourse(r.Context(), req.Label, req.Weekdays, dates)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(viewOf(course))
}

func (h *Handler) HandleListCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCourses(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]courseView, 0, len(list))
	for _, c := range list {
		views = append(views, viewOf(c))
	}
	json.NewEncoder(w).Encode(views)
}

func (h *Handler) HandleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid course ID", http.StatusBadRequest)
		return
	}

	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(viewOf(course))
}

func (h *Handler) HandleRemoveCourse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid course ID", http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveCourse(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleNextSession resolves the next occurrence of a course on or after the
// optional "from" query date (defaulting to today).
func (h *Handler) HandleNextSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid course ID", http.StatusBadRequest)
		return
	}

	from := time.Now().UTC()
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	next, err := NextSession(from, course)
	if errors.Is(err, ErrNoFutureSession) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{
		"course_id":         id.String(),
		"next_session_date": next.Date.Format(dateLayout),
	})
}

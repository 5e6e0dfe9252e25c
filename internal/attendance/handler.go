// internal/attendance/handler.go
package attendance

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Handler holds the dependencies for the attendance HTTP handlers.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/attendance", h.HandleRegisterAttendance)
	r.Delete("/attendance", h.HandleClearAttendance)
	r.Post("/attendance/{id}/pay", h.HandleResolvePayment)
	r.Post("/attendance/{id}/complementary", h.HandleMarkComplementary)
	r.Get("/members/{memberID}/attendance", h.HandleListMemberAttendance)
	r.Get("/courses/{courseID}/attendance", h.HandleListSessionAttendance)
}

type slotRequest struct {
	MemberID uuid.UUID `json:"member_id"`
	CourseID uuid.UUID `json:"course_id"`
	Date     string    `json:"date"`
}

func (req *slotRequest) date() (time.Time, error) {
	return time.Parse(dateLayout, req.Date)
}

func (h *Handler) HandleRegisterAttendance(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	day, err := req.date()
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	attendance, err := h.service.RegisterAttendance(r.Context(), req.MemberID, req.CourseID, day)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(attendance)
}

func (h *Handler) HandleClearAttendance(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	day, err := req.date()
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := h.service.ClearAttendance(r.Context(), req.MemberID, req.CourseID, day); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleResolvePayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid attendance ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Method PaymentMethod `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Method {
	case PayNow, PayPrepaid, PaySubscription:
	default:
		http.Error(w, "method must be one of now, prepaid, subscription", http.StatusBadRequest)
		return
	}

	attendance, err := h.service.ResolvePayment(r.Context(), id, req.Method)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	json.NewEncoder(w).Encode(attendance)
}

func (h *Handler) HandleMarkComplementary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid attendance ID", http.StatusBadRequest)
		return
	}

	attendance, err := h.service.MarkAttendanceComplementary(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	json.NewEncoder(w).Encode(attendance)
}

func (h *Handler) HandleListMemberAttendance(w http.ResponseWriter, r *http.Request) {
	memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	rows, err := h.service.ListMemberAttendance(r.Context(), memberID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(rows)
}

func (h *Handler) HandleListSessionAttendance(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		http.Error(w, "invalid course ID", http.StatusBadRequest)
		return
	}
	day, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	rows, err := h.service.ListSessionAttendance(r.Context(), courseID, day)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(rows)
}

// statusFor maps domain rejections to 422 and lookup misses to 404; anything
// else is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAttendanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExpiredLicence),
		errors.Is(err, ErrNoRemainingTrialSessions),
		errors.Is(err, ErrNoPaymentFound),
		errors.Is(err, ErrInvalidResolution):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

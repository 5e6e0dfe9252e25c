// internal/membership/handler.go
package membership

import (
	"encoding/json"
	"net/http"
	"time"

	"clubroll/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const tokenTTL = 12 * time.Hour

type Handler struct {
	service   Service
	jwtSecret []byte
}

func NewHandler(service Service, jwtSecret []byte) *Handler {
	return &Handler{service: service, jwtSecret: jwtSecret}
}

// Routes mounts the open endpoints (register, login) on open and the
// authenticated member endpoints on protected.
func (h *Handler) Routes(open, protected chi.Router) {
	open.Post("/members", h.HandleRegisterMember)
	open.Post("/login", h.HandleLogin)

	protected.Get("/members/{id}", h.HandleGetMember)
	protected.Post("/members/{id}/licence", h.HandleAttachLicence)
	protected.Post("/members/{id}/courses", h.HandleSignUpForCourse)
	protected.Post("/members/{id}/notes", h.HandleAddNote)
	protected.Post("/members/{id}/payments", h.HandleRecordPayment)
	protected.Get("/members/{id}/payments", h.HandleListUnusedPayments)
	protected.Post("/members/{id}/payments/{paymentID}/use", h.HandleMarkPaymentUsed)
	protected.Post("/members/{id}/payments/{paymentID}/restore", h.HandleMarkPaymentUnused)
	protected.Post("/members/{id}/subscriptions", h.HandleStartSubscription)
}

func (h *Handler) HandleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile  Profile  `json:"profile"`
		Licence  *Licence `json:"licence,omitempty"`
		Password string   `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	member, err := h.service.RegisterMember(r.Context(), req.Profile, req.Licence, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(member.State())
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	member, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	token, err := auth.IssueToken(h.jwtSecret, member.ID, true, tokenTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":  token,
		"member": member.State(),
	})
}

func (h *Handler) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	json.NewEncoder(w).Encode(member.State())
}

func (h *Handler) HandleAttachLicence(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var licence Licence
	if err := json.NewDecoder(r.Body).Decode(&licence); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.AttachLicence(r.Context(), id, licence); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleSignUpForCourse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var req struct {
		CourseID uuid.UUID `json:"course_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.SignUpForCourse(r.Context(), id, req.CourseID); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var authorID uuid.UUID
	if claims, ok := auth.ClaimsFrom(r.Context()); ok {
		authorID = claims.MemberID
	}

	note, err := h.service.AddNote(r.Context(), id, authorID, req.Text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(note)
}

func (h *Handler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var req struct {
		CourseID *uuid.UUID `json:"course_id,omitempty"`
		At       time.Time  `json:"at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), id, req.CourseID, req.At)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(payment)
}

// HandleListUnusedPayments returns the member's spendable credits,
// newest first, optionally filtered to one course.
func (h *Handler) HandleListUnusedPayments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var courseID *uuid.UUID
	if raw := r.URL.Query().Get("course_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid course ID", http.StatusBadRequest)
			return
		}
		courseID = &parsed
	}

	member, err := h.service.GetMember(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	payments := member.Ledger().UnusedPayments(courseID)
	if payments == nil {
		payments = []*Payment{}
	}
	json.NewEncoder(w).Encode(payments)
}

func (h *Handler) HandleMarkPaymentUsed(w http.ResponseWriter, r *http.Request) {
	h.setPaymentUsed(w, r, true)
}

func (h *Handler) HandleMarkPaymentUnused(w http.ResponseWriter, r *http.Request) {
	h.setPaymentUsed(w, r, false)
}

func (h *Handler) setPaymentUsed(w http.ResponseWriter, r *http.Request, used bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		http.Error(w, "invalid payment ID", http.StatusBadRequest)
		return
	}

	if used {
		err = h.service.MarkPaymentUsed(r.Context(), id, paymentID)
	} else {
		err = h.service.MarkPaymentUnused(r.Context(), id, paymentID)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleStartSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid member ID", http.StatusBadRequest)
		return
	}

	var req struct {
		CourseID   uuid.UUID `json:"course_id"`
		ExpiryDate time.Time `json:"expiry_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sub, err := h.service.StartSubscription(r.Context(), id, req.CourseID, req.ExpiryDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sub)
}

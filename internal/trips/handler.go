package trips

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/apperrors"
	"freight-service/pkg/jwt"
)

// Handler exposes trip HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the trip service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all trip routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	r.Get("/current", h.Current)
	r.Get("/{id}", h.GetByID)
	r.Patch("/{id}/start", h.Start)
	r.Patch("/{id}/complete", h.Complete)

	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireRole(jwt.RoleAdmin))
		r.Post("/assign", h.Assign)
	})

	return r
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	trip, err := h.svc.Assign(r.Context(), req)
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Current returns the authenticated driver's non-terminal trip.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	t, err := h.svc.CurrentForDriver(r.Context(), claims.UserID)
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	if t == nil {
		writeJSON(w, http.StatusOK, map[string]any{"trip": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trip": t})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	if !h.ownedByCaller(w, r) {
		return
	}
	t, err := h.svc.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	if !h.ownedByCaller(w, r) {
		return
	}
	var req CompleteRequest
	// body is optional
	json.NewDecoder(r.Body).Decode(&req)

	t, err := h.svc.Complete(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if errors.Is(err, apperrors.ErrAlreadyCompleted) {
		writeJSON(w, http.StatusOK, map[string]any{"trip": t, "status": "already_completed"})
		return
	}
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{
			"error":     err.Error(),
			"retryable": boolString(apperrors.Retryable(err)),
		})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ownedByCaller rejects lifecycle actions on another driver's trip.
// Admins may act on any trip.
func (h *Handler) ownedByCaller(w http.ResponseWriter, r *http.Request) bool {
	token := jwt.GetClaims(r.Context())
	if token.Role == jwt.RoleAdmin {
		return true
	}
	t, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return false
	}
	if t.DriverID != token.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "trip belongs to another driver"})
		return false
	}
	return true
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package claims

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/apperrors"
	"freight-service/pkg/jwt"
)

// Handler exposes claim HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the claim service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all claim routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)

	// Driver side
	r.Get("/mine", h.ListMine)
	r.Patch("/{id}/accept", h.Accept)
	r.Patch("/{id}/dispute", h.Dispute)

	// Admin side
	r.Group(func(r chi.Router) {
		r.Use(jwt.RequireRole(jwt.RoleAdmin))
		r.Get("/pending", h.ListPending)
		r.Patch("/{id}/approve", h.Approve)
		r.Patch("/{id}/reject", h.Reject)
	})

	return r
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	list, err := h.svc.ListByDriver(r.Context(), claims.UserID)
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}

	// The dashboard splits the live generated claim from history.
	var active, history []Claim
	for _, c := range list {
		if c.ValidationStatus == StatusGenerated {
			active = append(active, c)
		} else {
			history = append(history, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"active": active, "history": history})
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListPendingReview(r.Context())
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"claims": list})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	if !h.ownedByCaller(w, r) {
		return
	}
	c, err := h.svc.Accept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	if !h.ownedByCaller(w, r) {
		return
	}
	var draft DisputeDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	c, err := h.svc.Dispute(r.Context(), chi.URLParam(r, "id"), draft)
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ownedByCaller rejects driver actions on another driver's claim.
func (h *Handler) ownedByCaller(w http.ResponseWriter, r *http.Request) bool {
	token := jwt.GetClaims(r.Context())
	c, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return false
	}
	if c.DriverID != token.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "claim belongs to another driver"})
		return false
	}
	return true
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	// body is optional; confirmed defaults to false
	json.NewDecoder(r.Body).Decode(&req)

	c, err := h.svc.Approve(r.Context(), chi.URLParam(r, "id"), req.Confirmed)
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{
			"error":     err.Error(),
			"retryable": boolString(apperrors.Retryable(err)),
		})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, c)
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

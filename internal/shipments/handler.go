package shipments

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/apperrors"
	"freight-service/pkg/jwt"
)

// Handler exposes shipment HTTP endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the shipments service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all shipment routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Use(jwt.RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse))

	r.Post("/", h.Create)
	r.Get("/pending", h.ListPending)
	r.Post("/consolidate", h.Consolidate)

	return r
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims := jwt.GetClaims(r.Context())
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	created, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.ListPending(r.Context())
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests, "count": len(requests)})
}

func (h *Handler) Consolidate(w http.ResponseWriter, r *http.Request) {
	var req ConsolidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	c, err := h.svc.Consolidate(r.Context(), req)
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

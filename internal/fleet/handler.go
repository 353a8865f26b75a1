package fleet

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/apperrors"
	"freight-service/pkg/jwt"
)

// Handler exposes fleet reporting endpoints.
type Handler struct{ svc *Service }

// NewHandler wires a handler to the fleet service.
func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all fleet routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(jwt.RequireAuth)
	r.Use(jwt.RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse))

	r.Get("/idle", h.IdleVehicles)
	r.Get("/emissions", h.Emissions)
	r.Get("/stats/{driverID}", h.DriverStats)

	return r
}

func (h *Handler) IdleVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.svc.IdleVehicles(r.Context())
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles, "count": len(vehicles)})
}

func (h *Handler) Emissions(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Emissions(r.Context())
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) DriverStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.StatsForDriver(r.Context(), chi.URLParam(r, "driverID"))
	if err != nil {
		writeJSON(w, apperrors.Status(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

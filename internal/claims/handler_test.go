package claims

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"freight-service/pkg/jwt"
)

func newTestRouter(t *testing.T, svc *Service) http.Handler {
	t.Helper()
	if err := jwt.Init("claims-handler-test-secret"); err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	r.Use(jwt.OptionalAuth)
	r.Mount("/claims", NewHandler(svc).Routes())
	return r
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := jwt.Generate(userID, userID+"@freight.example", role)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func TestAcceptRejectsForeignDriver(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusGenerated, 0) // owned by driver-1
	router := newTestRouter(t, NewService(store, nil, nil))

	req := httptest.NewRequest(http.MethodPatch, "/claims/claim-1/accept", nil)
	req.Header.Set("Authorization", bearer(t, "driver-2", jwt.RoleDriver))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	c, _ := store.GetByID(context.Background(), "claim-1")
	if c.ValidationStatus != StatusGenerated {
		t.Errorf("claim mutated by a foreign driver: status = %s", c.ValidationStatus)
	}
}

func TestAcceptAllowsOwner(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusGenerated, 0)
	router := newTestRouter(t, NewService(store, nil, nil))

	req := httptest.NewRequest(http.MethodPatch, "/claims/claim-1/accept", nil)
	req.Header.Set("Authorization", bearer(t, "driver-1", jwt.RoleDriver))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	c, _ := store.GetByID(context.Background(), "claim-1")
	if c.ValidationStatus != StatusAcceptedByDriver {
		t.Errorf("status = %s, want accepted_by_driver", c.ValidationStatus)
	}
}

func TestDisputeRejectsForeignDriver(t *testing.T) {
	store := newMemStore()
	seedClaim(store, StatusGenerated, 0)
	router := newTestRouter(t, NewService(store, nil, nil))

	body := strings.NewReader(`{"reason":"Incorrect Distance","description":"Route was longer"}`)
	req := httptest.NewRequest(http.MethodPatch, "/claims/claim-1/dispute", body)
	req.Header.Set("Authorization", bearer(t, "driver-2", jwt.RoleDriver))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	c, _ := store.GetByID(context.Background(), "claim-1")
	if c.ValidationStatus != StatusGenerated || c.DisputeReason != "" {
		t.Error("dispute recorded for a foreign driver")
	}
}

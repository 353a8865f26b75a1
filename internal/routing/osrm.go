package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"freight-service/internal/apperrors"
)

// OSRMClient queries an OSRM routing server. Endpoints must be
// "lat,lng" pairs; free-text endpoints are not geocoded here.
type OSRMClient struct {
	baseURL string
	http    *http.Client
}

// NewOSRMClient points at an OSRM server, e.g. "https://router.project-osrm.org".
func NewOSRMClient(baseURL string) *OSRMClient {
	return &OSRMClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

// Route queries the driving profile for one route.
func (c *OSRMClient) Route(ctx context.Context, origin, destination string) (Route, error) {
	from, ok := parseLatLng(origin)
	if !ok {
		return Route{}, fmt.Errorf("%w: osrm: origin %q is not lat,lng", apperrors.ErrExternal, origin)
	}
	to, ok := parseLatLng(destination)
	if !ok {
		return Route{}, fmt.Errorf("%w: osrm: destination %q is not lat,lng", apperrors.ErrExternal, destination)
	}

	// OSRM takes lng,lat order.
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("%w: osrm: %v", apperrors.ErrExternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("%w: osrm: status %d", apperrors.ErrExternal, resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Route{}, fmt.Errorf("%w: osrm: decode: %v", apperrors.ErrExternal, err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return Route{}, fmt.Errorf("%w: osrm: no route found", apperrors.ErrExternal)
	}

	return Route{
		DistanceKm:      body.Routes[0].Distance / 1000,
		DurationMinutes: body.Routes[0].Duration / 60,
	}, nil
}

// WithFallback chains providers: if primary fails, fallback answers.
type WithFallback struct {
	Primary  Provider
	Fallback Provider
}

// Route tries the primary provider first.
func (w WithFallback) Route(ctx context.Context, origin, destination string) (Route, error) {
	r, err := w.Primary.Route(ctx, origin, destination)
	if err == nil {
		return r, nil
	}
	return w.Fallback.Route(ctx, origin, destination)
}

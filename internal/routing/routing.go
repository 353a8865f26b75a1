// Package routing resolves a source/destination pair into the planned
// distance and duration that become a trip's financial truth. The route
// is queried exactly once, at assignment time.
package routing

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"freight-service/internal/apperrors"
)

// Route is the result of a routing query.
type Route struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// Provider answers routing queries. Origin and destination are either
// "lat,lng" pairs or free-text place names, depending on the provider.
type Provider interface {
	Route(ctx context.Context, origin, destination string) (Route, error)
}

// ---- haversine estimator ----

// Estimator is a Provider that estimates distance with the haversine
// formula. It accepts "lat,lng" endpoints and, optionally, place names
// registered via AddPlace. Duration assumes a fixed average speed.
type Estimator struct {
	AvgSpeedKmph float64
	places       map[string]LatLng
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// NewEstimator returns an Estimator with a 45 km/h freight average.
func NewEstimator() *Estimator {
	return &Estimator{AvgSpeedKmph: 45, places: make(map[string]LatLng)}
}

// AddPlace registers a named endpoint so free-text sources and
// destinations can be resolved without a geocoder.
func (e *Estimator) AddPlace(name string, lat, lng float64) {
	e.places[normalize(name)] = LatLng{Lat: lat, Lng: lng}
}

// Route estimates distance and duration between two endpoints.
func (e *Estimator) Route(_ context.Context, origin, destination string) (Route, error) {
	from, err := e.resolve(origin)
	if err != nil {
		return Route{}, err
	}
	to, err := e.resolve(destination)
	if err != nil {
		return Route{}, err
	}

	km := HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
	minutes := km / e.AvgSpeedKmph * 60
	return Route{DistanceKm: km, DurationMinutes: minutes}, nil
}

// Resolve returns the coordinates behind a "lat,lng" pair or a
// registered place name.
func (e *Estimator) Resolve(endpoint string) (LatLng, error) {
	return e.resolve(endpoint)
}

func (e *Estimator) resolve(endpoint string) (LatLng, error) {
	if p, ok := parseLatLng(endpoint); ok {
		return p, nil
	}
	if p, ok := e.places[normalize(endpoint)]; ok {
		return p, nil
	}
	return LatLng{}, fmt.Errorf("%w: routing: unknown endpoint %q", apperrors.ErrExternal, endpoint)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func parseLatLng(s string) (LatLng, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return LatLng{}, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return LatLng{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return LatLng{}, false
	}
	return LatLng{Lat: lat, Lng: lng}, true
}

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

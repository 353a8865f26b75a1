package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"freight-service/internal/apperrors"
	"freight-service/internal/routing"
	"freight-service/internal/trips"
)

// TripFlow is the slice of the trip service the manager drives: finding
// a driver's live trip and completing it on arrival.
type TripFlow interface {
	CurrentForDriver(ctx context.Context, driverID string) (*trips.Trip, error)
	Complete(ctx context.Context, tripID, reason string) (*trips.Trip, error)
}

// Resolver turns a trip destination into coordinates.
type Resolver interface {
	Resolve(endpoint string) (routing.LatLng, error)
}

// Manager turns the stream of driver location updates into live trip
// tracking: while a driver's trip is STARTED it runs one Tracker that
// broadcasts the position to the trip's WebSocket subscribers and
// auto-completes the trip on arrival at the destination.
type Manager struct {
	hub      *Hub
	trips    TripFlow
	resolver Resolver
	interval time.Duration

	mu       sync.Mutex
	latest   map[string]Position // last reported position per driver
	sessions map[string]*session // live tracker per driver
}

type session struct {
	tripID  string
	tracker *Tracker
}

// NewManager creates a manager. A non-positive interval defaults to 5s.
func NewManager(hub *Hub, flow TripFlow, resolver Resolver, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Manager{
		hub:      hub,
		trips:    flow,
		resolver: resolver,
		interval: interval,
		latest:   make(map[string]Position),
		sessions: make(map[string]*session),
	}
}

// PositionUpdated records a driver's position and keeps the driver's
// tracking session in step with their trip: started when the trip is
// STARTED, stopped when the trip ends. Matches drivers.PositionListener.
func (m *Manager) PositionUpdated(ctx context.Context, driverID string, lat, lng float64) {
	m.mu.Lock()
	m.latest[driverID] = Position{Lat: lat, Lng: lng}
	sess := m.sessions[driverID]
	m.mu.Unlock()

	trip, err := m.trips.CurrentForDriver(ctx, driverID)
	if err != nil {
		log.Printf("[tracking] trip lookup for driver %s: %v", driverID, err)
		return
	}

	if sess != nil {
		if trip != nil && trip.ID == sess.tripID && trip.Status == trips.StatusStarted {
			return // tracker already polling this trip
		}
		m.stopSession(driverID, sess)
	}
	if trip == nil || trip.Status != trips.StatusStarted {
		return
	}

	dest, err := m.resolver.Resolve(trip.Destination)
	if err != nil {
		log.Printf("[tracking] cannot resolve destination %q for trip %s: %v", trip.Destination, trip.ID, err)
		return
	}
	m.startSession(driverID, trip.ID, Position{Lat: dest.Lat, Lng: dest.Lng})
}

// Shutdown stops every live tracking session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.tracker.Stop()
	}
}

func (m *Manager) startSession(driverID, tripID string, dest Position) {
	sink := func(_ context.Context, pos Position) {
		m.hub.BroadcastPosition(tripID, pos)
	}
	onArrive := func(ctx context.Context) {
		if _, err := m.trips.Complete(ctx, tripID, trips.CompleteAuto); err != nil &&
			!errors.Is(err, apperrors.ErrAlreadyCompleted) {
			log.Printf("[tracking] auto-complete of trip %s: %v", tripID, err)
		}
		m.mu.Lock()
		sess := m.sessions[driverID]
		if sess != nil && sess.tripID == tripID {
			delete(m.sessions, driverID)
		}
		m.mu.Unlock()
		if sess != nil {
			// Stop blocks on the polling goroutine, which is the one
			// running this callback.
			go sess.tracker.Stop()
		}
	}

	tr := NewTracker(driverSource{m: m, driverID: driverID}, sink, dest, m.interval, onArrive)
	m.mu.Lock()
	m.sessions[driverID] = &session{tripID: tripID, tracker: tr}
	m.mu.Unlock()

	// The session outlives the request that triggered it.
	tr.Start(context.Background())
	log.Printf("[tracking] session started for trip %s (driver %s)", tripID, driverID)
}

func (m *Manager) stopSession(driverID string, sess *session) {
	m.mu.Lock()
	if m.sessions[driverID] == sess {
		delete(m.sessions, driverID)
	}
	m.mu.Unlock()
	sess.tracker.Stop()
	log.Printf("[tracking] session stopped for trip %s (driver %s)", sess.tripID, driverID)
}

// driverSource feeds a Tracker the driver's last reported position.
type driverSource struct {
	m        *Manager
	driverID string
}

func (s driverSource) CurrentPosition(context.Context) (Position, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	pos, ok := s.m.latest[s.driverID]
	if !ok {
		return Position{}, errors.New("no position reported yet")
	}
	return pos, nil
}

package tracking

import (
	"context"
	"log"
	"sync"
	"time"

	"freight-service/internal/routing"
)

// Position is a driver's last observed coordinate pair.
type Position struct {
	Lat float64
	Lng float64
}

// PositionSource yields the driver's current position, e.g. a GPS feed.
type PositionSource interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// Sink receives each ingested position. Implementations persist it and
// broadcast it; none of this ever feeds payout computation.
type Sink func(ctx context.Context, pos Position)

// Tracker polls a PositionSource while a trip is STARTED and pushes
// every reading into the sink. When the remaining distance to the
// destination drops under the arrival threshold it fires the
// auto-complete callback exactly once.
//
// A Tracker is session-scoped: Start hands back control via the handle
// itself, Stop cancels synchronously, and no sink or callback
// invocation is observable after Stop returns.
type Tracker struct {
	source      PositionSource
	sink        Sink
	destination Position
	interval    time.Duration

	// ArrivalThresholdKm is the proximity at which onArrive fires.
	ArrivalThresholdKm float64

	onArrive func(ctx context.Context)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	arrived bool
}

// NewTracker builds a tracker for one trip.
func NewTracker(source PositionSource, sink Sink, destination Position, interval time.Duration, onArrive func(ctx context.Context)) *Tracker {
	return &Tracker{
		source:             source,
		sink:               sink,
		destination:        destination,
		interval:           interval,
		ArrivalThresholdKm: 0.5,
		onArrive:           onArrive,
	}
}

// Start begins polling. Calling Start on a running tracker is a no-op.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	done := make(chan struct{})
	t.done = done

	go t.run(ctx, done)
}

// Stop cancels polling and blocks until the polling goroutine has
// exited, so no further sink writes can occur after it returns.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pos, err := t.source.CurrentPosition(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[tracking] position read failed: %v", err)
			continue
		}
		if ctx.Err() != nil {
			return
		}

		t.sink(ctx, pos)

		remaining := routing.HaversineKm(pos.Lat, pos.Lng, t.destination.Lat, t.destination.Lng)
		if remaining <= t.ArrivalThresholdKm && t.markArrived() && t.onArrive != nil {
			t.onArrive(ctx)
		}
	}
}

// markArrived reports whether this is the first arrival observation.
func (t *Tracker) markArrived() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.arrived {
		return false
	}
	t.arrived = true
	return true
}

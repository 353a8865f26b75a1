package fleet

import (
	"context"
	"encoding/json"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"freight-service/internal/events"
	"freight-service/pkg/kafka"
)

// StatsConsumer folds trip.completed events into per-driver aggregates.
type StatsConsumer struct {
	db    *pgxpool.Pool
	kafka *kafka.Client
}

// NewStatsConsumer creates a consumer bound to the given pool and broker.
func NewStatsConsumer(db *pgxpool.Pool, k *kafka.Client) *StatsConsumer {
	return &StatsConsumer{db: db, kafka: k}
}

// Start subscribes to trip.completed and keeps driver_stats current
// until ctx is cancelled.
func (c *StatsConsumer) Start(ctx context.Context) {
	c.kafka.Subscribe(ctx, kafka.TopicTripCompleted, "fleet-stats", func(value []byte) error {
		var ev events.TripCompletedEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			log.Printf("[fleet] dropping malformed trip.completed event: %v", err)
			return nil
		}
		return c.apply(ctx, ev)
	})
	log.Println("[fleet] stats consumer started")
}

func (c *StatsConsumer) apply(ctx context.Context, ev events.TripCompletedEvent) error {
	_, err := c.db.Exec(ctx,
		`INSERT INTO driver_stats (driver_id, completed_trips, total_earnings, total_distance_km, updated_at)
		 VALUES ($1, 1, $2, $3, NOW())
		 ON CONFLICT (driver_id) DO UPDATE SET
		   completed_trips   = driver_stats.completed_trips + 1,
		   total_earnings    = driver_stats.total_earnings + EXCLUDED.total_earnings,
		   total_distance_km = driver_stats.total_distance_km + EXCLUDED.total_distance_km,
		   updated_at        = NOW()`,
		ev.DriverID, ev.TotalPayout, ev.DistanceKm)
	return err
}

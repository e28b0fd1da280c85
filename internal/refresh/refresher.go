package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/tkellerman/salesweather/internal/database"
	"github.com/tkellerman/salesweather/internal/derived"
)

// Refresher recomputes the daily city metrics and writes them to the
// snapshot table. The snapshot is a convenience copy for external BI tools;
// the report server always recomputes from sources.
type Refresher struct {
	pipeline *derived.Pipeline
	db       *database.DB
}

// NewRefresher creates a new snapshot refresher
func NewRefresher(pipeline *derived.Pipeline, db *database.DB) *Refresher {
	return &Refresher{pipeline: pipeline, db: db}
}

// RefreshSnapshots recomputes every daily city metric and upserts it
func (r *Refresher) RefreshSnapshots(ctx context.Context) error {
	fmt.Println("Running daily metrics refresh")

	metrics, err := r.pipeline.DailyCityMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute daily city metrics: %w", err)
	}

	for _, m := range metrics {
		snapshot := &database.MetricSnapshot{
			Date:        m.Date,
			City:        m.City,
			Country:     m.Country,
			DailySales:  m.DailySales,
			AvgTempF:    m.AvgTempF,
			AvgTempC:    m.AvgTempC,
			AvgPrecipIn: m.AvgPrecipIn,
			AvgPrecipMM: m.AvgPrecipMM,
			MaxWindMPH:  m.MaxWindMPH,
		}

		if err := r.db.UpsertMetricSnapshot(snapshot); err != nil {
			return fmt.Errorf("failed to upsert snapshot for %s/%s/%s: %w",
				m.Date.Format("2006-01-02"), m.Country, m.City, err)
		}
	}

	fmt.Printf("Daily metrics refresh completed: %d rows written\n", len(metrics))
	return nil
}

// CalculateNextRunTime calculates when the refresh should next run.
// It runs at a specific time each day (e.g., 00:15).
func (r *Refresher) CalculateNextRunTime(timeOfDay string) (time.Time, error) {
	now := time.Now()

	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, fmt.Errorf("invalid time format: %s (expected HH:MM)", timeOfDay)
	}

	todayRun := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	// If we're past today's run time, schedule for tomorrow
	if now.After(todayRun) {
		return todayRun.AddDate(0, 0, 1), nil
	}

	return todayRun, nil
}

package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/database"
	"github.com/tkellerman/salesweather/internal/queue"
)

// Evaluator watches exclusion counters and raises alerts when a counter
// grows faster than its configured threshold. An exclusion spike usually
// means a source started shipping rows the joins cannot resolve.
type Evaluator struct {
	db             *database.DB
	reader         audit.Reader
	stateManager   *StateManager
	alertProducer  *queue.Producer
	thresholdCache []*database.QualityThreshold
	lastCacheLoad  time.Time
	cacheValidity  time.Duration
	lastCounts     map[string]int64
}

// NewEvaluator creates a new quality evaluator
func NewEvaluator(db *database.DB, reader audit.Reader, stateManager *StateManager, alertProducer *queue.Producer) *Evaluator {
	return &Evaluator{
		db:            db,
		reader:        reader,
		stateManager:  stateManager,
		alertProducer: alertProducer,
		cacheValidity: 5 * time.Minute,
		lastCounts:    make(map[string]int64),
	}
}

// Check reads the current exclusion counters and evaluates every active
// threshold against the growth since the previous check.
func (e *Evaluator) Check(ctx context.Context) error {
	counts, err := e.reader.Counts(ctx)
	if err != nil {
		return fmt.Errorf("failed to read exclusion counters: %w", err)
	}

	thresholds, err := e.getThresholds()
	if err != nil {
		return fmt.Errorf("failed to get thresholds: %w", err)
	}

	for _, threshold := range thresholds {
		delta := float64(counts[threshold.Reason] - e.lastCounts[threshold.Reason])
		if delta < 0 {
			// Counter was reset; treat the current total as the growth
			delta = float64(counts[threshold.Reason])
		}

		if err := e.evaluateThreshold(ctx, threshold, delta); err != nil {
			fmt.Printf("Failed to evaluate threshold for %s: %v\n", threshold.Reason, err)
		}
	}

	e.lastCounts = counts
	return nil
}

func (e *Evaluator) evaluateThreshold(ctx context.Context, threshold *database.QualityThreshold, value float64) error {
	breached := evaluateCondition(value, threshold.Operator, threshold.ThresholdValue)

	state, err := e.stateManager.GetState(ctx, threshold.Reason)
	if err != nil {
		return err
	}

	now := time.Now()

	if breached {
		return e.handleBreach(ctx, threshold, value, state, now)
	}
	return e.handleNoBreach(ctx, threshold, state, now)
}

func (e *Evaluator) handleBreach(ctx context.Context, threshold *database.QualityThreshold, value float64, state *AlertState, now time.Time) error {
	switch state.Status {
	case AlertStateClear:
		// New breach detected
		newState := &AlertState{
			Status:          AlertStatePending,
			BreachStartTime: now,
			LastChecked:     now,
			BreachValue:     value,
		}
		return e.stateManager.SetState(ctx, threshold.Reason, newState)

	case AlertStatePending:
		durationMet := now.Sub(state.BreachStartTime) >= time.Duration(threshold.DurationMinutes)*time.Minute

		if durationMet {
			return e.triggerAlert(ctx, threshold, value, state, now)
		}

		state.LastChecked = now
		state.BreachValue = value
		return e.stateManager.SetState(ctx, threshold.Reason, state)

	case AlertStateActive:
		// Alert already active, update last checked
		state.LastChecked = now
		return e.stateManager.SetState(ctx, threshold.Reason, state)
	}

	return nil
}

func (e *Evaluator) handleNoBreach(ctx context.Context, threshold *database.QualityThreshold, state *AlertState, now time.Time) error {
	switch state.Status {
	case AlertStateClear:
		return nil

	case AlertStatePending:
		// Breach ended before the alert triggered
		return e.stateManager.DeleteState(ctx, threshold.Reason)

	case AlertStateActive:
		return e.clearAlert(ctx, threshold, state, now)
	}

	return nil
}

func (e *Evaluator) triggerAlert(ctx context.Context, threshold *database.QualityThreshold, value float64, state *AlertState, now time.Time) error {
	fmt.Printf("ALERT TRIGGERED: %s (value=%.0f, threshold=%.0f)\n",
		threshold.Reason, value, threshold.ThresholdValue)

	thresholdConfig, _ := json.Marshal(threshold)
	alertLog := &database.QualityAlertLog{
		Reason:          threshold.Reason,
		BreachValue:     value,
		ThresholdConfig: string(thresholdConfig),
		StartTime:       state.BreachStartTime,
		Status:          database.AlertStatusActive,
	}

	if err := e.db.InsertQualityAlertLog(alertLog); err != nil {
		return fmt.Errorf("failed to insert alert log: %w", err)
	}

	state.Status = AlertStateActive
	state.AlertID = alertLog.AlertID
	state.LastChecked = now
	if err := e.stateManager.SetState(ctx, threshold.Reason, state); err != nil {
		return err
	}

	alert := &Alert{
		Type:        AlertTypeTriggered,
		Reason:      threshold.Reason,
		Value:       value,
		Threshold:   threshold.ThresholdValue,
		Operator:    threshold.Operator,
		Duration:    threshold.DurationMinutes,
		StartTime:   state.BreachStartTime,
		AlertID:     alertLog.AlertID,
		GeneratedAt: now,
	}

	return e.publishAlert(ctx, alert)
}

func (e *Evaluator) clearAlert(ctx context.Context, threshold *database.QualityThreshold, state *AlertState, now time.Time) error {
	fmt.Printf("ALERT CLEARED: %s\n", threshold.Reason)

	if state.AlertID > 0 {
		if err := e.db.UpdateQualityAlertCleared(state.AlertID, now); err != nil {
			return fmt.Errorf("failed to update alert log: %w", err)
		}
	}

	if err := e.stateManager.DeleteState(ctx, threshold.Reason); err != nil {
		return err
	}

	alert := &Alert{
		Type:        AlertTypeCleared,
		Reason:      threshold.Reason,
		Threshold:   threshold.ThresholdValue,
		AlertID:     state.AlertID,
		GeneratedAt: now,
	}

	return e.publishAlert(ctx, alert)
}

func (e *Evaluator) publishAlert(ctx context.Context, alert *Alert) error {
	data, err := EncodeAlert(alert)
	if err != nil {
		return err
	}

	return e.alertProducer.Publish(ctx, alert.Reason, data)
}

func (e *Evaluator) getThresholds() ([]*database.QualityThreshold, error) {
	if time.Since(e.lastCacheLoad) < e.cacheValidity && e.thresholdCache != nil {
		return e.thresholdCache, nil
	}

	thresholds, err := e.db.GetActiveQualityThresholds()
	if err != nil {
		return nil, err
	}

	e.thresholdCache = thresholds
	e.lastCacheLoad = time.Now()

	return thresholds, nil
}

func evaluateCondition(value float64, operator string, threshold float64) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		return false
	}
}

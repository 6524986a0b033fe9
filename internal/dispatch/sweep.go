// Package dispatch implements the expiry sweep: it finds switches whose
// inactivity window has elapsed, delivers their configured action, and
// transitions them from active to triggered exactly once.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/deadman-dev/deadman/db"
	"github.com/deadman-dev/deadman/internal/logger"
	"github.com/deadman-dev/deadman/internal/models"
	"github.com/deadman-dev/deadman/internal/notify"
	"github.com/deadman-dev/deadman/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Engine runs expiry sweeps. Sweeps hold no lock against each other; the
// status transition is conditional on the row still being active, so
// overlapping sweeps record at most one trigger per switch. Delivery itself
// is at-least-once: a true race can deliver the action twice.
type Engine struct {
	deliverer notify.Deliverer
	limiter   *rate.Limiter
}

// Result is the outcome of one switch's handling within a sweep. Skipped
// marks a switch whose conditional update found the row no longer active: a
// concurrent sweep won the race, so this sweep's write did not land.
type Result struct {
	SwitchID uint
	Skipped  bool
	Err      error
}

// Report summarizes a sweep. Triggered counts only switches this sweep
// actually transitioned; races lost to a concurrent sweep go to Skipped.
type Report struct {
	Attempted int
	Triggered int
	Failed    int
	Skipped   int
	Results   []Result
}

// Outbound deliveries are paced so a mass trigger cannot flood targets.
const (
	deliveriesPerSecond = 5
	deliveryBurst       = 10
)

func NewEngine(deliverer notify.Deliverer) *Engine {
	return &Engine{
		deliverer: deliverer,
		limiter:   rate.NewLimiter(rate.Limit(deliveriesPerSecond), deliveryBurst),
	}
}

// RunSweep processes every switch due at the given instant. Per-switch
// failures are contained: a failing delivery leaves that switch active (it is
// retried on the next sweep) and never aborts the rest of the sweep. Only the
// due-switch query failing is fatal.
func (e *Engine) RunSweep(ctx context.Context, now time.Time) (Report, error) {
	log := logger.Named("dispatch")

	var due []models.Switch

	if err := db.DB.Preload("Action").
		Where("status = ? AND next_trigger_at <= ?", models.SwitchStatusActive, now).
		Find(&due).Error; err != nil {
		return Report{}, fmt.Errorf("failed to query due switches: %w", err)
	}

	var report Report

	for _, sw := range due {
		result := e.processSwitch(ctx, sw, now)

		report.Attempted++
		report.Results = append(report.Results, result)

		if result.Err != nil {
			report.Failed++
			log.Error("Failed to trigger switch",
				zap.Uint("switch_id", sw.ID),
				zap.String("action_type", string(sw.Action.Type)),
				zap.Error(result.Err))
			continue
		}

		if result.Skipped {
			report.Skipped++
			log.Info("Switch already triggered by a concurrent sweep",
				zap.Uint("switch_id", sw.ID))
			continue
		}

		report.Triggered++
		log.Info("Switch triggered",
			zap.Uint("switch_id", sw.ID),
			zap.String("action_type", string(sw.Action.Type)))
	}

	return report, nil
}

// processSwitch handles a single due switch: deliver first, then flip the
// status. The ordering is mandatory — the switch must not read as triggered
// before a delivery was attempted. Panics are contained here so one broken
// switch cannot take down the sweep.
func (e *Engine) processSwitch(ctx context.Context, sw models.Switch, now time.Time) (result Result) {
	result.SwitchID = sw.ID

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic while processing switch %d: %v", sw.ID, r)
		}
	}()

	if err := e.limiter.Wait(ctx); err != nil {
		result.Err = fmt.Errorf("sweep cancelled: %w", err)
		return result
	}

	if err := e.deliverer.Deliver(ctx, sw.Action, sw.Message, now); err != nil {
		result.Err = err
		return result
	}

	// Conditional update: a concurrent sweep may have won the race after our
	// query. Only the winner's write lands; losing is not an error.
	tx := db.DB.Model(&models.Switch{}).
		Where("id = ? AND status = ?", sw.ID, models.SwitchStatusActive).
		Update("status", models.SwitchStatusTriggered)

	if tx.Error != nil {
		result.Err = fmt.Errorf("failed to mark switch %d triggered: %w", sw.ID, tx.Error)
		return result
	}

	if tx.RowsAffected == 0 {
		result.Skipped = true
		return result
	}

	ws.BroadcastSwitchTriggered(sw.UserID, ws.TriggerEvent{
		Event:       notify.TriggerEventName,
		SwitchID:    sw.ID,
		Title:       sw.Title,
		TriggeredAt: now.UTC().Format(time.RFC3339),
	})

	return result
}

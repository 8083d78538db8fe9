// Package retention prunes idle conversations on a cron schedule.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/driftbot/driftbot/internal/history"
)

// Sweeper deletes conversations whose last update is older than MaxAge.
// A zero MaxAge disables pruning entirely.
type Sweeper struct {
	history  *history.Manager
	maxAge   time.Duration
	schedule string
	now      func() time.Time // test seam
}

// NewSweeper creates a Sweeper. schedule is a cron expression
// (robfig/cron syntax, descriptors allowed); empty means "@hourly".
func NewSweeper(hist *history.Manager, maxAge time.Duration, schedule string) *Sweeper {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &Sweeper{history: hist, maxAge: maxAge, schedule: schedule, now: time.Now}
}

// Run schedules sweeps until ctx is cancelled. Returns immediately when
// pruning is disabled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.maxAge <= 0 {
		slog.Info("retention disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.Sweep() }); err != nil {
		return err
	}
	c.Start()
	slog.Info("retention started", "schedule", s.schedule, "maxAge", s.maxAge)

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// Sweep runs one pass and returns the number of conversations deleted.
func (s *Sweeper) Sweep() int {
	summaries, err := s.history.ListConversations("")
	if err != nil {
		slog.Error("retention list failed", "err", err)
		return 0
	}

	cutoff := s.now().Add(-s.maxAge)
	deleted := 0
	for _, sum := range summaries {
		if sum.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.history.DeleteConversation(sum.ID); err != nil {
			slog.Error("retention delete failed", "id", sum.ID, "err", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		slog.Info("retention sweep", "deleted", deleted)
	}
	return deleted
}

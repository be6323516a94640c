package history

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pruner deletes entries older than the retention window, once on Start and
// then on a cron schedule
type Pruner struct {
	store     *Store
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
	removed atomic.Int64
}

// NewPruner creates a pruner. schedule accepts standard five-field cron
// expressions and descriptors such as "@daily".
func NewPruner(store *Store, retention time.Duration, schedule string, logger zerolog.Logger) *Pruner {
	return &Pruner{
		store:     store,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start prunes once and schedules the recurring job
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pruner is already running")
	}
	if p.retention <= 0 {
		p.mu.Unlock()
		p.logger.Info().Msg("history retention disabled")
		return nil
	}
	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.RunNow(context.WithoutCancel(ctx))
	}); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("failed to schedule history pruning %q: %w", p.schedule, err)
	}
	p.running = true
	p.mu.Unlock()

	p.RunNow(ctx)
	p.cron.Start()
	p.logger.Info().Str("schedule", p.schedule).Dur("retention", p.retention).Msg("history pruning scheduled")
	return nil
}

// Stop stops the schedule and waits for a running prune to finish
func (p *Pruner) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	ctx := p.cron.Stop()
	p.running = false
	p.mu.Unlock()

	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		p.logger.Warn().Msg("history pruner stop timed out")
	}
}

// RunNow prunes immediately and returns the number of removed entries
func (p *Pruner) RunNow(ctx context.Context) int64 {
	start := time.Now()
	n, err := p.store.Prune(ctx, p.retention)
	if err != nil {
		p.logger.Error().Err(err).Msg("history pruning failed")
		return 0
	}

	p.removed.Add(n)

	p.logger.Debug().Int64("removed", n).Dur("duration", time.Since(start)).Msg("history prune finished")
	return n
}

// Removed is the total number of entries pruned since creation
func (p *Pruner) Removed() int64 {
	return p.removed.Load()
}

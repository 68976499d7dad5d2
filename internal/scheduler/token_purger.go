// Package scheduler holds the daemon's recurring jobs: the daily content
// send, the weekly coverage refresh with its admin summary, and periodic
// reply-token cleanup.
package scheduler

import (
	"context"
	"time"

	"github.com/dailymanna/manna/internal/dates"
	"github.com/dailymanna/manna/internal/logger"
	"github.com/dailymanna/manna/internal/reply"
	"github.com/dailymanna/manna/internal/schedule"
	filestore "github.com/dailymanna/manna/internal/store/file"
)

// DefaultPurgeInterval is how often expired reply tokens are swept.
const DefaultPurgeInterval = 6 * time.Hour

// TokenPurger periodically removes expired reply tokens from the schedule
// document so the token store never grows without bound.
type TokenPurger struct {
	store    *filestore.Store
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewTokenPurger(store *filestore.Store, log logger.Logger, interval time.Duration) *TokenPurger {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	return &TokenPurger{
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic purge process.
func (tp *TokenPurger) Start(ctx context.Context) error {
	// Run immediately on start
	if err := tp.Purge(ctx); err != nil {
		tp.logger.Warn("initial token purge failed", logger.Error(err))
	}

	ticker := time.NewTicker(tp.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := tp.Purge(ctx); err != nil {
					tp.logger.Error("token purge failed", logger.Error(err))
				}
			case <-tp.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the purger.
func (tp *TokenPurger) Stop() {
	close(tp.stopCh)
}

// Purge removes expired tokens, saving only when something was dropped.
func (tp *TokenPurger) Purge(_ context.Context) error {
	var removed int
	err := tp.store.Update(func(s *schedule.Schedule) (bool, error) {
		removed = reply.PurgeExpired(s, time.Now().In(dates.Taipei))
		return removed > 0, nil
	})
	if err != nil {
		return err
	}
	if removed > 0 {
		tp.logger.Info("purged expired reply tokens", logger.Int("removed", removed))
	} else {
		tp.logger.Debug("no expired reply tokens")
	}
	return nil
}

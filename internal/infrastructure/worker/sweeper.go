// Package worker runs periodic housekeeping for the auth stores.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultInterval = 15 * time.Minute

// PurgeFunc deletes rows that expired before now and reports how many.
type PurgeFunc func(ctx context.Context, now time.Time) (int64, error)

// Job is one named purge.
type Job struct {
	Name  string
	Purge PurgeFunc
}

// Sweeper runs every job on its own goroutine at a fixed interval. Request
// paths already filter on expiry, so a missed sweep only delays cleanup.
type Sweeper struct {
	jobs     []Job
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewSweeper creates a Sweeper. If interval <= 0, defaultInterval is used.
func NewSweeper(interval time.Duration, log zerolog.Logger, jobs ...Job) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		jobs:     jobs,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// Start launches one goroutine per job. Workers stop when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runWorker(ctx, job)
	}
}

// Wait blocks until every worker has returned.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

// RunOnce executes every job synchronously.
func (s *Sweeper) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		s.run(ctx, job)
	}
}

func (s *Sweeper) runWorker(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, job)
		}
	}
}

func (s *Sweeper) run(ctx context.Context, job Job) {
	removed, err := job.Purge(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Str("job", job.Name).Msg("sweep failed")
		}
		return
	}
	if removed > 0 {
		s.log.Info().Str("job", job.Name).Int64("removed", removed).Msg("expired rows purged")
	}
}

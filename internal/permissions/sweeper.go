package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/statebridge/internal/logfields"
)

// DefaultSweepInterval is how often the daemon re-probes stale permission
// entries.
const DefaultSweepInterval = 15 * time.Minute

// Sweeper periodically refreshes stale permission states through the front,
// so it is a no-op until the domain has migrated.
type Sweeper struct {
	scheduler gocron.Scheduler
	front     *Front
	log       *slog.Logger
}

// NewSweeper creates the sweep scheduler with one duration job.
func NewSweeper(front *Front, interval time.Duration, log *slog.Logger) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	sw := &Sweeper{scheduler: s, front: front, log: log}
	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sw.sweep),
		gocron.WithName("permission-staleness-sweep"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sweep job: %w", err)
	}
	return sw, nil
}

// Start begins the scheduler.
func (s *Sweeper) Start() {
	s.log.Info("starting permission sweep scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Sweeper) Stop() error {
	s.log.Info("stopping permission sweep scheduler")
	return s.scheduler.Shutdown()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.front.RefreshStale(ctx)
	if err != nil {
		s.log.Warn("permission sweep failed", logfields.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("refreshed stale permissions", slog.Int("count", n))
	}
}

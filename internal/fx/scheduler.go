package fx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule refreshes the rate every half hour.
const DefaultSchedule = "@every 30m"

// zapCronLogger wraps zap.Logger to implement cron's logger interface
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Printf(format string, args ...interface{}) {
	l.logger.Sugar().Debugf(format, args...)
}

// Scheduler refreshes a Tracker on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	tracker  *Tracker
	schedule string
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. An empty schedule uses DefaultSchedule.
func NewScheduler(tracker *Tracker, schedule string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid fx schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&zapCronLogger{logger: logger})))
	return &Scheduler{
		cron:     c,
		tracker:  tracker,
		schedule: schedule,
		timeout:  15 * time.Second,
		logger:   logger,
	}, nil
}

// Start performs an immediate refresh and then follows the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("fx scheduler is already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, s.refresh); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.refresh()
	s.cron.Start()
	s.running = true

	var next time.Time
	if entries := s.cron.Entries(); len(entries) > 0 {
		next = entries[0].Next
	}
	s.logger.Info("fx scheduler started",
		zap.String("schedule", s.schedule),
		zap.Time("next_run", next),
	)
	return nil
}

// Stop halts the schedule and waits for a running refresh.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("fx scheduler stopped")
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	// failures are logged by the tracker
	s.tracker.Refresh(ctx)
}

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwalitptl/booking-api/pkg/logger"
)

// JobFunc is a periodic maintenance task.
type JobFunc func(ctx context.Context) error

// JobScheduler runs named jobs on cron specs. Overlapping runs of the same
// job are skipped.
type JobScheduler struct {
	cron   *cron.Cron
	logger *logger.Logger

	mu   sync.Mutex
	jobs map[string]JobFunc
	ctx  context.Context
	stop context.CancelFunc
}

func NewJobScheduler(log *logger.Logger) *JobScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(log),
			cron.SkipIfStillRunning(log),
		)),
		logger: log,
		jobs:   make(map[string]JobFunc),
		ctx:    ctx,
		stop:   cancel,
	}
}

// Add registers job under name with a standard cron spec or a descriptor
// such as "@every 1m".
func (s *JobScheduler) Add(name, spec string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.jobs[name] = job
	return nil
}

// RunNow executes a registered job synchronously.
func (s *JobScheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not registered", name)
	}
	return job(ctx)
}

func (s *JobScheduler) run(name string, job JobFunc) {
	start := time.Now()
	if err := job(s.ctx); err != nil {
		s.logger.Error(err, "job failed", "job", name, "duration", time.Since(start).String())
		return
	}
	s.logger.Debug("job finished", "job", name, "duration", time.Since(start).String())
}

func (s *JobScheduler) Start() {
	s.logger.Info("starting job scheduler", "jobs", len(s.jobs))
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *JobScheduler) Stop() {
	s.stop()
	<-s.cron.Stop().Done()
	s.logger.Info("job scheduler stopped")
}

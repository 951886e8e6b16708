package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"campground_ingest/internal/adapters/observability"
)

// Job is one scheduled unit of work. It receives a context cancelled by Stop.
type Job func(ctx context.Context)

// Scheduler owns a cron runner that triggers Job on a recurring schedule.
// Each trigger runs on its own goroutine, so a slow run never delays the
// next one; panics are recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// StartScheduler parses schedule (standard cron or a descriptor such as
// "@hourly" or "@every 30m") and starts triggering job.
func StartScheduler(schedule string, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job is required")
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", schedule, err)
	}

	cl := observability.CronLogger(log.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		job:    job,
		ctx:    ctx,
		cancel: cancel,
	}
	s.cron.Schedule(sched, cron.FuncJob(s.fire))
	s.cron.Start() // non-blocking

	log.Info().Str("schedule", schedule).Msg("ingestion scheduler started")
	return s, nil
}

// track registers a run unless the scheduler is stopping.
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Scheduler) fire() {
	if !s.track() {
		return
	}
	defer s.wg.Done()
	s.job(s.ctx)
}

// RunNow triggers one run immediately, outside the schedule.
func (s *Scheduler) RunNow() {
	if !s.track() {
		return
	}
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("scheduled run panicked")
			}
		}()
		s.job(s.ctx)
	}()
}

// Stop halts new triggers, cancels in-flight runs and waits for them to
// return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("ingestion scheduler stopped")
		return nil
	case <-ctx.Done():
		log.Warn().Msg("ingestion scheduler shutdown timed out")
		return ctx.Err()
	}
}

// Package jobs schedules the engine's background maintenance work.
//
// The only job today is the completion sweep: once a day, confirmed
// demand whose interval has fully elapsed is transitioned to completed
// so it stops being cancellable.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// CompletionSweeper is the slice of the booking service the sweep needs.
type CompletionSweeper interface {
	CompleteElapsed(ctx context.Context, now time.Time) (int, error)
}

// completionSpec runs the sweep at midnight server time, daily.
const completionSpec = "0 0 * * *"

// Scheduler owns the cron runner and its registered jobs.
type Scheduler struct {
	cron    *cron.Cron
	sweeper CompletionSweeper
}

// NewScheduler registers the completion sweep on a fresh cron runner.
func NewScheduler(sweeper CompletionSweeper) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, sweeper: sweeper}

	if _, err := c.AddFunc(completionSpec, s.runCompletionSweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("scheduler: completion sweep registered")
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunNow triggers the completion sweep immediately, outside the cron
// schedule. Used at startup to catch up after downtime.
func (s *Scheduler) RunNow() {
	s.runCompletionSweep()
}

func (s *Scheduler) runCompletionSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.sweeper.CompleteElapsed(ctx, time.Now())
	if err != nil {
		log.Printf("completion sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("completion sweep: %d demand(s) completed", n)
	}
}

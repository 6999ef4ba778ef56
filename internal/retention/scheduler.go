package retention

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"growset/pkg/logger"
)

// Scheduler runs the sweeper once at start and then on a cron schedule.
// Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	// job is the wrapped sweep shared by the startup run and every tick, so
	// SkipIfStillRunning covers both.
	job     cron.Job
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

func NewScheduler(sweeper *Sweeper, schedule string) (*Scheduler, error) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Log))
	c := cron.New(cron.WithLogger(cronLogger))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, sweeper: sweeper, ctx: ctx, cancel: cancel}
	s.job = cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).Then(cron.FuncJob(s.run))

	if _, err := c.AddJob(schedule, s.job); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	if _, err := s.sweeper.Sweep(s.ctx); err != nil && s.ctx.Err() == nil {
		logger.Sugar.Errorf("Sweep failed: %v", err)
	}
}

// Start kicks off the startup sweep in the background and begins the schedule.
func (s *Scheduler) Start() {
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.job.Run()
	}()
	s.cron.Start()
}

// Stop halts the schedule, cancels a sweep in progress and waits for it.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.initial.Wait()
}

// Package retention deletes polls that have outlived the retention period.
package retention

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"growset/internal/poll/model"
	"growset/internal/poll/service"
	"growset/pkg/logger"
)

// Store is the read side the sweeper scans.
type Store interface {
	IDs() ([]string, error)
	Get(id string) (model.Poll, error)
}

// Remover deletes a poll.
type Remover interface {
	Remove(ctx context.Context, id, reason string) error
}

type Result struct {
	Scanned int
	Deleted int
	Skipped int
	Failed  int
}

type Sweeper struct {
	Store       Store
	Remover     Remover
	Retention   time.Duration
	Concurrency int
	Now         func() time.Time
}

func NewSweeper(store Store, remover Remover, retention time.Duration, concurrency int) *Sweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweeper{
		Store:       store,
		Remover:     remover,
		Retention:   retention,
		Concurrency: concurrency,
		Now:         time.Now,
	}
}

// Expired reports whether a poll created at createdAt is past retention.
func (s *Sweeper) Expired(createdAt time.Time) bool {
	return s.Now().Sub(createdAt) > s.Retention
}

// Sweep scans every poll and deletes the expired ones. A poll whose metadata
// cannot be read is never deleted, and one failure does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	ids, err := s.Store.IDs()
	if err != nil {
		logger.Sugar.Errorf("Sweep could not list polls: %v", err)
		return Result{}, err
	}

	var (
		mu  sync.Mutex
		res = Result{Scanned: len(ids)}
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			poll, err := s.Store.Get(id)
			if err != nil {
				logger.Sugar.Errorf("Sweep skipping %s: %v", id, err)
				count(&res.Skipped)
				return nil
			}
			if !s.Expired(poll.CreatedAt) {
				return nil
			}
			if err := s.Remover.Remove(ctx, id, service.ReasonExpired); err != nil {
				logger.Sugar.Errorf("Sweep failed to delete %s: %v", id, err)
				count(&res.Failed)
				return nil
			}
			count(&res.Deleted)
			return nil
		})
	}
	err = g.Wait()

	logger.Sugar.Infof("Sweep finished: scanned=%d deleted=%d skipped=%d failed=%d",
		res.Scanned, res.Deleted, res.Skipped, res.Failed)
	return res, err
}

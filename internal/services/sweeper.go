package services

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/storage/files"
)

// Sweeper removes registrations whose confirmation link was never used
type Sweeper struct {
	uow         common.UnitOfWork
	enrollments Enrollments
	orphans     *enrollment.OrphanCollector
	files       files.Store
	maxAge      time.Duration
	interval    time.Duration
	log         *log.Logger
}

func NewSweeper(uow common.UnitOfWork, enrollments Enrollments, orphans *enrollment.OrphanCollector, store files.Store, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{
		uow:         uow,
		enrollments: enrollments,
		orphans:     orphans,
		files:       store,
		maxAge:      maxAge,
		interval:    interval,
		log:         logger.Scheduler(),
	}
}

// Sweep deletes every unconfirmed enrollment registered more than maxAge before now.
// Each one is handled in its own transaction; failures are collected and the sweep goes on.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.maxAge)
	s.log.Debug("Sweeping unconfirmed registrations", "cutoff", cutoff)

	stale, err := s.enrollments.ListUnconfirmedBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("Failed to list unconfirmed registrations", "error", err)
		return 0, err
	}

	removed := 0
	var errs []error
	for _, e := range stale {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ok, err := s.sweepOne(ctx, e.ID)
		if err != nil {
			s.log.Error("Failed to remove unconfirmed registration", "enrollment_id", e.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		s.log.Info("Unconfirmed registrations removed", "count", removed)
	}
	return removed, errors.Join(errs...)
}

func (s *Sweeper) sweepOne(ctx context.Context, id uuid.UUID) (bool, error) {
	var documentKey string
	removed := false

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.enrollments.GetForUpdate(ctx, id)
		if errors.Is(err, enrollment.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if e.Confirmed {
			return nil
		}
		if err := s.enrollments.Delete(ctx, e.ID); err != nil {
			return err
		}
		if _, err := s.orphans.Collect(ctx, e.ProfileID, enrollment.PolicyUnconfirmed); err != nil {
			return err
		}
		documentKey = e.DocumentKey
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if documentKey != "" {
		if err := s.files.Delete(ctx, documentKey); err != nil {
			s.log.Warn("Failed to delete registration document", "key", documentKey, "error", err)
		}
	}
	return removed, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("Cleanup sweeper started", "interval", s.interval, "max_age", s.maxAge)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx, time.Now()); err != nil && ctx.Err() == nil {
			s.log.Warn("Sweep finished with errors", "error", err)
		}
		select {
		case <-ctx.Done():
			s.log.Info("Cleanup sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

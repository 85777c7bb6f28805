package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/holdergate/holdergate/internal/notification"
	"github.com/holdergate/holdergate/internal/rule"
	"github.com/holdergate/holdergate/internal/user"
)

// Synchronizer runs the qualification pipeline for one user on demand and
// for the whole linked population on a schedule.
type Synchronizer struct {
	users       user.Repository
	registry    *rule.Registry
	notifier    notification.Notifier
	logger      *slog.Logger
	interval    time.Duration
	concurrency int64

	cron  *cron.Cron
	locks *userLocks
}

// New builds a synchronizer over the registered rules.
func New(users user.Repository, registry *rule.Registry, notifier notification.Notifier, logger *slog.Logger, interval time.Duration, concurrency int) *Synchronizer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Synchronizer{
		users:       users,
		registry:    registry,
		notifier:    notifier,
		logger:      logger,
		interval:    interval,
		concurrency: int64(concurrency),
		locks:       newUserLocks(),
	}
}

// Start schedules the periodic sweep. A tick that fires while the previous
// sweep is still running is skipped and logged, never queued.
func (s *Synchronizer) Start() error {
	if s.cron != nil {
		return fmt.Errorf("synchronizer already started")
	}

	clog := cronLogger{logger: s.logger}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(clog),
		cron.SkipIfStillRunning(clog),
	))

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.logger.Error("scheduled sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.cron.Start()
	s.logger.Info("synchronizer started", "interval", s.interval.String())
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep, bounded by ctx.
func (s *Synchronizer) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecuteUser runs every registered rule's check-and-reconcile pipeline
// for one user, serialized per user. Rules are isolated from each other:
// one rule's failure still lets the others report outcomes.
func (s *Synchronizer) ExecuteUser(ctx context.Context, u user.User) ([]rule.Outcome, error) {
	release := s.locks.lock(u.DirectoryID)
	defer release()

	var (
		outcomes []rule.Outcome
		errs     []error
	)
	for _, r := range s.registry.Rules() {
		result, err := r.Check(ctx, u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ruleOutcomes, err := r.Execute(ctx, u, result)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		outcomes = append(outcomes, ruleOutcomes...)
	}

	return outcomes, errors.Join(errs...)
}

// Sweep reconciles every linked user with bounded concurrency. A failing
// user is logged and skipped; the sweep continues.
func (s *Synchronizer) Sweep(ctx context.Context) error {
	started := time.Now()
	users, err := s.users.ListLinked(ctx)
	if err != nil {
		return fmt.Errorf("list linked users: %w", err)
	}

	s.logger.Info("sweep started", "users", len(users))

	sem := semaphore.NewWeighted(s.concurrency)
	var failed atomic.Int64
	for _, u := range users {
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("sweep aborted: %w", err)
		}
		u := u
		go func() {
			defer sem.Release(1)
			if _, err := s.ExecuteUser(ctx, u); err != nil {
				failed.Add(1)
				s.logger.Warn("user synchronization failed", "user", u.DirectoryID, "error", err)
			}
		}()
	}

	// Drain the semaphore to wait for the stragglers.
	if err := sem.Acquire(ctx, s.concurrency); err != nil {
		return fmt.Errorf("sweep aborted: %w", err)
	}
	sem.Release(s.concurrency)

	elapsed := time.Since(started)
	s.logger.Info("sweep completed", "users", len(users), "failed", failed.Load(), "elapsed", elapsed.String())
	if s.notifier != nil {
		msg := notification.Message{
			Kind: notification.KindSweepCompleted,
			Body: fmt.Sprintf("%d users, %d failed, %s", len(users), failed.Load(), elapsed.Round(time.Millisecond)),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("sweep notification failed", "error", err)
		}
	}
	return nil
}

// cronLogger adapts slog to the cron logging contract so skip/recover
// events land in the structured log.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

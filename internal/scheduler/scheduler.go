// Package scheduler is the orchestration core: it partitions recipients into
// fixed-size batches, staggers dispatch issuance to respect a global
// messages/second ceiling, runs each batch concurrently and aggregates
// outcomes into run statistics.
package scheduler

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/campaign-dispatcher/internal/dispatch"
	"github.com/example/campaign-dispatcher/internal/models"
)

// Config contains the pacing settings for a scheduler.
type Config struct {
	// MaxMessagesPerSecond is the global throughput ceiling. The minimum
	// inter-message delay is one second divided by this value.
	MaxMessagesPerSecond int
	// BatchSize is the number of recipients dispatched per batch window.
	BatchSize int
	// BatchPause is the fixed pause between consecutive batches.
	BatchPause time.Duration
	// MaxInFlight bounds concurrent transport calls. Zero means one full
	// batch may be in flight at once.
	MaxInFlight int
}

const (
	defaultRate      = 80
	defaultBatchSize = 50
	defaultPause     = time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxMessagesPerSecond <= 0 {
		c.MaxMessagesPerSecond = defaultRate
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BatchPause < 0 {
		c.BatchPause = defaultPause
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = c.BatchSize
	}
	return c
}

// Sender dispatches one message and reports its terminal outcome. It must
// never fail past its own boundary; all failure modes belong in the outcome.
type Sender interface {
	Dispatch(ctx context.Context, recipient models.Recipient, params []models.TemplateParameter) models.DispatchOutcome
}

// OutcomeObserver receives every outcome as it is collected. Observers run on
// the collection path and must not block for long.
type OutcomeObserver interface {
	Observe(ctx context.Context, outcome models.DispatchOutcome)
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithObserver attaches an outcome observer.
func WithObserver(obs OutcomeObserver) Option {
	return func(s *Scheduler) {
		if obs != nil {
			s.observer = obs
		}
	}
}

// Scheduler runs rate-limited batch dispatch over a recipient list. One
// Scheduler value supports repeated runs; statistics are reset per run.
type Scheduler struct {
	cfg      Config
	sender   Sender
	binder   dispatch.ParamBinder
	observer OutcomeObserver
	logger   zerolog.Logger

	mu    sync.Mutex
	stats models.RunStatistics
}

// New constructs a Scheduler.
func New(cfg Config, sender Sender, binder dispatch.ParamBinder, logger zerolog.Logger, opts ...Option) (*Scheduler, error) {
	if sender == nil {
		return nil, errors.New("scheduler: sender dependency is required")
	}
	if binder == nil {
		return nil, errors.New("scheduler: binder dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	s := &Scheduler{
		cfg:    cfg.withDefaults(),
		sender: sender,
		binder: binder,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// MessageDelay returns the minimum inter-message delay implied by the
// configured ceiling.
func (s *Scheduler) MessageDelay() time.Duration {
	return time.Second / time.Duration(s.cfg.MaxMessagesPerSecond)
}

// StaggerDelay returns the issuance delay for the dispatch at the given
// batch-relative index. The offset is batch-relative, not global: cross-batch
// pacing is enforced by the batch barrier plus BatchPause, so a global offset
// would pace batch starts twice.
func (s *Scheduler) StaggerDelay(indexWithinBatch int) time.Duration {
	return time.Duration(indexWithinBatch) * s.MessageDelay()
}

// Run dispatches every recipient and returns one outcome per recipient in
// batch-major, intra-batch completion order, plus the final statistics
// snapshot. The invariant sent+failed == total holds on return.
func (s *Scheduler) Run(ctx context.Context, recipients []models.Recipient) ([]models.DispatchOutcome, models.RunStatistics) {
	s.mu.Lock()
	s.stats.Reset(len(recipients))
	s.mu.Unlock()

	if len(recipients) == 0 {
		s.logger.Info().Msg("scheduler: nothing to dispatch")
		return nil, s.Stats()
	}

	s.logger.Info().
		Int("total", len(recipients)).
		Int("batch_size", s.cfg.BatchSize).
		Int("rate", s.cfg.MaxMessagesPerSecond).
		Dur("message_delay", s.MessageDelay()).
		Msg("scheduler: run started")

	sem := semaphore.NewWeighted(int64(s.cfg.MaxInFlight))
	outcomes := make([]models.DispatchOutcome, 0, len(recipients))

	batches := (len(recipients) + s.cfg.BatchSize - 1) / s.cfg.BatchSize
	for b := 0; b < batches; b++ {
		start := b * s.cfg.BatchSize
		end := start + s.cfg.BatchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		batch := recipients[start:end]

		results := make(chan models.DispatchOutcome, len(batch))
		var wg sync.WaitGroup
		for i, recipient := range batch {
			wg.Add(1)
			go func(idx int, r models.Recipient) {
				defer wg.Done()
				results <- s.dispatchOne(ctx, sem, idx, r)
			}(i, recipient)
		}
		wg.Wait()
		close(results)

		for outcome := range results {
			outcomes = append(outcomes, outcome)
			if s.observer != nil {
				s.observer.Observe(ctx, outcome)
			}
		}

		s.logger.Info().
			Int("batch", b+1).
			Int("batches", batches).
			Int("dispatched", len(outcomes)).
			Msg("scheduler: batch complete")

		if b < batches-1 && s.cfg.BatchPause > 0 {
			wait(ctx, s.cfg.BatchPause)
		}
	}

	stats := s.Stats()
	s.logger.Info().
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Msg("scheduler: run finished")
	return outcomes, stats
}

// Stats returns a snapshot of the current run statistics.
func (s *Scheduler) Stats() models.RunStatistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Clone()
}

// dispatchOne waits out the stagger delay, bounds in-flight sends and folds
// the outcome into the statistics. The semaphore is acquired after the delay
// so pacing is unaffected by the in-flight bound.
func (s *Scheduler) dispatchOne(ctx context.Context, sem *semaphore.Weighted, idx int, recipient models.Recipient) models.DispatchOutcome {
	var outcome models.DispatchOutcome
	if !wait(ctx, s.StaggerDelay(idx)) {
		outcome = cancelledOutcome(recipient, ctx.Err())
	} else if err := sem.Acquire(ctx, 1); err != nil {
		outcome = cancelledOutcome(recipient, err)
	} else {
		params := s.binder.Bind(recipient)
		outcome = s.sender.Dispatch(ctx, recipient, params)
		sem.Release(1)
	}

	s.mu.Lock()
	s.stats.Fold(outcome)
	s.mu.Unlock()
	return outcome
}

func cancelledOutcome(recipient models.Recipient, err error) models.DispatchOutcome {
	detail := "run interrupted"
	if err != nil {
		detail = err.Error()
	}
	return models.DispatchOutcome{
		Phone:     recipient.Phone,
		Status:    models.OutcomeFailed,
		Error:     detail,
		Timestamp: time.Now(),
	}
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Package scheduler implements write-behind persistence: completed turns are
// committed to the knowledge store outside the response path, with bounded
// retry and exponential backoff. Terminal failures surface only to logs and
// counters, never to the caller; long-term memory is best-effort.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/memory"
)

const (
	DefaultWorkers     = 2
	DefaultQueueSize   = 64
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 200 * time.Millisecond
	DefaultMaxBackoff  = 5 * time.Second
)

var (
	// ErrClosed reports scheduling after Close.
	ErrClosed = errors.New("scheduler is closed")

	// ErrQueueFull reports a dropped turn: Schedule never blocks, so a full
	// queue counts the write as lost.
	ErrQueueFull = errors.New("persistence queue full, turn dropped")
)

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Committed uint64
	Retried   uint64
	Lost      uint64
}

// Scheduler owns the background commit workers.
type Scheduler struct {
	store memory.Store
	log   zerolog.Logger

	queue  chan core.Turn
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	maxAttempts uint64
	baseBackoff time.Duration
	maxBackoff  time.Duration

	committed atomic.Uint64
	retried   atomic.Uint64
	lost      atomic.Uint64

	// mu orders Schedule's closed-check-and-send against Close's closing of
	// the queue, so a racing Schedule gets ErrClosed instead of panicking.
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// Option configures the scheduler.
type Option func(*settings)

type settings struct {
	workers     int
	queueSize   int
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	log         zerolog.Logger
}

// WithWorkers bounds concurrent commits.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithQueueSize sets the intake queue capacity.
func WithQueueSize(n int) Option {
	return func(s *settings) { s.queueSize = n }
}

// WithMaxAttempts sets the total commit attempts per turn.
func WithMaxAttempts(n int) Option {
	return func(s *settings) { s.maxAttempts = n }
}

// WithBaseBackoff sets the first retry delay; it doubles per attempt.
func WithBaseBackoff(d time.Duration) Option {
	return func(s *settings) { s.baseBackoff = d }
}

// WithLogger sets the scheduler logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// New starts a scheduler committing to store.
func New(store memory.Store, opts ...Option) *Scheduler {
	cfg := settings{
		workers:     DefaultWorkers,
		queueSize:   DefaultQueueSize,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
		maxBackoff:  DefaultMaxBackoff,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = DefaultWorkers
	}
	if cfg.queueSize <= 0 {
		cfg.queueSize = DefaultQueueSize
	}
	if cfg.maxAttempts <= 0 {
		cfg.maxAttempts = DefaultMaxAttempts
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		store:       store,
		log:         cfg.log,
		queue:       make(chan core.Turn, cfg.queueSize),
		ctx:         ctx,
		cancel:      cancel,
		maxAttempts: uint64(cfg.maxAttempts),
		baseBackoff: cfg.baseBackoff,
		maxBackoff:  cfg.maxBackoff,
	}
	for i := 0; i < cfg.workers; i++ {
		s.wg.Go(s.worker)
	}
	return s
}

// Schedule enqueues a turn for background commit. It returns immediately and
// never blocks the caller: when the queue is full the turn is counted as a
// lost write and dropped.
func (s *Scheduler) Schedule(turn core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.queue <- turn:
		return nil
	default:
		s.lost.Add(1)
		s.log.Error().Str("owner", turn.Owner).Str("turn", turn.Name).Msg("persistence queue full, write lost")
		return ErrQueueFull
	}
}

// Stats returns a counter snapshot.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Committed: s.committed.Load(),
		Retried:   s.retried.Load(),
		Lost:      s.lost.Load(),
	}
}

// Close stops intake and drains outstanding tasks for up to grace, then
// cancels whatever is still waiting on a backoff. Tasks already mid-commit
// finish their current attempt. Close is idempotent.
func (s *Scheduler) Close(grace time.Duration) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(grace):
			s.log.Warn().Dur("grace", grace).Msg("shutdown grace expired, canceling pending persistence")
			s.cancel()
			<-done
		}
		s.cancel()
	})
}

func (s *Scheduler) worker() {
	for turn := range s.queue {
		s.commit(turn)
	}
}

// commit runs one task's retry loop: attempt, back off on transient failure,
// give up after maxAttempts or on the first permanent failure.
func (s *Scheduler) commit(turn core.Turn) {
	attempts := 0
	op := func() error {
		attempts++
		err := s.store.CommitTurn(s.ctx, turn)
		if err == nil {
			return nil
		}
		if !memory.IsTransient(err) {
			return backoff.Permanent(err)
		}
		s.retried.Add(1)
		s.log.Warn().Err(err).Str("turn", turn.Name).Int("attempt", attempts).Msg("transient commit failure")
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.baseBackoff
	expo.MaxInterval = s.maxBackoff
	expo.Multiplier = 2
	expo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(expo, s.maxAttempts-1), s.ctx))
	if err != nil {
		s.lost.Add(1)
		s.log.Error().Err(err).
			Str("owner", turn.Owner).
			Str("turn", turn.Name).
			Int("attempts", attempts).
			Msg("turn permanently lost")
		return
	}
	s.committed.Add(1)
	s.log.Debug().Str("owner", turn.Owner).Str("turn", turn.Name).Msg("turn committed")
}

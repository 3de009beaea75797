// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/facegate/lib/clock"
	"github.com/bureau-foundation/facegate/lib/verify"
)

// DefaultInterval is the capture cadence.
const DefaultInterval = 600 * time.Millisecond

// ScannerConfig configures a Scanner.
type ScannerConfig struct {
	UserID   string
	Detector Detector
	Verifier Verifier
	Locker   Locker

	// Interval between capture cycles. Default: DefaultInterval.
	Interval time.Duration

	// OnChange is called with every new state, in order, from the
	// scanner's goroutines. It must not call back into the Scanner.
	OnChange func(State)

	Clock  clock.Clock
	Logger *slog.Logger
}

// Scanner runs one login session.
type Scanner struct {
	config ScannerConfig
	clock  clock.Clock
	logger *slog.Logger

	// id distinguishes sessions in logs.
	id string

	mu     sync.Mutex
	state  State
	loaded bool

	// processing is set while a cycle is in flight. Ticks that
	// arrive meanwhile are dropped.
	processing atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	closeOnce sync.Once
	lockOnce  sync.Once
	doneOnce  sync.Once
	done      chan struct{}
}

// NewScanner validates cfg and returns a Scanner in the Loading phase.
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, fmt.Errorf("session: a valid user ID is required for face login")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("session: detector is required")
	}
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("session: verifier is required")
	}
	if cfg.Locker == nil {
		return nil, fmt.Errorf("session: locker is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	id := uuid.NewString()
	return &Scanner{
		config: cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("session", id, "user_id", cfg.UserID),
		id:     id,
		state:  Initial(),
		done:   make(chan struct{}),
	}, nil
}

// ID returns the session identifier used in log lines.
func (s *Scanner) ID() string { return s.id }

// State returns a snapshot of the current state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the session reaches Success or Locked, or is
// stopped.
func (s *Scanner) Done() <-chan struct{} { return s.done }

// Start loads the detector and begins ticking. It returns
// immediately; calling it more than once has no effect.
func (s *Scanner) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.cancel = cancel
		s.mu.Unlock()

		s.wg.Add(1)
		go s.run(ctx)
	})
}

// Stop cancels the session, waits for any in-flight cycle, and closes
// the detector. It is safe to call from any state and more than once.
// A stopped scanner cannot be started.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() {
		// Consume startOnce so a later Start is a no-op. A Start
		// already in progress finishes first and leaves its cancel.
		s.startOnce.Do(func() {})

		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		s.wg.Wait()
		s.closeDetector()
		s.doneOnce.Do(func() { close(s.done) })
	})
}

func (s *Scanner) run(ctx context.Context) {
	defer s.wg.Done()

	s.processing.Store(true)
	s.load(ctx)
	if ctx.Err() != nil {
		return
	}

	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick starts a cycle unless one is running or the session is over.
func (s *Scanner) tick(ctx context.Context) {
	if s.State().Phase.Terminal() {
		return
	}
	if !s.processing.CompareAndSwap(false, true) {
		s.logger.Debug("tick skipped, cycle in flight")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle(ctx)
	}()
}

// load opens the detector and reports Ready or a failed attempt. The
// caller holds the processing guard; load releases it.
func (s *Scanner) load(ctx context.Context) {
	if err := s.config.Detector.Load(ctx); err != nil {
		if ctx.Err() != nil {
			s.processing.Store(false)
			return
		}
		s.logger.Warn("detector load failed", "error", err)
		s.finish(ctx, loadFailure(err))
		return
	}
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	s.finish(ctx, Ready{})
}

// cycle runs one capture: detect, then verify if exactly one face was
// found. The processing guard is released by the final transition, before
// OnChange sees the resulting state.
func (s *Scanner) cycle(ctx context.Context) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		s.load(ctx)
		return
	}

	s.step(ctx, ScanStarted{})

	faces, err := s.config.Detector.Detect(ctx)
	if err != nil {
		s.finish(ctx, Failed{Cause: CauseVerifyError, Detail: err.Error()})
		return
	}
	switch len(faces) {
	case 0:
		s.finish(ctx, Failed{Cause: CauseNoFace})
		return
	case 1:
	default:
		s.finish(ctx, Failed{Cause: CauseMultipleFaces})
		return
	}

	s.step(ctx, FaceMatched{})

	decision, err := s.config.Verifier.Verify(ctx, s.config.UserID, faces[0].Descriptor)
	if err != nil {
		s.finish(ctx, Failed{Cause: CauseVerifyError, Detail: err.Error()})
		return
	}
	s.finish(ctx, Verified{Decision: decision})
}

// step applies an intermediate event without releasing the guard.
func (s *Scanner) step(ctx context.Context, event Event) {
	s.transition(ctx, event, false)
}

// finish applies the cycle's last event and releases the guard.
func (s *Scanner) finish(ctx context.Context, event Event) {
	s.transition(ctx, event, true)
}

func (s *Scanner) transition(ctx context.Context, event Event, release bool) {
	if ctx.Err() != nil {
		if release {
			s.processing.Store(false)
		}
		return
	}

	s.mu.Lock()
	previous := s.state
	s.state = Next(previous, event)
	current := s.state
	if release {
		s.processing.Store(false)
	}
	s.mu.Unlock()

	if current.Phase == previous.Phase && current.Attempts == previous.Attempts && current.Message == previous.Message {
		return
	}
	if current.Attempts > previous.Attempts {
		s.logger.Warn("authentication attempt failed",
			"cause", current.Cause,
			"attempts", current.Attempts,
			"max_attempts", MaxAttempts,
		)
	}
	if s.config.OnChange != nil {
		s.config.OnChange(current)
	}

	switch current.Phase {
	case PhaseSuccess:
		s.logger.Info("authentication succeeded")
		s.terminate()
	case PhaseLocked:
		s.lock(ctx)
		s.terminate()
	}
}

// lock calls the Locker once. The call outlives cancellation of the
// session context: a lockout must reach the daemon even if the caller
// is stopping.
func (s *Scanner) lock(ctx context.Context) {
	s.lockOnce.Do(func() {
		s.logger.Warn("maximum attempts reached, locking system")
		err := s.config.Locker.LockSystem(context.WithoutCancel(ctx), s.config.UserID, verify.ReasonMaxAttempts)
		if err != nil {
			s.logger.Error("system lock failed", "error", err)
		}
	})
}

// terminate releases the camera and signals Done. The loop goroutine
// exits on Done.
func (s *Scanner) terminate() {
	s.closeDetector()
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Scanner) closeDetector() {
	s.closeOnce.Do(func() {
		if err := s.config.Detector.Close(); err != nil {
			s.logger.Warn("closing detector failed", "error", err)
		}
	})
}

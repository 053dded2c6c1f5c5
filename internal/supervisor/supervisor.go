// Package supervisor keeps the relay process in the foreground so capture
// listeners and bindings stay alive.
//
// The supervisor owns a three-state machine (stopped, starting, foreground).
// Start asks the Platform for a data-sync grant and retries once without a
// classification when the platform refuses. Start and Stop are idempotent:
// the host may call them redundantly from resume, boot and command paths.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/capture-relay/internal/metrics"
)

// ErrPromotionRejected is returned by a Platform that refuses the requested
// foreground classification.
var ErrPromotionRejected = errors.New("foreground promotion rejected")

// Settings keys for the sticky-restart flag.
const (
	SettingsNamespace = "keepalive"
	StickyKey         = "sticky"
)

// Platform grants and revokes the foreground state.
type Platform interface {
	Promote(ctx context.Context, ind Indicator, class Class) error
	Demote(ctx context.Context) error
}

// Settings persists the sticky flag. Implemented by *store.Store.
type Settings interface {
	Setting(ctx context.Context, namespace, key string) (string, bool, error)
	PutSetting(ctx context.Context, namespace, key, value string) error
	DeleteSetting(ctx context.Context, namespace, key string) error
}

// Supervisor is the keep-alive supervisor.
type Supervisor struct {
	platform  Platform
	settings  Settings
	indicator Indicator
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	// mu guards the fields below. Never held across platform calls.
	mu       sync.Mutex
	state    State
	degraded bool
	class    Class
	since    time.Time
	gen      uint64

	// stickyMu orders writes of the sticky flag. A mark from a Start that
	// a Stop has overtaken is skipped, and Stop's clear waits for any
	// mark already in flight.
	stickyMu sync.Mutex
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithSettings enables the sticky-restart flag.
func WithSettings(st Settings) Option {
	return func(s *Supervisor) { s.settings = st }
}

// WithIndicator overrides the status indicator.
func WithIndicator(ind Indicator) Option {
	return func(s *Supervisor) { s.indicator = ind }
}

// WithClock sets the time source for Snapshot.Since.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// New creates a stopped Supervisor.
func New(platform Platform, opts ...Option) *Supervisor {
	s := &Supervisor{
		platform:  platform,
		indicator: DefaultIndicator("Relay", "Running in background for message capture"),
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.since = s.now()
	s.metrics.SetKeepAliveState(int(s.state))
	return s
}

// Start promotes the process to the foreground.
//
// A no-op when already foreground or when another Start is in progress. If
// the platform rejects both the data-sync and the unclassified grant, the
// supervisor stays in StateStarting with Degraded set and returns nil; a
// later Start retries. Any other platform error moves the supervisor back to
// StateStopped and is returned.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateForeground || (s.state == StateStarting && !s.degraded) {
		st := s.state
		s.mu.Unlock()
		s.log.Debug("keep-alive already running", "state", st)
		return nil
	}
	s.setState(StateStarting)
	s.degraded = false
	gen := s.gen
	s.mu.Unlock()

	class, err := s.promote(ctx)

	s.mu.Lock()
	if s.gen != gen {
		// Stopped while promoting.
		s.mu.Unlock()
		if err == nil {
			if derr := s.platform.Demote(ctx); derr != nil {
				s.log.Warn("error releasing grant after concurrent stop", "error", derr)
			}
		}
		return nil
	}

	switch {
	case err == nil:
		s.setState(StateForeground)
		s.class = class
		s.mu.Unlock()
		s.log.Info("keep-alive in foreground", "class", class)
		s.markSticky(ctx, gen)
		return nil

	case errors.Is(err, ErrPromotionRejected):
		s.degraded = true
		s.mu.Unlock()
		s.log.Error("foreground promotion rejected, running without grant", "error", err)
		return nil

	default:
		s.setState(StateStopped)
		s.mu.Unlock()
		s.log.Error("error starting keep-alive", "error", err)
		return fmt.Errorf("start keep-alive: %w", err)
	}
}

// promote requests the data-sync grant, falling back to an unclassified one.
func (s *Supervisor) promote(ctx context.Context) (Class, error) {
	err := s.platform.Promote(ctx, s.indicator, ClassDataSync)
	s.countPromotion(ClassDataSync, err)
	if err == nil {
		return ClassDataSync, nil
	}
	if !errors.Is(err, ErrPromotionRejected) {
		return "", err
	}

	s.log.Warn("data-sync promotion rejected, retrying without classification", "error", err)
	err = s.platform.Promote(ctx, s.indicator, ClassNone)
	s.countPromotion(ClassNone, err)
	if err != nil {
		return "", err
	}
	return ClassNone, nil
}

func (s *Supervisor) countPromotion(class Class, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrPromotionRejected):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	s.metrics.Promotion(string(class), result)
}

// Stop releases the foreground grant. A no-op when already stopped. The
// supervisor ends in StateStopped even when the platform fails to demote;
// that error is logged and returned.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	s.setState(StateStopped)
	s.degraded = false
	s.class = ""
	s.mu.Unlock()

	s.clearSticky(ctx)

	if err := s.platform.Demote(ctx); err != nil {
		s.log.Error("error stopping keep-alive", "error", err)
		return fmt.Errorf("stop keep-alive: %w", err)
	}
	s.log.Info("keep-alive stopped")
	return nil
}

// RestartIfSticky starts the supervisor when the previous process held the
// foreground grant and was not stopped explicitly. Reports whether a restart
// was attempted.
func (s *Supervisor) RestartIfSticky(ctx context.Context) (bool, error) {
	if s.settings == nil {
		return false, nil
	}
	_, ok, err := s.settings.Setting(ctx, SettingsNamespace, StickyKey)
	if err != nil {
		return false, fmt.Errorf("read sticky flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.log.Info("restarting keep-alive after unclean exit")
	return true, s.Start(ctx)
}

// Snapshot returns the current state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:    s.state,
		Degraded: s.degraded,
		Class:    s.class,
		Since:    s.since,
	}
}

// setState must be called with mu held.
func (s *Supervisor) setState(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.since = s.now()
	s.metrics.SetKeepAliveState(int(st))
}

func (s *Supervisor) markSticky(ctx context.Context, gen uint64) {
	if s.settings == nil {
		return
	}
	s.stickyMu.Lock()
	defer s.stickyMu.Unlock()

	s.mu.Lock()
	stopped := s.gen != gen
	s.mu.Unlock()
	if stopped {
		s.log.Debug("keep-alive stopped before sticky flag was saved")
		return
	}
	if err := s.settings.PutSetting(ctx, SettingsNamespace, StickyKey, "1"); err != nil {
		s.log.Warn("error saving sticky flag", "error", err)
	}
}

func (s *Supervisor) clearSticky(ctx context.Context) {
	if s.settings == nil {
		return
	}
	s.stickyMu.Lock()
	defer s.stickyMu.Unlock()
	if err := s.settings.DeleteSetting(ctx, SettingsNamespace, StickyKey); err != nil {
		s.log.Warn("error clearing sticky flag", "error", err)
	}
}

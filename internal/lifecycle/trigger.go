// Package lifecycle restarts the keep-alive supervisor after host boot and
// after the relay binary is upgraded.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
)

// Signal is a host lifecycle signal.
type Signal string

const (
	SignalBootCompleted   Signal = "boot-completed"
	SignalPackageReplaced Signal = "package-replaced"
)

// ParseSignal returns the Signal named name. Unknown names report false.
func ParseSignal(name string) (Signal, bool) {
	switch s := Signal(name); s {
	case SignalBootCompleted, SignalPackageReplaced:
		return s, true
	default:
		return "", false
	}
}

// Starter starts the keep-alive supervisor. Implemented by
// *supervisor.Supervisor.
type Starter interface {
	Start(ctx context.Context) error
}

// Trigger reacts to lifecycle signals.
type Trigger struct {
	starter Starter
	log     *slog.Logger
}

// NewTrigger creates a Trigger. A nil logger uses slog.Default().
func NewTrigger(starter Starter, log *slog.Logger) *Trigger {
	if log == nil {
		log = slog.Default()
	}
	return &Trigger{starter: starter, log: log}
}

// OnSignal starts the supervisor for boot-completed and package-replaced
// and ignores everything else. It reports whether sig was handled. Start
// failures, including panics, are logged and never propagate.
func (t *Trigger) OnSignal(ctx context.Context, sig Signal) bool {
	if _, ok := ParseSignal(string(sig)); !ok {
		t.log.Debug("ignoring lifecycle signal", "signal", sig)
		return false
	}

	t.log.Info("lifecycle signal, starting keep-alive", "signal", sig)
	if err := t.start(ctx); err != nil {
		t.log.Error("error starting keep-alive", "signal", sig, "error", err)
	}
	return true
}

func (t *Trigger) start(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return t.starter.Start(ctx)
}

// Package host handles the app host's own callbacks: the consumer UI coming
// back to the foreground and shortcut intents launched from outside it.
package host

import (
	"context"
	"log/slog"

	"github.com/roach88/capture-relay/internal/event"
)

// Shortcut intent actions and the UI methods they open.
const (
	ActionAddIncome  = "ADD_INCOME"
	ActionAddExpense = "ADD_EXPENSE"

	MethodShowAddIncomeDialog  = "showAddIncomeDialog"
	MethodShowAddExpenseDialog = "showAddExpenseDialog"
)

var routes = map[string]string{
	ActionAddIncome:  MethodShowAddIncomeDialog,
	ActionAddExpense: MethodShowAddExpenseDialog,
}

// Intent is a launch request delivered to the host.
type Intent struct {
	Action string `json:"action"`
}

// Starter starts the keep-alive supervisor.
type Starter interface {
	Start(ctx context.Context) error
}

// Invoker calls a method on the consumer bound for a category. Implemented
// by *binding.Registry.
type Invoker interface {
	Invoke(ctx context.Context, category event.Category, method string, args map[string]any) error
}

// Host routes resume and intent callbacks.
type Host struct {
	keepAlive Starter
	bindings  Invoker
	log       *slog.Logger
}

// New creates a Host. A nil logger uses slog.Default().
func New(keepAlive Starter, bindings Invoker, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{keepAlive: keepAlive, bindings: bindings, log: log}
}

// OnResume starts keep-alive and routes the intent the UI resumed with.
// Returns the UI method invoked, or "" when the intent was not routed.
func (h *Host) OnResume(ctx context.Context, in *Intent) string {
	if err := h.keepAlive.Start(ctx); err != nil {
		h.log.Error("error starting keep-alive on resume", "error", err)
	}
	return h.route(ctx, in)
}

// OnNewIntent routes an intent delivered while the UI is already running.
func (h *Host) OnNewIntent(ctx context.Context, in *Intent) string {
	return h.route(ctx, in)
}

// route invokes the UI method for a shortcut action and clears the action
// so the same intent is not routed twice. UI prompts are not queued: with no
// app binding the prompt is dropped.
func (h *Host) route(ctx context.Context, in *Intent) string {
	if in == nil {
		return ""
	}
	h.log.Debug("handling intent", "action", in.Action)

	method, ok := routes[in.Action]
	if !ok {
		return ""
	}
	if err := h.bindings.Invoke(ctx, event.CategoryApp, method, nil); err != nil {
		h.log.Warn("error invoking ui method", "method", method, "error", err)
	}
	in.Action = ""
	return method
}

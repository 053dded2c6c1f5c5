// Package commands implements the command surface the consumer calls into:
// permission prompts, the keep-alive switch and processing acknowledgements.
//
// Each command replies with a result or a *CommandError carrying the code
// for that command. Unknown methods reply NOT_IMPLEMENTED.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
)

// Method names. Older consumers use the aliases in aliases.
const (
	MethodRequestPermission     = "requestPermission"
	MethodCheckPermission       = "checkPermission"
	MethodRequestPowerExemption = "requestPowerExemption"
	MethodStartKeepAlive        = "startKeepAlive"
	MethodStopKeepAlive         = "stopKeepAlive"
	MethodProcessNotification   = "processNotification"
	MethodProcessSMS            = "processSms"
)

var aliases = map[string]string{
	"requestNotificationPermission": MethodRequestPermission,
	"checkNotificationPermission":   MethodCheckPermission,
	"requestBatteryOptimization":    MethodRequestPowerExemption,
	"startKeepAliveService":         MethodStartKeepAlive,
	"stopKeepAliveService":          MethodStopKeepAlive,
}

// Settings location holding the colon-separated list of enabled
// notification listeners.
const (
	PermissionNamespace = "settings"
	PermissionKey       = "enabled_notification_listeners"
)

// Settings is the key-value store the dispatcher reads permissions from.
// Implemented by *store.Store.
type Settings interface {
	Setting(ctx context.Context, namespace, key string) (string, bool, error)
	PutSetting(ctx context.Context, namespace, key, value string) error
}

// KeepAlive is the supervisor switch. Implemented by *supervisor.Supervisor.
type KeepAlive interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type handlerFunc func(ctx context.Context, args map[string]any) (any, error)

type handler struct {
	fn   handlerFunc
	code Code
}

// Dispatcher routes consumer commands.
type Dispatcher struct {
	keepAlive KeepAlive
	settings  Settings
	launcher  Launcher
	packageID string
	log       *slog.Logger
	handlers  map[string]handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLauncher sets the settings-screen launcher.
// Default: a SettingsLauncher over the dispatcher's settings.
func WithLauncher(l Launcher) Option {
	return func(d *Dispatcher) { d.launcher = l }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New creates a Dispatcher. packageID is the identifier looked up in the
// enabled listener list.
func New(keepAlive KeepAlive, settings Settings, packageID string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		keepAlive: keepAlive,
		settings:  settings,
		packageID: packageID,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.launcher == nil {
		d.launcher = NewSettingsLauncher(settings, d.log)
	}

	d.handlers = map[string]handler{
		MethodRequestPermission:     {d.requestPermission, CodePermission},
		MethodCheckPermission:       {d.checkPermission, CodePermissionCheck},
		MethodRequestPowerExemption: {d.requestPowerExemption, CodeBatteryOptimization},
		MethodStartKeepAlive:        {d.startKeepAlive, CodeKeepAlive},
		MethodStopKeepAlive:         {d.stopKeepAlive, CodeKeepAlive},
		MethodProcessNotification:   {d.processNotification, CodeProcessing},
		MethodProcessSMS:            {d.processSMS, CodeSMSProcessing},
	}
	return d
}

// Methods returns every accepted method name, aliases included, sorted.
func (d *Dispatcher) Methods() []string {
	out := make([]string, 0, len(d.handlers)+len(aliases))
	for m := range d.handlers {
		out = append(out, m)
	}
	for a := range aliases {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Handle runs one command.
func (d *Dispatcher) Handle(ctx context.Context, method string, args map[string]any) (result any, cerr *CommandError) {
	name := method
	if canonical, ok := aliases[method]; ok {
		name = canonical
	}

	h, ok := d.handlers[name]
	if !ok {
		return nil, &CommandError{Code: CodeNotImplemented, Message: fmt.Sprintf("method %q not implemented", method)}
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			cerr = &CommandError{Code: h.code, Message: fmt.Sprintf("panic: %v", p)}
		}
	}()

	res, err := h.fn(ctx, args)
	if err != nil {
		d.log.Error("command failed", "method", name, "code", h.code, "error", err)
		return nil, &CommandError{Code: h.code, Message: err.Error()}
	}
	return res, nil
}

func (d *Dispatcher) requestPermission(ctx context.Context, _ map[string]any) (any, error) {
	if err := d.launcher.Launch(ctx, ScreenNotificationListenerSettings, d.packageID); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) checkPermission(ctx context.Context, _ map[string]any) (any, error) {
	return d.PermissionGranted(ctx)
}

// PermissionGranted reports whether the enabled listener list has an entry
// for the relay's package id. An entry is either the bare id or a component
// name "<id>/<class>"; another package whose id merely contains the relay's
// does not count.
func (d *Dispatcher) PermissionGranted(ctx context.Context) (bool, error) {
	flat, ok, err := d.settings.Setting(ctx, PermissionNamespace, PermissionKey)
	if err != nil || !ok || d.packageID == "" {
		return false, err
	}
	return slices.ContainsFunc(splitList(flat), func(entry string) bool {
		id, _, _ := strings.Cut(entry, "/")
		return id == d.packageID
	}), nil
}

func (d *Dispatcher) requestPowerExemption(ctx context.Context, _ map[string]any) (any, error) {
	if err := d.launcher.Launch(ctx, ScreenIgnoreBatteryOptimizations, "package:"+d.packageID); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) startKeepAlive(ctx context.Context, _ map[string]any) (any, error) {
	if err := d.keepAlive.Start(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) stopKeepAlive(ctx context.Context, _ map[string]any) (any, error) {
	if err := d.keepAlive.Stop(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) processNotification(_ context.Context, args map[string]any) (any, error) {
	d.log.Debug("processing notification",
		"full_text", stringArg(args, "fullText"),
		"package", stringArg(args, "packageName"))
	return true, nil
}

func (d *Dispatcher) processSMS(_ context.Context, args map[string]any) (any, error) {
	d.log.Debug("processing sms",
		"sender", stringArg(args, "sender"),
		"body", stringArg(args, "body"))
	return true, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// GrantPermission adds packageID to the enabled listener list.
func GrantPermission(ctx context.Context, settings Settings, packageID string) error {
	flat, _, err := settings.Setting(ctx, PermissionNamespace, PermissionKey)
	if err != nil {
		return err
	}
	ids := splitList(flat)
	if slices.Contains(ids, packageID) {
		return nil
	}
	return settings.PutSetting(ctx, PermissionNamespace, PermissionKey, strings.Join(append(ids, packageID), ":"))
}

// RevokePermission removes packageID from the enabled listener list.
func RevokePermission(ctx context.Context, settings Settings, packageID string) error {
	flat, ok, err := settings.Setting(ctx, PermissionNamespace, PermissionKey)
	if err != nil || !ok {
		return err
	}
	ids := slices.DeleteFunc(splitList(flat), func(id string) bool { return id == packageID })
	return settings.PutSetting(ctx, PermissionNamespace, PermissionKey, strings.Join(ids, ":"))
}

func splitList(flat string) []string {
	return slices.DeleteFunc(strings.Split(flat, ":"), func(s string) bool { return s == "" })
}

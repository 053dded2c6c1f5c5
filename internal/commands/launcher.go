package commands

import (
	"context"
	"log/slog"
	"time"
)

// Settings screens a Launcher can open.
const (
	ScreenNotificationListenerSettings = "notification-listener-settings"
	ScreenIgnoreBatteryOptimizations   = "ignore-battery-optimizations"
)

// LauncherNamespace is the settings namespace where SettingsLauncher
// records requests.
const LauncherNamespace = "launcher"

// Launcher opens a host settings screen for the user.
type Launcher interface {
	Launch(ctx context.Context, screen, target string) error
}

// SettingsLauncher logs each request and records it in the settings store,
// keyed by screen, so an external agent can present it.
type SettingsLauncher struct {
	settings Settings
	log      *slog.Logger
	now      func() time.Time
}

// NewSettingsLauncher creates a SettingsLauncher.
func NewSettingsLauncher(settings Settings, log *slog.Logger) *SettingsLauncher {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsLauncher{settings: settings, log: log, now: time.Now}
}

// Launch implements Launcher.
func (l *SettingsLauncher) Launch(ctx context.Context, screen, target string) error {
	l.log.Info("settings screen requested", "screen", screen, "target", target)
	return l.settings.PutSetting(ctx, LauncherNamespace, screen, target+"@"+l.now().UTC().Format(time.RFC3339))
}

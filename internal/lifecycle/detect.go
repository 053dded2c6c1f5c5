package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// DefaultBootIDPath holds an id the kernel regenerates on every boot.
const DefaultBootIDPath = "/proc/sys/kernel/random/boot_id"

// Settings keys recording what the previous run observed.
const (
	SettingsNamespace = "lifecycle"
	BootIDKey         = "boot_id"
	VersionKey        = "version"
)

// Settings persists the observed boot id and version. Implemented by
// *store.Store.
type Settings interface {
	Setting(ctx context.Context, namespace, key string) (string, bool, error)
	PutSetting(ctx context.Context, namespace, key, value string) error
}

// Detector works out which lifecycle signals the host would have sent since
// the previous run: a changed boot id means the host rebooted, a changed
// binary version means the relay was upgraded.
type Detector struct {
	settings   Settings
	version    string
	bootIDPath string
	log        *slog.Logger
}

// NewDetector creates a Detector for the running binary version.
func NewDetector(settings Settings, version string, log *slog.Logger) *Detector {
	if log == nil {
		log = slog.Default()
	}
	return &Detector{
		settings:   settings,
		version:    version,
		bootIDPath: DefaultBootIDPath,
		log:        log,
	}
}

// WithBootIDPath overrides where the boot id is read from.
func (d *Detector) WithBootIDPath(path string) *Detector {
	d.bootIDPath = path
	return d
}

// Detect compares the current boot id and version with the stored ones,
// stores the current values, and returns the signals to fire. The first run
// on a fresh store fires nothing.
func (d *Detector) Detect(ctx context.Context) ([]Signal, error) {
	var signals []Signal

	bootID, err := d.readBootID()
	if err != nil {
		d.log.Warn("boot id unavailable, skipping boot detection", "path", d.bootIDPath, "error", err)
	} else {
		changed, err := d.observe(ctx, BootIDKey, bootID)
		if err != nil {
			return nil, err
		}
		if changed {
			signals = append(signals, SignalBootCompleted)
		}
	}

	if d.version != "" {
		changed, err := d.observe(ctx, VersionKey, d.version)
		if err != nil {
			return nil, err
		}
		if changed {
			signals = append(signals, SignalPackageReplaced)
		}
	}

	if len(signals) > 0 {
		d.log.Info("lifecycle change detected", "signals", signals)
	}
	return signals, nil
}

// observe stores value under key and reports whether it differs from a
// previously stored value.
func (d *Detector) observe(ctx context.Context, key, value string) (bool, error) {
	prev, ok, err := d.settings.Setting(ctx, SettingsNamespace, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if ok && prev == value {
		return false, nil
	}
	if err := d.settings.PutSetting(ctx, SettingsNamespace, key, value); err != nil {
		return false, fmt.Errorf("save %s: %w", key, err)
	}
	return ok, nil
}

func (d *Detector) readBootID() (string, error) {
	data, err := os.ReadFile(d.bootIDPath)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", fmt.Errorf("empty boot id")
	}
	return id, nil
}

package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capture-relay/internal/testutil"
)

type starterFunc func(context.Context) error

func (f starterFunc) Start(ctx context.Context) error { return f(ctx) }

func countingStarter(n *atomic.Int32, err error) Starter {
	return starterFunc(func(context.Context) error {
		n.Add(1)
		return err
	})
}

func TestOnSignal_StartsForLifecycleSignals(t *testing.T) {
	for _, sig := range []Signal{SignalBootCompleted, SignalPackageReplaced} {
		t.Run(string(sig), func(t *testing.T) {
			var n atomic.Int32
			tr := NewTrigger(countingStarter(&n, nil), nil)

			assert.True(t, tr.OnSignal(context.Background(), sig))
			assert.Equal(t, int32(1), n.Load())
		})
	}
}

func TestOnSignal_IgnoresOtherSignals(t *testing.T) {
	var n atomic.Int32
	tr := NewTrigger(countingStarter(&n, nil), nil)

	assert.False(t, tr.OnSignal(context.Background(), "screen-on"))
	assert.Zero(t, n.Load())
}

func TestOnSignal_SwallowsStartErrors(t *testing.T) {
	var n atomic.Int32
	tr := NewTrigger(countingStarter(&n, errors.New("denied")), nil)

	assert.True(t, tr.OnSignal(context.Background(), SignalBootCompleted))
	assert.Equal(t, int32(1), n.Load())
}

func TestOnSignal_SwallowsPanics(t *testing.T) {
	tr := NewTrigger(starterFunc(func(context.Context) error { panic("boom") }), nil)

	assert.NotPanics(t, func() {
		tr.OnSignal(context.Background(), SignalPackageReplaced)
	})
}

func TestParseSignal(t *testing.T) {
	s, ok := ParseSignal("boot-completed")
	assert.True(t, ok)
	assert.Equal(t, SignalBootCompleted, s)

	_, ok = ParseSignal("reboot")
	assert.False(t, ok)
}

func writeBootID(t *testing.T, path, id string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(id+"\n"), 0o644))
}

func TestDetect_FirstRunFiresNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot_id")
	writeBootID(t, path, "boot-a")
	kv := testutil.NewMemoryKV()

	got, err := NewDetector(kv, "v1", nil).WithBootIDPath(path).Detect(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
	id, ok, err := kv.Setting(context.Background(), SettingsNamespace, BootIDKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "boot-a", id)
}

func TestDetect_Changes(t *testing.T) {
	tests := []struct {
		name    string
		bootID  string
		version string
		want    []Signal
	}{
		{"unchanged", "boot-a", "v1", nil},
		{"reboot", "boot-b", "v1", []Signal{SignalBootCompleted}},
		{"upgrade", "boot-a", "v2", []Signal{SignalPackageReplaced}},
		{"both", "boot-b", "v2", []Signal{SignalBootCompleted, SignalPackageReplaced}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "boot_id")
			kv := testutil.NewMemoryKV()

			writeBootID(t, path, "boot-a")
			_, err := NewDetector(kv, "v1", nil).WithBootIDPath(path).Detect(ctx)
			require.NoError(t, err)

			writeBootID(t, path, tt.bootID)
			got, err := NewDetector(kv, tt.version, nil).WithBootIDPath(path).Detect(ctx)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_MissingBootIDStillChecksVersion(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewMemoryKV()
	require.NoError(t, kv.PutSetting(ctx, SettingsNamespace, VersionKey, "v1"))
	missing := filepath.Join(t.TempDir(), "nope")

	got, err := NewDetector(kv, "v2", nil).WithBootIDPath(missing).Detect(ctx)

	require.NoError(t, err)
	assert.Equal(t, []Signal{SignalPackageReplaced}, got)
}

func TestDetect_StoreFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot_id")
	writeBootID(t, path, "boot-a")
	kv := testutil.NewMemoryKV()
	kv.SetFailing(true)

	_, err := NewDetector(kv, "v1", nil).WithBootIDPath(path).Detect(context.Background())

	require.ErrorIs(t, err, testutil.ErrInjected)
}

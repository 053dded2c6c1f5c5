package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capture-relay/internal/testutil"
)

type fakeKeepAlive struct {
	starts, stops int
	err           error
}

func (f *fakeKeepAlive) Start(context.Context) error { f.starts++; return f.err }
func (f *fakeKeepAlive) Stop(context.Context) error  { f.stops++; return f.err }

type fakeLauncher struct {
	screens []string
	err     error
}

func (f *fakeLauncher) Launch(_ context.Context, screen, _ string) error {
	f.screens = append(f.screens, screen)
	return f.err
}

const pkg = "org.example.relay"

func newDispatcher() (*Dispatcher, *fakeKeepAlive, *fakeLauncher, *testutil.MemoryKV) {
	ka := &fakeKeepAlive{}
	l := &fakeLauncher{}
	kv := testutil.NewMemoryKV()
	return New(ka, kv, pkg, WithLauncher(l)), ka, l, kv
}

func TestHandle_MethodsAndAliases(t *testing.T) {
	tests := []struct {
		method string
		starts int
		stops  int
		screen string
	}{
		{method: "startKeepAlive", starts: 1},
		{method: "startKeepAliveService", starts: 1},
		{method: "stopKeepAlive", stops: 1},
		{method: "stopKeepAliveService", stops: 1},
		{method: "requestPermission", screen: ScreenNotificationListenerSettings},
		{method: "requestNotificationPermission", screen: ScreenNotificationListenerSettings},
		{method: "requestPowerExemption", screen: ScreenIgnoreBatteryOptimizations},
		{method: "requestBatteryOptimization", screen: ScreenIgnoreBatteryOptimizations},
		{method: "processSms"},
		{method: "processNotification"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			d, ka, l, _ := newDispatcher()

			got, cerr := d.Handle(context.Background(), tt.method, map[string]any{"body": "x"})

			require.Nil(t, cerr)
			assert.Equal(t, true, got)
			assert.Equal(t, tt.starts, ka.starts)
			assert.Equal(t, tt.stops, ka.stops)
			if tt.screen != "" {
				assert.Equal(t, []string{tt.screen}, l.screens)
			} else {
				assert.Empty(t, l.screens)
			}
		})
	}
}

func TestHandle_ErrorCodes(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		method string
		want   Code
	}{
		{"startKeepAlive", CodeKeepAlive},
		{"stopKeepAliveService", CodeKeepAlive},
		{"requestPermission", CodePermission},
		{"requestBatteryOptimization", CodeBatteryOptimization},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			d, ka, l, _ := newDispatcher()
			ka.err = boom
			l.err = boom

			got, cerr := d.Handle(context.Background(), tt.method, nil)

			assert.Nil(t, got)
			require.NotNil(t, cerr)
			assert.Equal(t, tt.want, cerr.Code)
			assert.Equal(t, "boom", cerr.Message)
		})
	}
}

func TestHandle_CheckPermissionStoreError(t *testing.T) {
	d, _, _, kv := newDispatcher()
	kv.SetFailing(true)

	_, cerr := d.Handle(context.Background(), "checkNotificationPermission", nil)

	require.NotNil(t, cerr)
	assert.Equal(t, CodePermissionCheck, cerr.Code)
}

func TestHandle_UnknownMethod(t *testing.T) {
	d, _, _, _ := newDispatcher()

	_, cerr := d.Handle(context.Background(), "launchMissiles", nil)

	require.NotNil(t, cerr)
	assert.Equal(t, CodeNotImplemented, cerr.Code)
	assert.Contains(t, cerr.Message, "launchMissiles")
}

func TestHandle_PanicMapsToCommandCode(t *testing.T) {
	d, _, _, _ := newDispatcher()
	d.keepAlive = nil

	_, cerr := d.Handle(context.Background(), "startKeepAlive", nil)

	require.NotNil(t, cerr)
	assert.Equal(t, CodeKeepAlive, cerr.Code)
}

func TestCheckPermission(t *testing.T) {
	ctx := context.Background()
	d, _, _, kv := newDispatcher()

	got, cerr := d.Handle(ctx, "checkPermission", nil)
	require.Nil(t, cerr)
	assert.Equal(t, false, got)

	require.NoError(t, GrantPermission(ctx, kv, "com.other/Listener"))
	require.NoError(t, GrantPermission(ctx, kv, pkg+"/Listener"))
	got, cerr = d.Handle(ctx, "checkPermission", nil)
	require.Nil(t, cerr)
	assert.Equal(t, true, got)

	require.NoError(t, RevokePermission(ctx, kv, pkg+"/Listener"))
	got, cerr = d.Handle(ctx, "checkPermission", nil)
	require.Nil(t, cerr)
	assert.Equal(t, false, got)
}

func TestCheckPermission_MatchesWholePackageID(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		list string
		want bool
	}{
		"longer id listed":   {list: pkg + ".other/Listener", want: false},
		"id as prefix":       {list: pkg + "x", want: false},
		"id as suffix":       {list: "com." + pkg, want: false},
		"bare id":            {list: "com.other:" + pkg, want: true},
		"component name":     {list: pkg + "/Listener:com.other/Listener", want: true},
		"empty entries only": {list: "::", want: false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			d, _, _, kv := newDispatcher()
			require.NoError(t, kv.PutSetting(ctx, PermissionNamespace, PermissionKey, tt.list))

			got, err := d.PermissionGranted(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrantPermission_Idempotent(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewMemoryKV()

	require.NoError(t, GrantPermission(ctx, kv, pkg))
	require.NoError(t, GrantPermission(ctx, kv, pkg))

	flat, _, err := kv.Setting(ctx, PermissionNamespace, PermissionKey)
	require.NoError(t, err)
	assert.Equal(t, pkg, flat)
}

func TestSettingsLauncher_RecordsRequest(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewMemoryKV()
	d := New(&fakeKeepAlive{}, kv, pkg)

	_, cerr := d.Handle(ctx, "requestPowerExemption", nil)
	require.Nil(t, cerr)

	v, ok, err := kv.Setting(ctx, LauncherNamespace, ScreenIgnoreBatteryOptimizations)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(v, "package:"+pkg+"@"))
}

func TestMethods(t *testing.T) {
	d, _, _, _ := newDispatcher()

	got := d.Methods()

	assert.Contains(t, got, "checkPermission")
	assert.Contains(t, got, "checkNotificationPermission")
	assert.Len(t, got, 12)
}

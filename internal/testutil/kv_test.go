package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_StringSet(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.PutStringSet(ctx, "ns", "k", []string{"a", "b", "a"}))

	got, err := kv.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, kv.Puts())
}

func TestMemoryKV_AddToStringSet(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	for _, m := range []string{"a", "b", "a"} {
		_, err := kv.AddToStringSet(ctx, "ns", "k", m)
		require.NoError(t, err)
	}
	size, err := kv.AddToStringSet(ctx, "ns", "k", "c")
	require.NoError(t, err)

	assert.Equal(t, 3, size)
	got, err := kv.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 4, kv.Adds())
	assert.Zero(t, kv.Puts())
}

func TestMemoryKV_Failing(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	kv.SetFailing(true)

	_, err := kv.StringSet(ctx, "ns", "k")
	assert.ErrorIs(t, err, ErrInjected)
	assert.ErrorIs(t, kv.PutSetting(ctx, "ns", "k", "v"), ErrInjected)
	_, err = kv.AddToStringSet(ctx, "ns", "k", "a")
	assert.ErrorIs(t, err, ErrInjected)

	kv.SetFailing(false)
	require.NoError(t, kv.PutSetting(ctx, "ns", "k", "v"))
	v, ok, err := kv.Setting(ctx, "ns", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

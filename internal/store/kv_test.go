package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSet_MissingKeyIsEmpty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.StringSet(context.Background(), "pending_notifications", "queue")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPutStringSet_ReplacesAndPreservesOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutStringSet(ctx, "ns", "k", []string{"b", "a"}))
	require.NoError(t, s.PutStringSet(ctx, "ns", "k", []string{"c", "b", "a"}))

	got, err := s.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, got)
}

func TestPutStringSet_DuplicatesCollapse(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutStringSet(ctx, "ns", "k", []string{"x", "y", "x"}))

	got, err := s.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestPutStringSet_EmptyDeletes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutStringSet(ctx, "ns", "k", []string{"x"}))
	require.NoError(t, s.PutStringSet(ctx, "ns", "k", nil))

	got, err := s.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAddToStringSet_AppendsInOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, m := range []string{"c", "a", "b"} {
		size, err := s.AddToStringSet(ctx, "ns", "k", m)
		require.NoError(t, err)
		assert.Equal(t, i+1, size)
	}

	got, err := s.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestAddToStringSet_DuplicateKeepsPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutStringSet(ctx, "ns", "k", []string{"x", "y"}))

	size, err := s.AddToStringSet(ctx, "ns", "k", "x")
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	size, err = s.AddToStringSet(ctx, "ns", "k", "z")
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	got, err := s.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, got)
}

func TestAddToStringSet_AfterClearStartsOver(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutStringSet(ctx, "ns", "k", []string{"old"}))
	require.NoError(t, s.PutStringSet(ctx, "ns", "k", nil))

	size, err := s.AddToStringSet(ctx, "ns", "k", "new")
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	_, err = s.AddToStringSet(ctx, "ns", "other", "elsewhere")
	require.NoError(t, err)

	got, err := s.StringSet(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, got)
}

func TestStringSet_KeysAreIsolated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutStringSet(ctx, "ns", "a", []string{"1"}))
	require.NoError(t, s.PutStringSet(ctx, "ns", "b", []string{"2"}))
	require.NoError(t, s.PutStringSet(ctx, "other", "a", []string{"3"}))

	got, err := s.StringSet(ctx, "ns", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, got)
}

func TestStringSet_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.PutStringSet(ctx, "pending_notifications", "queue", []string{"Bank|Debited 500|com.bank|1"}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.StringSet(ctx, "pending_notifications", "queue")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bank|Debited 500|com.bank|1"}, got)
}

func TestSetting_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Setting(ctx, "keepalive", "sticky")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutSetting(ctx, "keepalive", "sticky", "1"))
	require.NoError(t, s.PutSetting(ctx, "keepalive", "sticky", "0"))

	v, ok, err := s.Setting(ctx, "keepalive", "sticky")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0", v)

	require.NoError(t, s.DeleteSetting(ctx, "keepalive", "sticky"))
	_, ok, err = s.Setting(ctx, "keepalive", "sticky")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ClosedReturnsErrors(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, err = s.StringSet(ctx, "ns", "k")
	assert.Error(t, err)
	assert.Error(t, s.PutStringSet(ctx, "ns", "k", []string{"x"}))
	_, err = s.AddToStringSet(ctx, "ns", "k", "x")
	assert.Error(t, err)
	assert.Error(t, s.PutSetting(ctx, "ns", "k", "v"))
}

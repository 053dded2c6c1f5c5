package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/capture-relay/internal/binding"
	"github.com/roach88/capture-relay/internal/event"
	"github.com/roach88/capture-relay/internal/testutil"
)

type countingStarter struct {
	n   int
	err error
}

func (s *countingStarter) Start(context.Context) error {
	s.n++
	return s.err
}

func newHost(t *testing.T) (*Host, *countingStarter, *testutil.RecordingForwarder) {
	t.Helper()
	reg := binding.NewRegistry()
	ui := testutil.NewRecordingForwarder()
	require.NoError(t, reg.Attach(event.CategoryApp, ui))
	ka := &countingStarter{}
	return New(ka, reg, nil), ka, ui
}

func TestOnResume_StartsKeepAliveAndRoutes(t *testing.T) {
	h, ka, ui := newHost(t)
	in := &Intent{Action: ActionAddIncome}

	got := h.OnResume(context.Background(), in)

	assert.Equal(t, MethodShowAddIncomeDialog, got)
	assert.Equal(t, 1, ka.n)
	require.Len(t, ui.Calls(), 1)
	assert.Equal(t, MethodShowAddIncomeDialog, ui.Calls()[0].Method)
	assert.Empty(t, in.Action)
}

func TestOnResume_KeepAliveErrorStillRoutes(t *testing.T) {
	h, ka, ui := newHost(t)
	ka.err = errors.New("denied")

	got := h.OnResume(context.Background(), &Intent{Action: ActionAddExpense})

	assert.Equal(t, MethodShowAddExpenseDialog, got)
	assert.Len(t, ui.Calls(), 1)
}

func TestOnResume_NilIntent(t *testing.T) {
	h, ka, ui := newHost(t)

	assert.Empty(t, h.OnResume(context.Background(), nil))
	assert.Equal(t, 1, ka.n)
	assert.Empty(t, ui.Calls())
}

func TestOnNewIntent_RoutesOnce(t *testing.T) {
	h, ka, ui := newHost(t)
	in := &Intent{Action: ActionAddExpense}

	assert.Equal(t, MethodShowAddExpenseDialog, h.OnNewIntent(context.Background(), in))
	assert.Empty(t, h.OnNewIntent(context.Background(), in))

	assert.Zero(t, ka.n)
	assert.Len(t, ui.Calls(), 1)
}

func TestOnNewIntent_UnknownActionUntouched(t *testing.T) {
	h, _, ui := newHost(t)
	in := &Intent{Action: "android.intent.action.MAIN"}

	assert.Empty(t, h.OnNewIntent(context.Background(), in))
	assert.Equal(t, "android.intent.action.MAIN", in.Action)
	assert.Empty(t, ui.Calls())
}

func TestOnNewIntent_UnboundAppDropsPrompt(t *testing.T) {
	h := New(&countingStarter{}, binding.NewRegistry(), nil)
	in := &Intent{Action: ActionAddIncome}

	assert.Equal(t, MethodShowAddIncomeDialog, h.OnNewIntent(context.Background(), in))
	assert.Empty(t, in.Action)
}

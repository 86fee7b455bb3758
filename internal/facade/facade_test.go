package facade

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/guard"
	"github.com/hpungsan/wortal/internal/host"
	"github.com/hpungsan/wortal/internal/metrics"
)

func validPayload() host.ContextPayload {
	return host.ContextPayload{Image: "data:image/png;base64,AAAA", Text: host.Plain("Play with me")}
}

func intPtr(v int) *int { return &v }

func assertKind(t *testing.T, err error, kind errors.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var wErr *errors.WortalError
	require.True(t, stderrors.As(err, &wErr), "expected WortalError, got %T: %v", err, err)
	assert.Equal(t, kind, wErr.Code, "message: %s", wErr.Message)
}

// waitStarted blocks until the fake reports method in flight.
func waitStarted(t *testing.T, h *fakeHost, method string) {
	t.Helper()
	select {
	case got := <-h.started:
		require.Equal(t, method, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never reached the provider", method)
	}
}

func TestSwitch_SameContextNeverReachesHost(t *testing.T) {
	h := newFakeHost()
	h.setContextID("ctx-1")
	f := New(h)

	err := f.Context().Switch(context.Background(), "ctx-1")
	assertKind(t, err, errors.ErrSameContext)
	assert.Equal(t, 0, h.count("Switch"))
	assert.Equal(t, guard.Idle, f.Guard().State(guard.ContextSwitch))
}

func TestSwitch_NewContext(t *testing.T) {
	h := newFakeHost()
	h.setContextID("ctx-1")
	f := New(h)

	require.NoError(t, f.Context().Switch(context.Background(), "ctx-2"))
	assert.Equal(t, "ctx-2", f.Context().ID())
	assert.Equal(t, 1, h.count("Switch"))
}

func TestSwitch_EmptyIDRejected(t *testing.T) {
	h := newFakeHost()
	f := New(h)

	assertKind(t, f.Context().Switch(context.Background(), " "), errors.ErrInvalidParam)
	assert.Equal(t, 0, h.count("Switch"))
}

func TestType_DefaultsToSolo(t *testing.T) {
	h := newFakeHost()
	f := New(h)
	assert.Equal(t, host.ContextSolo, f.Context().Type())

	h.contextType = host.ContextThread
	assert.Equal(t, host.ContextThread, f.Context().Type())
}

func TestValidationFailureNeverReachesHost(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	noImage := validPayload()
	noImage.Image = ""
	_, err := f.Context().Invite(ctx, noImage)
	assertKind(t, err, errors.ErrInvalidParam)

	noText := validPayload()
	noText.Text = host.Text{}
	_, err = f.Context().Share(ctx, noText)
	assertKind(t, err, errors.ErrInvalidParam)

	err = f.Context().Update(ctx, noImage)
	assertKind(t, err, errors.ErrInvalidParam)

	err = f.Player().SetData(ctx, map[string]any{})
	assertKind(t, err, errors.ErrInvalidParam)

	_, err = f.Leaderboard().SendEntry(ctx, "global", 10, strings.Repeat("x", 3000))
	assertKind(t, err, errors.ErrInvalidParam)

	_, err = f.Leaderboard().Entries(ctx, "global", 150, 0)
	assertKind(t, err, errors.ErrInvalidParam)

	_, err = f.Leaderboard().Get(ctx, "")
	assertKind(t, err, errors.ErrInvalidParam)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Empty(t, h.calls)
}

func TestInvite_ForwardsOnlyFirstFilter(t *testing.T) {
	h := newFakeHost()
	f := New(h)

	p := validPayload()
	p.Filters = []host.ContextFilter{host.FilterNewPlayersOnly, host.FilterNewContextOnly}
	n, err := f.Context().Invite(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []host.ContextFilter{host.FilterNewPlayersOnly}, h.lastInvite.Filters)
}

func TestChoose_NilPayload(t *testing.T) {
	h := newFakeHost()
	f := New(h)

	require.NoError(t, f.Context().Choose(context.Background(), nil))
	assert.Nil(t, h.lastChoose)
	assert.Equal(t, 1, h.count("Choose"))
}

func TestCreate_ForwardsFirstID(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	require.NoError(t, f.Context().Create(ctx, "a", "b", "c"))
	assert.Equal(t, "a", h.lastCreate)

	assertKind(t, f.Context().Create(ctx), errors.ErrInvalidParam)
	assert.Equal(t, 1, h.count("Create"))
}

func TestPendingRequest_SameClass(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	release := h.gate("SetData")
	done := make(chan error, 1)
	go func() { done <- f.Player().SetData(ctx, map[string]any{"level": 3}) }()
	waitStarted(t, h, "SetData")

	// Second SetData and FlushData share the player-data class.
	assertKind(t, f.Player().SetData(ctx, map[string]any{"level": 4}), errors.ErrPendingRequest)
	assertKind(t, f.Player().FlushData(ctx), errors.ErrPendingRequest)
	assert.Equal(t, 1, h.count("SetData"))
	assert.Equal(t, 0, h.count("FlushData"))

	release()
	require.NoError(t, <-done)
	assert.Equal(t, guard.Idle, f.Guard().State(guard.PlayerData))

	require.NoError(t, f.Player().FlushData(ctx))
}

func TestPendingRequest_SetDataDuringFlush(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	release := h.gate("FlushData")
	done := make(chan error, 1)
	go func() { done <- f.Player().FlushData(ctx) }()
	waitStarted(t, h, "FlushData")

	assertKind(t, f.Player().SetData(ctx, map[string]any{"coins": 10}), errors.ErrPendingRequest)
	assert.Equal(t, 0, h.count("SetData"))
	assert.Equal(t, guard.InFlight, f.Guard().State(guard.PlayerData))

	release()
	require.NoError(t, <-done)
	require.NoError(t, f.Player().SetData(ctx, map[string]any{"coins": 10}))
	assert.Equal(t, 1, h.count("SetData"))
}

func TestPendingRequest_ContextSwitchClass(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	release := h.gate("Choose")
	done := make(chan error, 1)
	go func() { done <- f.Context().Choose(ctx, nil) }()
	waitStarted(t, h, "Choose")

	assertKind(t, f.Context().Create(ctx, "p2"), errors.ErrPendingRequest)
	assertKind(t, f.Context().Switch(ctx, "ctx-9"), errors.ErrPendingRequest)

	release()
	require.NoError(t, <-done)
}

func TestPendingRequest_ShareDialogClass(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	release := h.gate("Share")
	done := make(chan error, 1)
	go func() {
		_, err := f.Context().Share(ctx, validPayload())
		done <- err
	}()
	waitStarted(t, h, "Share")

	_, err := f.Context().Invite(ctx, validPayload())
	assertKind(t, err, errors.ErrPendingRequest)
	err = f.Context().ShareLink(ctx, host.LinkSharePayload{Image: "img", Text: host.Plain("hi")})
	assertKind(t, err, errors.ErrPendingRequest)

	release()
	require.NoError(t, <-done)
}

func TestDifferentClassesRunConcurrently(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	release := h.gate("SetData")
	defer release()
	done := make(chan error, 1)
	go func() { done <- f.Player().SetData(ctx, map[string]any{"k": "v"}) }()
	waitStarted(t, h, "SetData")

	require.NoError(t, f.Context().Switch(ctx, "ctx-2"))
	require.NoError(t, f.Context().Update(ctx, validPayload()))
	require.NoError(t, f.Player().SubscribeBot(ctx))

	// Leaderboard and getter calls are never sequenced.
	_, err := f.Leaderboard().EntryCount(ctx, "global")
	require.NoError(t, err)

	release()
	require.NoError(t, <-done)
}

func TestGuardReleasedAfterProviderFailure(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	h.fail("Update", host.Reject("NETWORK_FAILURE", "offline"))
	assertKind(t, f.Context().Update(ctx, validPayload()), errors.ErrNetworkFailure)
	assert.Equal(t, guard.Idle, f.Guard().State(guard.ContextUpdate))

	h.fail("Update", nil)
	require.NoError(t, f.Context().Update(ctx, validPayload()))
	assert.Equal(t, 2, h.count("Update"))
}

func TestProviderErrorsNormalized(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	h.fail("Leaderboard", host.Reject("LEADERBOARD_NOT_FOUND", "no such board"))
	_, err := f.Leaderboard().Get(ctx, "weekly")
	assertKind(t, err, errors.ErrLeaderboardNotFound)

	h.fail("ASID", host.Reject("CLIENT_UNSUPPORTED_OPERATION", ""))
	_, err = f.Player().ASID(ctx)
	assertKind(t, err, errors.ErrClientUnsupportedOperation)

	h.fail("EntryCount", stderrors.New("socket hang up"))
	_, err = f.Leaderboard().EntryCount(ctx, "global")
	assertKind(t, err, errors.ErrRethrowFromPlatform)
	assert.Contains(t, err.Error(), "socket hang up")
}

func TestIsSizeBetween_FirstAnswerWinsPerContext(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	h.setContextID("ctx-1")
	h.size = &host.ContextSizeResponse{Answer: true}
	f := New(h)

	first, err := f.Context().IsSizeBetween(ctx, intPtr(2), intPtr(4))
	require.NoError(t, err)
	assert.True(t, first.Answer)
	assert.Equal(t, 2, *first.MinSize)

	h.size = &host.ContextSizeResponse{Answer: false}
	second, err := f.Context().IsSizeBetween(ctx, intPtr(10), intPtr(20))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.count("SizeBetween"))

	// Mutating a returned answer does not leak into the memo.
	second.Answer = false
	third, err := f.Context().IsSizeBetween(ctx, intPtr(1), nil)
	require.NoError(t, err)
	assert.True(t, third.Answer)
}

func TestIsSizeBetween_ResetOnContextChange(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	h.setContextID("ctx-1")
	h.size = &host.ContextSizeResponse{Answer: true}
	f := New(h)

	_, err := f.Context().IsSizeBetween(ctx, intPtr(2), nil)
	require.NoError(t, err)

	require.NoError(t, f.Context().Switch(ctx, "ctx-2"))
	h.size = &host.ContextSizeResponse{Answer: false}
	resp, err := f.Context().IsSizeBetween(ctx, intPtr(2), nil)
	require.NoError(t, err)
	assert.False(t, resp.Answer)
	assert.Equal(t, 2, h.count("SizeBetween"))

	// A context change the façade did not initiate also invalidates the answer.
	h.setContextID("ctx-3")
	h.size = &host.ContextSizeResponse{Answer: true}
	resp, err = f.Context().IsSizeBetween(ctx, nil, intPtr(5))
	require.NoError(t, err)
	assert.True(t, resp.Answer)
	assert.Equal(t, 3, h.count("SizeBetween"))
}

func TestIsSizeBetween_Unsupported(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	_, err := f.Context().IsSizeBetween(ctx, intPtr(1), intPtr(2))
	assertKind(t, err, errors.ErrNotSupported)

	// Failures are not memoized.
	h.size = &host.ContextSizeResponse{Answer: true}
	resp, err := f.Context().IsSizeBetween(ctx, intPtr(1), intPtr(2))
	require.NoError(t, err)
	assert.True(t, resp.Answer)
}

func TestIsSizeBetween_InvalidBounds(t *testing.T) {
	h := newFakeHost()
	f := New(h)

	_, err := f.Context().IsSizeBetween(context.Background(), nil, nil)
	assertKind(t, err, errors.ErrInvalidParam)
	_, err = f.Context().IsSizeBetween(context.Background(), intPtr(5), intPtr(2))
	assertKind(t, err, errors.ErrInvalidParam)
	assert.Equal(t, 0, h.count("SizeBetween"))
}

func TestLeaderboard_Defaults(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	_, err := f.Leaderboard().Entries(ctx, "global", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, h.lastCount)
	assert.Equal(t, 5, h.lastOffset)

	_, err = f.Leaderboard().ConnectedPlayersEntries(ctx, "global", 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, h.lastCount)

	entry, err := f.Leaderboard().SendEntry(ctx, "global", 42, "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), entry.Score)
	assert.Equal(t, "", h.lastDetails)

	mine, err := f.Leaderboard().PlayerEntry(ctx, "global")
	require.NoError(t, err)
	assert.Nil(t, mine)
}

func TestPlayer_Accessors(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	assert.Equal(t, "player-1", f.Player().ID())
	assert.Equal(t, "Player One", f.Player().Name())
	assert.True(t, f.Player().IsFirstPlay())

	data, err := f.Player().Data(ctx, []string{"level", "xp"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"level": 5, "xp": 2}, data)

	_, err = f.Player().Data(ctx, nil)
	assertKind(t, err, errors.ErrInvalidParam)

	friends, err := f.Player().ConnectedPlayers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, friends, 1)
	require.NotNil(t, h.lastPlayers.Size)
	assert.Equal(t, 25, *h.lastPlayers.Size)
	assert.Equal(t, 0, *h.lastPlayers.Cursor)

	info, err := f.Player().SignedPlayerInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sig", info.Signature)

	can, err := f.Player().CanSubscribeBot(ctx)
	require.NoError(t, err)
	assert.True(t, can)
}

func TestConcurrentSameClass_SingleWinner(t *testing.T) {
	ctx := context.Background()
	h := newFakeHost()
	f := New(h)

	release := h.gate("SubscribeBot")
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.Player().SubscribeBot(ctx)
		}()
	}
	waitStarted(t, h, "SubscribeBot")
	release()
	wg.Wait()
	close(errs)

	var ok, pending int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errors.ErrPendingRequest):
			pending++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.GreaterOrEqual(t, ok, 1)
	assert.Equal(t, 8, ok+pending)
}

func TestMetricsAndLogging(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)

	h := newFakeHost()
	h.setContextID("ctx-1")
	f := New(h, WithMetrics(rec), WithLogger(zap.New(core)))

	require.NoError(t, f.Context().Switch(ctx, "ctx-2"))
	assertKind(t, f.Context().Switch(ctx, "ctx-2"), errors.ErrSameContext)

	count, err := testutil.GatherAndCount(reg, "wortal_facade_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	failed := logs.FilterMessage("call failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "SAME_CONTEXT", failed[0].ContextMap()["kind"])
	assert.Equal(t, OpContextSwitch, failed[0].ContextMap()["op"])
}

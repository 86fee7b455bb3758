package sandbox

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/wortal/internal/adbreak"
	"github.com/hpungsan/wortal/internal/db"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/facade"
	"github.com/hpungsan/wortal/internal/host"
)

// tick returns a clock advancing one second per call.
func tick() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func openSandbox(t *testing.T, database *sql.DB, unsupported ...string) (*Provider, *facade.Facade) {
	t.Helper()
	p, err := Open(context.Background(), database, Options{
		PlayerID:    "me",
		PlayerName:  "Me",
		Unsupported: unsupported,
		Now:         tick(),
	})
	require.NoError(t, err)
	return p, facade.New(p)
}

func requireKind(t *testing.T, err error, kind errors.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var wErr *errors.WortalError
	require.True(t, stderrors.As(err, &wErr), "expected WortalError, got %T: %v", err, err)
	require.Equal(t, kind, wErr.Code, wErr.Message)
}

func intPtr(v int) *int { return &v }

func addFriends(t *testing.T, p *Provider, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		require.NoError(t, p.AddPlayer(ctx, host.Player{ID: id, Name: "Friend " + id}))
		require.NoError(t, p.Connect(ctx, "me", id))
	}
}

func TestOpen_SessionAndFirstPlay(t *testing.T) {
	database := openDB(t)

	p, f := openSandbox(t, database)
	assert.Equal(t, "me", f.Player().ID())
	assert.Equal(t, "Me", f.Player().Name())
	assert.True(t, f.Player().IsFirstPlay())
	assert.Equal(t, "", f.Context().ID())
	assert.Equal(t, host.ContextSolo, f.Context().Type())

	addFriends(t, p, "ada")
	require.NoError(t, f.Context().Create(context.Background(), "ada"))
	active := f.Context().ID()
	require.NotEmpty(t, active)

	_, f2 := openSandbox(t, database)
	assert.False(t, f2.Player().IsFirstPlay())
	assert.Equal(t, active, f2.Context().ID())
	assert.Equal(t, host.ContextThread, f2.Context().Type())
}

func TestOpen_NoPlayerConfigured(t *testing.T) {
	_, err := Open(context.Background(), openDB(t), Options{})
	assert.Error(t, err)
}

func TestCreateAndSwitch(t *testing.T) {
	ctx := context.Background()
	p, f := openSandbox(t, openDB(t))
	addFriends(t, p, "ada", "bob")

	require.NoError(t, f.Context().Create(ctx, "ada", "bob"))
	adaThread := f.Context().ID()

	players, err := f.Context().Players(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 2)

	// Same thread again is the active context.
	requireKind(t, f.Context().Create(ctx, "ada"), errors.ErrSameContext)

	require.NoError(t, f.Context().Create(ctx, "bob"))
	assert.NotEqual(t, adaThread, f.Context().ID())

	// Creating with ada again reuses the existing thread.
	require.NoError(t, f.Context().Create(ctx, "ada"))
	assert.Equal(t, adaThread, f.Context().ID())

	requireKind(t, f.Context().Switch(ctx, adaThread), errors.ErrSameContext)
	requireKind(t, f.Context().Switch(ctx, "no-such-context"), errors.ErrInvalidParam)
	requireKind(t, f.Context().Create(ctx, "stranger"), errors.ErrInvalidParam)
	requireKind(t, f.Context().Create(ctx, "me"), errors.ErrInvalidParam)
}

func TestSwitch_NotAMember(t *testing.T) {
	ctx := context.Background()
	p, f := openSandbox(t, openDB(t))
	addFriends(t, p, "ada", "bob")

	require.NoError(t, f.Context().Create(ctx, "ada"))
	mine := f.Context().ID()

	require.NoError(t, p.UsePlayer(ctx, "bob"))
	assert.Equal(t, "bob", f.Player().ID())
	assert.Equal(t, "", f.Context().ID())
	requireKind(t, f.Context().Switch(ctx, mine), errors.ErrInvalidParam)
}

func TestChoose(t *testing.T) {
	ctx := context.Background()
	p, f := openSandbox(t, openDB(t))

	requireKind(t, f.Context().Choose(ctx, nil), errors.ErrUserInput)

	addFriends(t, p, "ada", "bob", "cy")
	require.NoError(t, f.Context().Choose(ctx, nil))
	assert.Equal(t, host.ContextThread, f.Context().Type())
	thread := f.Context().ID()

	// Choosing again lands in the thread that is already active.
	requireKind(t, f.Context().Choose(ctx, nil), errors.ErrSameContext)

	require.NoError(t, f.Context().Choose(ctx, &host.ContextPayload{MinSize: intPtr(3)}))
	assert.Equal(t, host.ContextGroup, f.Context().Type())
	players, err := f.Context().Players(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 3)

	require.NoError(t, f.Context().Choose(ctx, &host.ContextPayload{Filters: []host.ContextFilter{host.FilterNewContextOnly}}))
	assert.NotEqual(t, thread, f.Context().ID())

	requireKind(t, f.Context().Choose(ctx, &host.ContextPayload{MinSize: intPtr(10)}), errors.ErrUserInput)
}

func TestDialogs(t *testing.T) {
	ctx := context.Background()
	p, f := openSandbox(t, openDB(t))
	payload := host.ContextPayload{Image: "img", Text: host.Plain("come play")}

	_, err := f.Context().Invite(ctx, payload)
	requireKind(t, err, errors.ErrUserInput)
	requireKind(t, f.Context().Update(ctx, payload), errors.ErrInvalidOperation)

	addFriends(t, p, "ada", "bob")
	n, err := f.Context().Invite(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	withMin := payload
	withMin.MinShare = intPtr(3)
	_, err = f.Context().Share(ctx, withMin)
	requireKind(t, err, errors.ErrUserInput)

	require.NoError(t, f.Context().ShareLink(ctx, host.LinkSharePayload{Image: "img", Text: host.Plain("link")}))

	require.NoError(t, f.Context().Create(ctx, "ada"))
	require.NoError(t, f.Context().Update(ctx, payload))

	msgs, err := p.Messages(ctx, f.Context().ID(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, db.MessageUpdate, msgs[0].Kind)
	assert.Contains(t, msgs[0].PayloadJSON, "come play")

	solo, err := p.Messages(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, solo, 2)
}

func TestIsSizeBetween(t *testing.T) {
	ctx := context.Background()
	p, f := openSandbox(t, openDB(t))

	_, err := f.Context().IsSizeBetween(ctx, intPtr(1), intPtr(2))
	requireKind(t, err, errors.ErrNotSupported)

	addFriends(t, p, "ada")
	require.NoError(t, f.Context().Create(ctx, "ada"))

	resp, err := f.Context().IsSizeBetween(ctx, intPtr(2), intPtr(2))
	require.NoError(t, err)
	assert.True(t, resp.Answer)

	// Memoized for this context whatever the bounds.
	resp, err = f.Context().IsSizeBetween(ctx, intPtr(5), nil)
	require.NoError(t, err)
	assert.True(t, resp.Answer)
	assert.Equal(t, 2, *resp.MinSize)
}

func TestPlayerData_StageAndFlush(t *testing.T) {
	ctx := context.Background()
	database := openDB(t)
	_, f := openSandbox(t, database)

	require.NoError(t, f.Player().SetData(ctx, map[string]any{"level": 3, "name": "ada"}))
	got, err := f.Player().Data(ctx, []string{"level", "name", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"level": 3.0, "name": "ada"}, got)

	// Unflushed data does not survive a new session.
	_, f2 := openSandbox(t, database)
	got, err = f2.Player().Data(ctx, []string{"level"})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, f2.Player().SetData(ctx, map[string]any{"level": 7}))
	require.NoError(t, f2.Player().FlushData(ctx))
	require.NoError(t, f2.Player().FlushData(ctx))

	_, f3 := openSandbox(t, database)
	got, err = f3.Player().Data(ctx, []string{"level"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"level": 7.0}, got)
}

func TestConnectedPlayers(t *testing.T) {
	ctx := context.Background()
	database := openDB(t)
	p, f := openSandbox(t, database)
	addFriends(t, p, "ada", "bob", "cy")
	_, err := db.MarkPlayed(ctx, database, "bob")
	require.NoError(t, err)

	all, err := f.Player().ConnectedPlayers(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	players, err := f.Player().ConnectedPlayers(ctx, &host.ConnectedPlayerPayload{Filter: host.ConnectedIncludePlayers})
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "bob", players[0].ID)

	page, err := f.Player().ConnectedPlayers(ctx, &host.ConnectedPlayerPayload{Cursor: intPtr(1), Size: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].ID)

	recent, err := f.Player().ConnectedPlayers(ctx, &host.ConnectedPlayerPayload{Filter: host.ConnectedNewInvitationsOnly})
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestSignedIdentityNotSupported(t *testing.T) {
	ctx := context.Background()
	_, f := openSandbox(t, openDB(t))

	_, err := f.Player().SignedPlayerInfo(ctx)
	requireKind(t, err, errors.ErrNotSupported)
	_, err = f.Player().ASID(ctx)
	requireKind(t, err, errors.ErrNotSupported)
	_, err = f.Player().SignedASID(ctx)
	requireKind(t, err, errors.ErrNotSupported)
}

func TestBotSubscription(t *testing.T) {
	ctx := context.Background()
	_, f := openSandbox(t, openDB(t))

	can, err := f.Player().CanSubscribeBot(ctx)
	require.NoError(t, err)
	assert.True(t, can)

	require.NoError(t, f.Player().SubscribeBot(ctx))
	can, err = f.Player().CanSubscribeBot(ctx)
	require.NoError(t, err)
	assert.False(t, can)
	requireKind(t, f.Player().SubscribeBot(ctx), errors.ErrInvalidOperation)
}

func TestUnsupportedOperations(t *testing.T) {
	ctx := context.Background()
	_, f := openSandbox(t, openDB(t), facade.OpContextShareLink, facade.OpLeaderboardEntryCount)

	err := f.Context().ShareLink(ctx, host.LinkSharePayload{Image: "img", Text: host.Plain("x")})
	requireKind(t, err, errors.ErrNotSupported)
	_, err = f.Leaderboard().EntryCount(ctx, "global")
	requireKind(t, err, errors.ErrNotSupported)
}

func TestLeaderboards(t *testing.T) {
	ctx := context.Background()
	p, f := openSandbox(t, openDB(t))
	addFriends(t, p, "ada", "bob")

	_, err := f.Leaderboard().Get(ctx, "global")
	requireKind(t, err, errors.ErrLeaderboardNotFound)

	require.NoError(t, p.CreateLeaderboard(ctx, "global", ""))
	requireKind(t, p.CreateLeaderboard(ctx, "global", ""), errors.ErrInvalidParam)

	mine, err := f.Leaderboard().PlayerEntry(ctx, "global")
	require.NoError(t, err)
	assert.Nil(t, mine)

	entry, err := f.Leaderboard().SendEntry(ctx, "global", 50, "first run")
	require.NoError(t, err)
	assert.Equal(t, int64(50), entry.Score)
	assert.Equal(t, 1, entry.Rank)

	// A worse score keeps the stored entry.
	entry, err = f.Leaderboard().SendEntry(ctx, "global", 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(50), entry.Score)
	assert.Equal(t, "first run", entry.Details)

	// Other players post through their own sessions.
	require.NoError(t, p.UsePlayer(ctx, "ada"))
	_, err = f.Leaderboard().SendEntry(ctx, "global", 80, "")
	require.NoError(t, err)
	require.NoError(t, p.AddPlayer(ctx, host.Player{ID: "stranger"}))
	require.NoError(t, p.UsePlayer(ctx, "stranger"))
	_, err = f.Leaderboard().SendEntry(ctx, "global", 99, "")
	require.NoError(t, err)
	require.NoError(t, p.UsePlayer(ctx, "me"))

	entries, err := f.Leaderboard().Entries(ctx, "global", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "stranger", entries[0].Player.ID)
	assert.Equal(t, "me", entries[2].Player.ID)

	count, err := f.Leaderboard().EntryCount(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	connected, err := f.Leaderboard().ConnectedPlayersEntries(ctx, "global", 10, 0)
	require.NoError(t, err)
	require.Len(t, connected, 2)
	assert.Equal(t, "ada", connected[0].Player.ID)
	assert.Equal(t, 2, connected[1].Rank)
}

func TestLeaderboard_WrongContext(t *testing.T) {
	ctx := context.Background()
	p, f := openSandbox(t, openDB(t))
	addFriends(t, p, "ada", "bob")

	require.NoError(t, f.Context().Create(ctx, "ada"))
	adaThread := f.Context().ID()
	require.NoError(t, p.CreateLeaderboard(ctx, "weekly."+adaThread, adaThread))
	requireKind(t, p.CreateLeaderboard(ctx, "orphan", "missing-context"), errors.ErrInvalidParam)

	lb, err := f.Leaderboard().Get(ctx, "weekly."+adaThread)
	require.NoError(t, err)
	assert.Equal(t, adaThread, lb.ContextID)

	require.NoError(t, f.Context().Create(ctx, "bob"))
	_, err = f.Leaderboard().SendEntry(ctx, "weekly."+adaThread, 5, "")
	requireKind(t, err, errors.ErrLeaderboardWrongContext)
}

func TestAdmin_Validation(t *testing.T) {
	ctx := context.Background()
	p, _ := openSandbox(t, openDB(t))

	requireKind(t, p.AddPlayer(ctx, host.Player{}), errors.ErrInvalidParam)
	requireKind(t, p.AddPlayer(ctx, host.Player{ID: "me"}), errors.ErrInvalidParam)
	requireKind(t, p.Connect(ctx, "me", "me"), errors.ErrInvalidParam)
	requireKind(t, p.Connect(ctx, "me", "ghost"), errors.ErrInvalidParam)
	requireKind(t, p.UsePlayer(ctx, "ghost"), errors.ErrInvalidParam)
}

func TestPreroll_NoShow(t *testing.T) {
	p, _ := openSandbox(t, openDB(t))

	started := false
	outcome := <-adbreak.Preroll(context.Background(), p, adbreak.Callbacks{
		OnNoShow: func() { started = true },
	}, nil)
	assert.Equal(t, adbreak.OutcomeNoShow, outcome)
	assert.True(t, started)
}

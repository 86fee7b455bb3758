package sandbox

import (
	"context"
	stderrors "errors"

	"github.com/hpungsan/wortal/internal/db"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/facade"
	"github.com/hpungsan/wortal/internal/host"
)

type leaderboardHost struct{ p *Provider }

// board resolves name and checks it against the active context.
func (l leaderboardHost) board(ctx context.Context, op, name string) (*host.Leaderboard, error) {
	if err := l.p.check(op); err != nil {
		return nil, err
	}
	lb, err := db.GetLeaderboard(ctx, l.p.db, name)
	if stderrors.Is(err, db.ErrNotFound) {
		return nil, host.Reject(string(errors.ErrLeaderboardNotFound), "leaderboard "+name+" does not exist")
	}
	if err != nil {
		return nil, err
	}
	if _, current := l.p.session(); lb.ContextID != "" && lb.ContextID != current {
		return nil, host.Reject(string(errors.ErrLeaderboardWrongContext), "leaderboard "+name+" belongs to context "+lb.ContextID)
	}
	return lb, nil
}

func (l leaderboardHost) Leaderboard(ctx context.Context, name string) (*host.Leaderboard, error) {
	return l.board(ctx, facade.OpLeaderboardGet, name)
}

// SendEntry keeps the better of the stored and submitted scores and returns
// the player's resulting entry.
func (l leaderboardHost) SendEntry(ctx context.Context, name string, score int64, details string) (*host.LeaderboardEntry, error) {
	if _, err := l.board(ctx, facade.OpLeaderboardSendEntry, name); err != nil {
		return nil, err
	}
	me, _ := l.p.session()
	if _, err := db.UpsertEntry(ctx, l.p.db, name, me.ID, score, details, l.p.now().Unix()); err != nil {
		return nil, err
	}
	return db.GetEntry(ctx, l.p.db, name, me.ID)
}

func (l leaderboardHost) Entries(ctx context.Context, name string, count, offset int) ([]host.LeaderboardEntry, error) {
	if _, err := l.board(ctx, facade.OpLeaderboardEntries, name); err != nil {
		return nil, err
	}
	return db.ListEntries(ctx, l.p.db, name, count, offset)
}

func (l leaderboardHost) PlayerEntry(ctx context.Context, name string) (*host.LeaderboardEntry, error) {
	if _, err := l.board(ctx, facade.OpLeaderboardPlayerEntry, name); err != nil {
		return nil, err
	}
	me, _ := l.p.session()
	entry, err := db.GetEntry(ctx, l.p.db, name, me.ID)
	if stderrors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

func (l leaderboardHost) EntryCount(ctx context.Context, name string) (int, error) {
	if _, err := l.board(ctx, facade.OpLeaderboardEntryCount, name); err != nil {
		return 0, err
	}
	return db.CountEntries(ctx, l.p.db, name)
}

func (l leaderboardHost) ConnectedPlayersEntries(ctx context.Context, name string, count, offset int) ([]host.LeaderboardEntry, error) {
	if _, err := l.board(ctx, facade.OpLeaderboardConnected, name); err != nil {
		return nil, err
	}
	me, _ := l.p.session()
	return db.ListConnectedEntries(ctx, l.p.db, name, me.ID, count, offset)
}

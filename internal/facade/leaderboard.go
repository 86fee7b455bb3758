package facade

import (
	"context"

	"github.com/hpungsan/wortal/internal/host"
	"github.com/hpungsan/wortal/internal/validate"
)

// LeaderboardAPI covers leaderboard capabilities. None of these calls are
// sequenced.
type LeaderboardAPI struct {
	f *Facade
}

func (l *LeaderboardAPI) host() host.LeaderboardProvider {
	return l.f.provider.Leaderboard()
}

// Get returns the named leaderboard.
func (l *LeaderboardAPI) Get(ctx context.Context, name string) (*host.Leaderboard, error) {
	if err := validate.LeaderboardName(name); err != nil {
		return reject[*host.Leaderboard](l.f, OpLeaderboardGet, err)
	}
	return call(ctx, l.f, OpLeaderboardGet, "", func(ctx context.Context) (*host.Leaderboard, error) {
		return l.host().Leaderboard(ctx, name)
	})
}

// SendEntry submits score for the current player. details may be empty.
func (l *LeaderboardAPI) SendEntry(ctx context.Context, name string, score int64, details string) (*host.LeaderboardEntry, error) {
	if err := validate.Entry(name, details); err != nil {
		return reject[*host.LeaderboardEntry](l.f, OpLeaderboardSendEntry, err)
	}
	return call(ctx, l.f, OpLeaderboardSendEntry, "", func(ctx context.Context) (*host.LeaderboardEntry, error) {
		return l.host().SendEntry(ctx, name, score, details)
	})
}

// Entries returns a page of entries ordered by rank. A zero count means 10.
func (l *LeaderboardAPI) Entries(ctx context.Context, name string, count, offset int) ([]host.LeaderboardEntry, error) {
	n, err := validate.EntriesQuery(name, count, offset)
	if err != nil {
		return reject[[]host.LeaderboardEntry](l.f, OpLeaderboardEntries, err)
	}
	return call(ctx, l.f, OpLeaderboardEntries, "", func(ctx context.Context) ([]host.LeaderboardEntry, error) {
		return l.host().Entries(ctx, name, n, offset)
	})
}

// PlayerEntry returns the current player's entry, nil when there is none.
func (l *LeaderboardAPI) PlayerEntry(ctx context.Context, name string) (*host.LeaderboardEntry, error) {
	if err := validate.LeaderboardName(name); err != nil {
		return reject[*host.LeaderboardEntry](l.f, OpLeaderboardPlayerEntry, err)
	}
	return call(ctx, l.f, OpLeaderboardPlayerEntry, "", func(ctx context.Context) (*host.LeaderboardEntry, error) {
		return l.host().PlayerEntry(ctx, name)
	})
}

// EntryCount returns the number of entries on the leaderboard.
func (l *LeaderboardAPI) EntryCount(ctx context.Context, name string) (int, error) {
	if err := validate.LeaderboardName(name); err != nil {
		return reject[int](l.f, OpLeaderboardEntryCount, err)
	}
	return call(ctx, l.f, OpLeaderboardEntryCount, "", func(ctx context.Context) (int, error) {
		return l.host().EntryCount(ctx, name)
	})
}

// ConnectedPlayersEntries returns entries of players connected to the
// current player. A zero count means 10.
func (l *LeaderboardAPI) ConnectedPlayersEntries(ctx context.Context, name string, count, offset int) ([]host.LeaderboardEntry, error) {
	n, err := validate.EntriesQuery(name, count, offset)
	if err != nil {
		return reject[[]host.LeaderboardEntry](l.f, OpLeaderboardConnected, err)
	}
	return call(ctx, l.f, OpLeaderboardConnected, "", func(ctx context.Context) ([]host.LeaderboardEntry, error) {
		return l.host().ConnectedPlayersEntries(ctx, name, n, offset)
	})
}

// Package facade is the public surface over the host capability provider.
//
// Every asynchronous operation runs the same pipeline: validate the payload,
// enter the capability class in the sequence guard, delegate to the provider,
// normalize the outcome, and exit the guard on every path. Validation and
// guard failures never reach the provider. Nothing is retried.
//
// Calls block the calling goroutine until the provider returns. The façade
// sets no timeout and does not abandon a call when ctx is cancelled; ctx is
// handed to the provider unchanged.
package facade

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/guard"
	"github.com/hpungsan/wortal/internal/host"
	"github.com/hpungsan/wortal/internal/metrics"
	"github.com/hpungsan/wortal/internal/normalize"
)

// Operation names, shared with the MCP and HTTP surfaces.
const (
	OpContextPlayers     = "context_players"
	OpContextChoose      = "context_choose"
	OpContextCreate      = "context_create"
	OpContextSwitch      = "context_switch"
	OpContextInvite      = "context_invite"
	OpContextShare       = "context_share"
	OpContextShareLink   = "context_share_link"
	OpContextUpdate      = "context_update"
	OpContextSizeBetween = "context_is_size_between"

	OpPlayerData             = "player_get_data"
	OpPlayerSetData          = "player_set_data"
	OpPlayerFlushData        = "player_flush_data"
	OpPlayerConnected        = "player_connected_players"
	OpPlayerSignedInfo       = "player_signed_info"
	OpPlayerASID             = "player_asid"
	OpPlayerSignedASID       = "player_signed_asid"
	OpPlayerCanSubscribeBot  = "player_can_subscribe_bot"
	OpPlayerSubscribeBot     = "player_subscribe_bot"
	OpLeaderboardGet         = "leaderboard_get"
	OpLeaderboardSendEntry   = "leaderboard_send_entry"
	OpLeaderboardEntries     = "leaderboard_entries"
	OpLeaderboardPlayerEntry = "leaderboard_player_entry"
	OpLeaderboardEntryCount  = "leaderboard_entry_count"
	OpLeaderboardConnected   = "leaderboard_connected_entries"
)

// Facade composes validation, sequencing and normalization over a provider.
type Facade struct {
	provider host.Provider
	guard    *guard.Guard
	sizes    *sizeMemo
	log      *zap.Logger
	metrics  *metrics.Recorder

	context     *ContextAPI
	player      *PlayerAPI
	leaderboard *LeaderboardAPI
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.log = l
		}
	}
}

// WithMetrics records calls and guard transitions on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(f *Facade) {
		f.metrics = r
	}
}

// New creates a Facade over p. The façade owns its guard and memo state;
// two façades over one provider do not share sequencing.
func New(p host.Provider, opts ...Option) *Facade {
	f := &Facade{
		provider: p,
		guard:    guard.New(),
		sizes:    &sizeMemo{},
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.metrics != nil {
		f.guard.WithObserver(f.metrics)
	}

	f.context = &ContextAPI{f: f}
	f.player = &PlayerAPI{f: f}
	f.leaderboard = &LeaderboardAPI{f: f}
	return f
}

// Context returns the context namespace.
func (f *Facade) Context() *ContextAPI { return f.context }

// Player returns the player namespace.
func (f *Facade) Player() *PlayerAPI { return f.player }

// Leaderboard returns the leaderboard namespace.
func (f *Facade) Leaderboard() *LeaderboardAPI { return f.leaderboard }

// Guard exposes the sequence guard for inspection.
func (f *Facade) Guard() *guard.Guard { return f.guard }

// call delegates fn under class (none when class is empty) and normalizes the result.
func call[T any](ctx context.Context, f *Facade, op string, class guard.Class, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	delegate := func() (T, error) {
		return normalize.Result(fn(ctx))
	}

	var (
		v   T
		err error
	)
	if class != "" {
		v, err = guard.Do(f.guard, class, delegate)
	} else {
		v, err = delegate()
	}
	f.observe(op, class, start, err)
	return v, err
}

// reject records a local failure that never reached the provider.
func reject[T any](f *Facade, op string, err error) (T, error) {
	var zero T
	f.observe(op, "", time.Now(), err)
	return zero, err
}

func (f *Facade) observe(op string, class guard.Class, start time.Time, err error) {
	elapsed := time.Since(start)
	if err == nil {
		f.metrics.ObserveCall(op, metrics.OutcomeOK, elapsed)
		f.log.Debug("call", zap.String("op", op), zap.Duration("elapsed", elapsed))
		return
	}

	kind := errors.KindOf(err)
	f.metrics.ObserveCall(op, string(kind), elapsed)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("kind", string(kind)),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	}
	if class != "" {
		fields = append(fields, zap.String("class", string(class)))
	}
	f.log.Warn("call failed", fields...)
}

// none is the result type of operations that settle without a value.
type none struct{}

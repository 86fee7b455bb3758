package facade

import (
	"context"

	"github.com/hpungsan/wortal/internal/guard"
	"github.com/hpungsan/wortal/internal/host"
	"github.com/hpungsan/wortal/internal/validate"
)

// PlayerAPI covers the current player's capabilities.
type PlayerAPI struct {
	f *Facade
}

func (p *PlayerAPI) host() host.PlayerProvider {
	return p.f.provider.Player()
}

// ID returns the player's host ID.
func (p *PlayerAPI) ID() string { return p.host().ID() }

// Name returns the player's display name.
func (p *PlayerAPI) Name() string { return p.host().Name() }

// Photo returns the player's photo URL.
func (p *PlayerAPI) Photo() string { return p.host().Photo() }

// IsFirstPlay reports whether this is the player's first session.
func (p *PlayerAPI) IsFirstPlay() bool { return p.host().IsFirstPlay() }

// Data fetches the stored values for keys. Missing keys are absent from the result.
func (p *PlayerAPI) Data(ctx context.Context, keys []string) (map[string]any, error) {
	if err := validate.DataKeys(keys); err != nil {
		return reject[map[string]any](p.f, OpPlayerData, err)
	}
	return call(ctx, p.f, OpPlayerData, "", func(ctx context.Context) (map[string]any, error) {
		return p.host().Data(ctx, keys)
	})
}

// SetData stages a modification of the player's stored data.
func (p *PlayerAPI) SetData(ctx context.Context, data map[string]any) error {
	if err := validate.PlayerData(data); err != nil {
		_, err = reject[none](p.f, OpPlayerSetData, err)
		return err
	}
	_, err := call(ctx, p.f, OpPlayerSetData, guard.PlayerData, func(ctx context.Context) (none, error) {
		return none{}, p.host().SetData(ctx, data)
	})
	return err
}

// FlushData persists staged modifications. It shares the player-data class
// with SetData.
func (p *PlayerAPI) FlushData(ctx context.Context) error {
	_, err := call(ctx, p.f, OpPlayerFlushData, guard.PlayerData, func(ctx context.Context) (none, error) {
		return none{}, p.host().FlushData(ctx)
	})
	return err
}

// ConnectedPlayers lists players connected to the current player.
// A nil payload means cursor 0 and the default page size.
func (p *PlayerAPI) ConnectedPlayers(ctx context.Context, payload *host.ConnectedPlayerPayload) ([]host.Player, error) {
	q, err := validate.ConnectedPlayers(payload)
	if err != nil {
		return reject[[]host.Player](p.f, OpPlayerConnected, err)
	}
	return call(ctx, p.f, OpPlayerConnected, "", func(ctx context.Context) ([]host.Player, error) {
		return p.host().ConnectedPlayers(ctx, q)
	})
}

// SignedPlayerInfo returns the host-signed player identity.
func (p *PlayerAPI) SignedPlayerInfo(ctx context.Context) (*host.SignedPlayerInfo, error) {
	return call(ctx, p.f, OpPlayerSignedInfo, "", func(ctx context.Context) (*host.SignedPlayerInfo, error) {
		return p.host().SignedPlayerInfo(ctx)
	})
}

// ASID returns the app-scoped player ID.
func (p *PlayerAPI) ASID(ctx context.Context) (string, error) {
	return call(ctx, p.f, OpPlayerASID, "", func(ctx context.Context) (string, error) {
		return p.host().ASID(ctx)
	})
}

// SignedASID returns the app-scoped player ID with its signature.
func (p *PlayerAPI) SignedASID(ctx context.Context) (*host.SignedASID, error) {
	return call(ctx, p.f, OpPlayerSignedASID, "", func(ctx context.Context) (*host.SignedASID, error) {
		return p.host().SignedASID(ctx)
	})
}

// CanSubscribeBot reports whether the player may subscribe to the game's bot.
func (p *PlayerAPI) CanSubscribeBot(ctx context.Context) (bool, error) {
	return call(ctx, p.f, OpPlayerCanSubscribeBot, "", func(ctx context.Context) (bool, error) {
		return p.host().CanSubscribeBot(ctx)
	})
}

// SubscribeBot asks the player to subscribe to the game's bot.
func (p *PlayerAPI) SubscribeBot(ctx context.Context) error {
	_, err := call(ctx, p.f, OpPlayerSubscribeBot, guard.BotSubscribe, func(ctx context.Context) (none, error) {
		return none{}, p.host().SubscribeBot(ctx)
	})
	return err
}

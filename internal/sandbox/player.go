package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/wortal/internal/db"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/facade"
	"github.com/hpungsan/wortal/internal/host"
)

// DefaultInvitationHours bounds NEW_INVITATIONS_ONLY when the payload sets no window.
const DefaultInvitationHours = 24

type playerHost struct{ p *Provider }

func (h playerHost) ID() string {
	me, _ := h.p.session()
	return me.ID
}

func (h playerHost) Name() string {
	me, _ := h.p.session()
	return me.Name
}

func (h playerHost) Photo() string {
	me, _ := h.p.session()
	return me.Photo
}

func (h playerHost) IsFirstPlay() bool {
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	return h.p.firstPlay
}

// Data reads stored values with staged modifications layered on top.
func (h playerHost) Data(ctx context.Context, keys []string) (map[string]any, error) {
	if err := h.p.check(facade.OpPlayerData); err != nil {
		return nil, err
	}
	me, _ := h.p.session()
	stored, err := db.GetData(ctx, h.p.db, me.ID, keys)
	if err != nil {
		return nil, err
	}

	h.p.mu.Lock()
	for _, k := range keys {
		if v, ok := h.p.pending[k]; ok {
			stored[k] = v
		}
	}
	h.p.mu.Unlock()

	out := make(map[string]any, len(stored))
	for k, raw := range stored {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// SetData stages values until FlushData.
func (h playerHost) SetData(_ context.Context, data map[string]any) error {
	if err := h.p.check(facade.OpPlayerSetData); err != nil {
		return err
	}
	staged := make(map[string]string, len(data))
	for k, v := range data {
		raw, err := json.Marshal(v)
		if err != nil {
			return host.Reject(string(errors.ErrInvalidParam), "value for "+k+" is not serializable")
		}
		staged[k] = string(raw)
	}

	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	for k, v := range staged {
		h.p.pending[k] = v
	}
	return nil
}

// FlushData writes every staged value in one transaction.
func (h playerHost) FlushData(ctx context.Context) error {
	if err := h.p.check(facade.OpPlayerFlushData); err != nil {
		return err
	}
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if len(h.p.pending) == 0 {
		return nil
	}

	now := h.p.now().Unix()
	err := db.InTx(ctx, h.p.db, func(tx *sql.Tx) error {
		for k, v := range h.p.pending {
			if err := db.PutData(ctx, tx, h.p.player.ID, k, v, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	h.p.pending = map[string]string{}
	return nil
}

func (h playerHost) ConnectedPlayers(ctx context.Context, payload host.ConnectedPlayerPayload) ([]host.Player, error) {
	if err := h.p.check(facade.OpPlayerConnected); err != nil {
		return nil, err
	}
	me, _ := h.p.session()

	q := db.ConnectionQuery{Limit: -1}
	if payload.Size != nil {
		q.Limit = *payload.Size
	}
	if payload.Cursor != nil {
		q.Offset = *payload.Cursor
	}
	switch payload.Filter {
	case host.ConnectedIncludePlayers:
		played := true
		q.Played = &played
	case host.ConnectedIncludeNonPlayers:
		played := false
		q.Played = &played
	case host.ConnectedNewInvitationsOnly:
		hours := DefaultInvitationHours
		if payload.HoursSinceInvitation != nil {
			hours = *payload.HoursSinceInvitation
		}
		q.Since = h.p.now().Unix() - int64(hours)*3600
	}
	return db.ConnectedPlayers(ctx, h.p.db, me.ID, q)
}

// Signed identities need the host's signing key, which the sandbox lacks.

func (h playerHost) SignedPlayerInfo(context.Context) (*host.SignedPlayerInfo, error) {
	return nil, host.Reject(string(errors.ErrNotSupported), "signed player info requires a real host")
}

func (h playerHost) ASID(context.Context) (string, error) {
	return "", host.Reject(string(errors.ErrNotSupported), "ASID requires a real host")
}

func (h playerHost) SignedASID(context.Context) (*host.SignedASID, error) {
	return nil, host.Reject(string(errors.ErrNotSupported), "signed ASID requires a real host")
}

func (h playerHost) CanSubscribeBot(context.Context) (bool, error) {
	if err := h.p.check(facade.OpPlayerCanSubscribeBot); err != nil {
		return false, err
	}
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	return !h.p.subscribed, nil
}

func (h playerHost) SubscribeBot(context.Context) error {
	if err := h.p.check(facade.OpPlayerSubscribeBot); err != nil {
		return err
	}
	h.p.mu.Lock()
	defer h.p.mu.Unlock()
	if h.p.subscribed {
		return host.Reject(string(errors.ErrInvalidOperation), "player is already subscribed")
	}
	h.p.subscribed = true
	return nil
}

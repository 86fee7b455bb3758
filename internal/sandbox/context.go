package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/db"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/facade"
	"github.com/hpungsan/wortal/internal/host"
)

type contextHost struct{ p *Provider }

func (c contextHost) ID() string {
	_, id := c.p.session()
	return id
}

func (c contextHost) Type() host.ContextType {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	return c.p.contextType
}

func (c contextHost) Players(ctx context.Context) ([]host.Player, error) {
	if err := c.p.check(facade.OpContextPlayers); err != nil {
		return nil, err
	}
	me, id := c.p.session()
	if id == "" {
		return []host.Player{me}, nil
	}
	return db.ContextMembers(ctx, c.p.db, id)
}

// Choose picks connected players in link order, enough to satisfy minSize,
// and moves into a context with them. No connections reads as the player
// dismissing the chooser.
func (c contextHost) Choose(ctx context.Context, payload *host.ContextPayload) error {
	if err := c.p.check(facade.OpContextChoose); err != nil {
		return err
	}
	me, current := c.p.session()

	want := 1
	newOnly := false
	if payload != nil {
		if payload.MinSize != nil && *payload.MinSize > 2 {
			want = *payload.MinSize - 1
		}
		if len(payload.Filters) > 0 && payload.Filters[0] == host.FilterNewContextOnly {
			newOnly = true
		}
	}

	friends, err := db.ConnectedPlayers(ctx, c.p.db, me.ID, db.ConnectionQuery{Limit: want})
	if err != nil {
		return err
	}
	if len(friends) < want {
		return host.Reject(string(errors.ErrUserInput), "player closed the chooser")
	}

	if want == 1 && !newOnly {
		id, err := db.FindThread(ctx, c.p.db, me.ID, friends[0].ID)
		switch {
		case err == nil:
			if id == current {
				return host.Reject(string(errors.ErrSameContext), "chosen context is already active")
			}
			return c.p.enterContext(ctx, id, host.ContextThread)
		case !stderrors.Is(err, db.ErrNotFound):
			return err
		}
	}

	typ := host.ContextThread
	if want > 1 {
		typ = host.ContextGroup
	}
	members := []string{me.ID}
	for _, f := range friends {
		members = append(members, f.ID)
	}
	return c.newContext(ctx, typ, members)
}

func (c contextHost) newContext(ctx context.Context, typ host.ContextType, members []string) error {
	id := newID()
	now := c.p.now().Unix()
	err := db.InTx(ctx, c.p.db, func(tx *sql.Tx) error {
		return db.InsertContext(ctx, tx, id, typ, members, now)
	})
	if err != nil {
		return err
	}
	c.p.log.Debug("sandbox context created", zap.String("context_id", id), zap.String("type", string(typ)))
	return c.p.enterContext(ctx, id, typ)
}

// Create moves into the thread with playerID, creating it when needed.
func (c contextHost) Create(ctx context.Context, playerID string) error {
	if err := c.p.check(facade.OpContextCreate); err != nil {
		return err
	}
	me, current := c.p.session()
	if playerID == me.ID {
		return host.Reject(string(errors.ErrInvalidParam), "cannot create a context with yourself")
	}
	if _, err := db.GetPlayer(ctx, c.p.db, playerID); err != nil {
		if stderrors.Is(err, db.ErrNotFound) {
			return host.Reject(string(errors.ErrInvalidParam), "unknown player "+playerID)
		}
		return err
	}

	id, err := db.FindThread(ctx, c.p.db, me.ID, playerID)
	switch {
	case err == nil:
		if id == current {
			return host.Reject(string(errors.ErrSameContext), "already in a context with "+playerID)
		}
		return c.p.enterContext(ctx, id, host.ContextThread)
	case stderrors.Is(err, db.ErrNotFound):
		return c.newContext(ctx, host.ContextThread, []string{me.ID, playerID})
	default:
		return err
	}
}

func (c contextHost) Switch(ctx context.Context, contextID string) error {
	if err := c.p.check(facade.OpContextSwitch); err != nil {
		return err
	}
	me, current := c.p.session()
	if contextID == current {
		return host.Reject(string(errors.ErrSameContext), "context is already active")
	}
	typ, err := db.GetContextType(ctx, c.p.db, contextID)
	if stderrors.Is(err, db.ErrNotFound) {
		return host.Reject(string(errors.ErrInvalidParam), "unknown context "+contextID)
	}
	if err != nil {
		return err
	}

	members, err := db.ContextMembers(ctx, c.p.db, contextID)
	if err != nil {
		return err
	}
	if !containsPlayer(members, me.ID) {
		return host.Reject(string(errors.ErrInvalidParam), "player is not in context "+contextID)
	}
	return c.p.enterContext(ctx, contextID, typ)
}

// Invite reports one invitation per connected player.
func (c contextHost) Invite(ctx context.Context, payload host.ContextPayload) (int, error) {
	if err := c.p.check(facade.OpContextInvite); err != nil {
		return 0, err
	}
	n, err := c.recipients(ctx)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, host.Reject(string(errors.ErrUserInput), "no players to invite")
	}
	if err := c.record(ctx, db.MessageInvite, payload); err != nil {
		return 0, err
	}
	return n, nil
}

// Share reports one share per connected player and honors minShare.
func (c contextHost) Share(ctx context.Context, payload host.ContextPayload) (int, error) {
	if err := c.p.check(facade.OpContextShare); err != nil {
		return 0, err
	}
	n, err := c.recipients(ctx)
	if err != nil {
		return 0, err
	}
	if n == 0 || (payload.MinShare != nil && n < *payload.MinShare) {
		return 0, host.Reject(string(errors.ErrUserInput), "player cancelled the share")
	}
	if err := c.record(ctx, db.MessageShare, payload); err != nil {
		return 0, err
	}
	return n, nil
}

func (c contextHost) ShareLink(ctx context.Context, payload host.LinkSharePayload) error {
	if err := c.p.check(facade.OpContextShareLink); err != nil {
		return err
	}
	return c.record(ctx, db.MessageShareLink, payload)
}

func (c contextHost) Update(ctx context.Context, payload host.ContextPayload) error {
	if err := c.p.check(facade.OpContextUpdate); err != nil {
		return err
	}
	if _, id := c.p.session(); id == "" {
		return host.Reject(string(errors.ErrInvalidOperation), "cannot update a solo context")
	}
	return c.record(ctx, db.MessageUpdate, payload)
}

// SizeBetween has no answer in a solo context.
func (c contextHost) SizeBetween(ctx context.Context, min, max *int) (*host.ContextSizeResponse, error) {
	if err := c.p.check(facade.OpContextSizeBetween); err != nil {
		return nil, err
	}
	_, id := c.p.session()
	if id == "" {
		return nil, nil
	}
	members, err := db.ContextMembers(ctx, c.p.db, id)
	if err != nil {
		return nil, err
	}

	size := len(members)
	answer := (min == nil || size >= *min) && (max == nil || size <= *max)
	return &host.ContextSizeResponse{Answer: answer, MinSize: min, MaxSize: max}, nil
}

func (c contextHost) recipients(ctx context.Context) (int, error) {
	me, _ := c.p.session()
	friends, err := db.ConnectedPlayers(ctx, c.p.db, me.ID, db.ConnectionQuery{Limit: -1})
	if err != nil {
		return 0, err
	}
	return len(friends), nil
}

func (c contextHost) record(ctx context.Context, kind string, payload any) error {
	me, id := c.p.session()
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return db.InsertMessage(ctx, c.p.db, db.Message{
		ID:          newID(),
		ContextID:   id,
		SenderID:    me.ID,
		Kind:        kind,
		PayloadJSON: string(raw),
		CreatedAt:   c.p.now().Unix(),
	})
}

func containsPlayer(players []host.Player, id string) bool {
	for _, pl := range players {
		if pl.ID == id {
			return true
		}
	}
	return false
}

package facade

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/guard"
	"github.com/hpungsan/wortal/internal/host"
	"github.com/hpungsan/wortal/internal/validate"
)

// ContextAPI covers the context (session scope) capabilities.
type ContextAPI struct {
	f *Facade
}

func (c *ContextAPI) host() host.ContextProvider {
	return c.f.provider.Context()
}

// ID returns the active context ID, "" when solo or unsupported.
func (c *ContextAPI) ID() string {
	return c.host().ID()
}

// Type returns the active context type.
func (c *ContextAPI) Type() host.ContextType {
	t := c.host().Type()
	if t == "" {
		return host.ContextSolo
	}
	return t
}

// Players returns the players in the active context.
func (c *ContextAPI) Players(ctx context.Context) ([]host.Player, error) {
	return call(ctx, c.f, OpContextPlayers, "", func(ctx context.Context) ([]host.Player, error) {
		return c.host().Players(ctx)
	})
}

// Choose opens the host's context chooser. A nil payload uses host defaults.
func (c *ContextAPI) Choose(ctx context.Context, payload *host.ContextPayload) error {
	p, err := validate.ChoosePayload(payload)
	if err != nil {
		_, err = reject[none](c.f, OpContextChoose, err)
		return err
	}
	return c.changeContext(ctx, OpContextChoose, func(ctx context.Context) error {
		return c.host().Choose(ctx, p)
	})
}

// Create starts a context with a player. Only the first ID is forwarded.
func (c *ContextAPI) Create(ctx context.Context, playerIDs ...string) error {
	id, err := validate.PlayerIDs(playerIDs)
	if err != nil {
		_, err = reject[none](c.f, OpContextCreate, err)
		return err
	}
	if len(playerIDs) > 1 {
		c.f.log.Debug("create forwards first player only",
			zap.String("player_id", id),
			zap.Int("dropped", len(playerIDs)-1))
	}
	return c.changeContext(ctx, OpContextCreate, func(ctx context.Context) error {
		return c.host().Create(ctx, id)
	})
}

// Switch moves into contextID. Switching into the active context fails with
// SAME_CONTEXT without reaching the host.
func (c *ContextAPI) Switch(ctx context.Context, contextID string) error {
	if err := validate.ContextID(contextID); err != nil {
		_, err = reject[none](c.f, OpContextSwitch, err)
		return err
	}
	if contextID == c.host().ID() {
		_, err := reject[none](c.f, OpContextSwitch, errors.NewSameContext(contextID))
		return err
	}
	return c.changeContext(ctx, OpContextSwitch, func(ctx context.Context) error {
		return c.host().Switch(ctx, contextID)
	})
}

// changeContext runs a context-switch class call and drops the size memo on success.
func (c *ContextAPI) changeContext(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := call(ctx, c.f, op, guard.ContextSwitch, func(ctx context.Context) (none, error) {
		return none{}, fn(ctx)
	})
	if err == nil {
		c.f.sizes.reset()
	}
	return err
}

// Invite opens the invite dialog and returns the number of invitations sent.
func (c *ContextAPI) Invite(ctx context.Context, payload host.ContextPayload) (int, error) {
	p, err := validate.ContextPayload(payload)
	if err != nil {
		return reject[int](c.f, OpContextInvite, err)
	}
	return call(ctx, c.f, OpContextInvite, guard.ShareDialog, func(ctx context.Context) (int, error) {
		return c.host().Invite(ctx, p)
	})
}

// Share opens the share dialog and returns the number of shares.
func (c *ContextAPI) Share(ctx context.Context, payload host.ContextPayload) (int, error) {
	p, err := validate.ContextPayload(payload)
	if err != nil {
		return reject[int](c.f, OpContextShare, err)
	}
	return call(ctx, c.f, OpContextShare, guard.ShareDialog, func(ctx context.Context) (int, error) {
		return c.host().Share(ctx, p)
	})
}

// ShareLink opens the link share dialog.
func (c *ContextAPI) ShareLink(ctx context.Context, payload host.LinkSharePayload) error {
	if err := validate.LinkSharePayload(payload); err != nil {
		_, err = reject[none](c.f, OpContextShareLink, err)
		return err
	}
	_, err := call(ctx, c.f, OpContextShareLink, guard.ShareDialog, func(ctx context.Context) (none, error) {
		return none{}, c.host().ShareLink(ctx, payload)
	})
	return err
}

// Update posts an update to the active context.
func (c *ContextAPI) Update(ctx context.Context, payload host.ContextPayload) error {
	p, err := validate.ContextPayload(payload)
	if err != nil {
		_, err = reject[none](c.f, OpContextUpdate, err)
		return err
	}
	_, err = call(ctx, c.f, OpContextUpdate, guard.ContextUpdate, func(ctx context.Context) (none, error) {
		return none{}, c.host().Update(ctx, p)
	})
	return err
}

// IsSizeBetween reports whether the active context's size lies within the
// bounds. The first answer in a context is returned for every later call in
// that context, whatever the bounds.
func (c *ContextAPI) IsSizeBetween(ctx context.Context, min, max *int) (*host.ContextSizeResponse, error) {
	if err := validate.SizeBounds(min, max); err != nil {
		return reject[*host.ContextSizeResponse](c.f, OpContextSizeBetween, err)
	}

	id := c.host().ID()
	if cached, ok := c.f.sizes.get(id); ok {
		c.f.log.Debug("size answer from memo", zap.String("context_id", id))
		return cached, nil
	}

	resp, err := call(ctx, c.f, OpContextSizeBetween, "", func(ctx context.Context) (*host.ContextSizeResponse, error) {
		resp, err := c.host().SizeBetween(ctx, min, max)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, errors.NewNotSupported(OpContextSizeBetween)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return c.f.sizes.put(id, resp), nil
}

// sizeMemo holds the first size answer for one context ID.
type sizeMemo struct {
	mu        sync.Mutex
	set       bool
	contextID string
	answer    host.ContextSizeResponse
}

func (m *sizeMemo) get(contextID string) (*host.ContextSizeResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set || m.contextID != contextID {
		return nil, false
	}
	answer := m.answer
	return &answer, true
}

// put stores resp unless an answer for contextID already exists, and returns
// the answer that is now memoized.
func (m *sizeMemo) put(contextID string, resp *host.ContextSizeResponse) *host.ContextSizeResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set || m.contextID != contextID {
		m.set = true
		m.contextID = contextID
		m.answer = *resp
	}
	answer := m.answer
	return &answer
}

func (m *sizeMemo) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = false
	m.contextID = ""
	m.answer = host.ContextSizeResponse{}
}

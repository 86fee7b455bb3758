package sandbox

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/db"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/host"
)

// AddPlayer registers a player.
func (p *Provider) AddPlayer(ctx context.Context, pl host.Player) error {
	if strings.TrimSpace(pl.ID) == "" {
		return errors.NewInvalidParam("id", "is required")
	}
	if pl.Name == "" {
		pl.Name = pl.ID
	}
	err := db.InsertPlayer(ctx, p.db, pl, p.now().Unix())
	if stderrors.Is(err, db.ErrUniqueConstraint) {
		return errors.NewInvalidParam("id", "player "+pl.ID+" already exists")
	}
	return err
}

// Connect links two existing players.
func (p *Provider) Connect(ctx context.Context, a, b string) error {
	if a == b {
		return errors.NewInvalidParam("player", "cannot connect a player to itself")
	}
	for _, id := range []string{a, b} {
		if _, err := db.GetPlayer(ctx, p.db, id); err != nil {
			if stderrors.Is(err, db.ErrNotFound) {
				return errors.NewInvalidParam("player", "unknown player "+id)
			}
			return err
		}
	}
	return db.Connect(ctx, p.db, a, b, p.now().Unix())
}

// CreateLeaderboard adds a leaderboard, bound to contextID when non-empty.
func (p *Provider) CreateLeaderboard(ctx context.Context, name, contextID string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewInvalidParam("name", "is required")
	}
	if contextID != "" {
		if _, err := db.GetContextType(ctx, p.db, contextID); err != nil {
			if stderrors.Is(err, db.ErrNotFound) {
				return errors.NewInvalidParam("context_id", "unknown context "+contextID)
			}
			return err
		}
	}
	err := db.InsertLeaderboard(ctx, p.db, name, contextID, p.now().Unix())
	if stderrors.Is(err, db.ErrUniqueConstraint) {
		return errors.NewInvalidParam("name", "leaderboard "+name+" already exists")
	}
	return err
}

// UsePlayer starts a fresh solo session as playerID. Staged data of the
// previous player is discarded.
func (p *Provider) UsePlayer(ctx context.Context, playerID string) error {
	if _, err := db.GetPlayer(ctx, p.db, playerID); err != nil {
		if stderrors.Is(err, db.ErrNotFound) {
			return errors.NewInvalidParam("player", "unknown player "+playerID)
		}
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	sess := db.Session{PlayerID: playerID}
	if err := db.SaveSession(ctx, p.db, sess); err != nil {
		return err
	}
	if err := p.load(ctx, sess); err != nil {
		return err
	}
	p.log.Info("sandbox player switched", zap.String("player_id", playerID))
	return nil
}

// Messages lists dialogs completed in contextID, newest first.
func (p *Provider) Messages(ctx context.Context, contextID string, limit int) ([]db.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.ListMessages(ctx, p.db, contextID, limit)
}

// Package sandbox is an offline host backed by SQLite. It lets the façade and
// every surface run without a browser host, reproducing the host-side
// outcomes games have to handle.
package sandbox

import (
	"context"
	"crypto/rand"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/adbreak"
	"github.com/hpungsan/wortal/internal/db"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/host"
)

// Options configures Open.
type Options struct {
	// PlayerID, PlayerName and PlayerPhoto seed the session player on first run.
	PlayerID    string
	PlayerName  string
	PlayerPhoto string

	// Unsupported lists operation names rejected with NOT_SUPPORTED.
	Unsupported []string

	Logger *zap.Logger
	Now    func() time.Time
}

// Provider implements host.Provider over a sandbox database.
type Provider struct {
	db          *sql.DB
	log         *zap.Logger
	now         func() time.Time
	unsupported map[string]bool

	mu          sync.Mutex
	player      host.Player
	firstPlay   bool
	contextID   string
	contextType host.ContextType
	pending     map[string]string
	subscribed  bool
}

var (
	_ host.Provider  = (*Provider)(nil)
	_ adbreak.Shower = (*Provider)(nil)
)

// Open restores the persisted session, creating the session player on first run.
func Open(ctx context.Context, database *sql.DB, opts Options) (*Provider, error) {
	p := &Provider{
		db:          database,
		log:         opts.Logger,
		now:         opts.Now,
		unsupported: make(map[string]bool, len(opts.Unsupported)),
		pending:     map[string]string{},
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	for _, op := range opts.Unsupported {
		p.unsupported[op] = true
	}

	sess, err := db.GetSession(ctx, database)
	if stderrors.Is(err, db.ErrNotFound) {
		if opts.PlayerID == "" {
			return nil, fmt.Errorf("sandbox: no session and no player id configured")
		}
		if err := p.ensurePlayer(ctx, host.Player{ID: opts.PlayerID, Name: opts.PlayerName, Photo: opts.PlayerPhoto}); err != nil {
			return nil, err
		}
		sess = &db.Session{PlayerID: opts.PlayerID}
		if err := db.SaveSession(ctx, database, *sess); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := p.load(ctx, *sess); err != nil {
		return nil, err
	}
	p.log.Debug("sandbox session opened",
		zap.String("player_id", p.player.ID),
		zap.String("context_id", p.contextID),
		zap.Bool("first_play", p.firstPlay))
	return p, nil
}

func (p *Provider) ensurePlayer(ctx context.Context, pl host.Player) error {
	if pl.Name == "" {
		pl.Name = pl.ID
	}
	err := db.InsertPlayer(ctx, p.db, pl, p.now().Unix())
	if err != nil && !stderrors.Is(err, db.ErrUniqueConstraint) {
		return err
	}
	return nil
}

// load makes sess the active session. Caller holds p.mu or owns p exclusively.
func (p *Provider) load(ctx context.Context, sess db.Session) error {
	pl, err := db.GetPlayer(ctx, p.db, sess.PlayerID)
	if err != nil {
		return fmt.Errorf("sandbox: session player %q: %w", sess.PlayerID, err)
	}
	first, err := db.MarkPlayed(ctx, p.db, pl.ID)
	if err != nil {
		return err
	}

	typ := host.ContextSolo
	if sess.ContextID != "" {
		typ, err = db.GetContextType(ctx, p.db, sess.ContextID)
		if stderrors.Is(err, db.ErrNotFound) {
			sess.ContextID, typ = "", host.ContextSolo
		} else if err != nil {
			return err
		}
	}

	p.player = *pl
	p.firstPlay = first
	p.contextID = sess.ContextID
	p.contextType = typ
	p.pending = map[string]string{}
	p.subscribed = false
	return nil
}

// Context implements host.Provider.
func (p *Provider) Context() host.ContextProvider { return contextHost{p} }

// Player implements host.Provider.
func (p *Provider) Player() host.PlayerProvider { return playerHost{p} }

// Leaderboard implements host.Provider.
func (p *Provider) Leaderboard() host.LeaderboardProvider { return leaderboardHost{p} }

// ShowAd implements adbreak.Shower. The sandbox has no ad inventory.
func (p *Provider) ShowAd(_ context.Context, placement adbreak.Placement, description string, hooks adbreak.Hooks) error {
	p.log.Debug("ad requested", zap.String("placement", string(placement)), zap.String("description", description))
	if hooks.NoShow != nil {
		hooks.NoShow()
	}
	return nil
}

// check rejects op when it is configured as unsupported.
func (p *Provider) check(op string) error {
	if p.unsupported[op] {
		return host.Reject(string(errors.ErrNotSupported), op+" is not supported by this host")
	}
	return nil
}

func (p *Provider) session() (host.Player, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player, p.contextID
}

// enterContext makes id the active context and persists the session.
func (p *Provider) enterContext(ctx context.Context, id string, typ host.ContextType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := db.SaveSession(ctx, p.db, db.Session{PlayerID: p.player.ID, ContextID: id}); err != nil {
		return err
	}
	p.contextID = id
	p.contextType = typ
	return nil
}

func newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}

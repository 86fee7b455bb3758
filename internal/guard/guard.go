// Package guard enforces one pending request per capability class.
package guard

import (
	"sync"

	"github.com/hpungsan/wortal/internal/errors"
)

// Class names a group of operations that must not overlap.
type Class string

const (
	PlayerData    Class = "player-data"
	ContextSwitch Class = "context-switch"
	ShareDialog   Class = "share-dialog"
	ContextUpdate Class = "context-update"
	BotSubscribe  Class = "bot-subscribe"
)

// Classes returns every class the façade guards.
func Classes() []Class {
	return []Class{PlayerData, ContextSwitch, ShareDialog, ContextUpdate, BotSubscribe}
}

// State is the per-class state.
type State string

const (
	Idle     State = "IDLE"
	InFlight State = "IN_FLIGHT"
)

// Token is handed out by Enter and must be passed to Exit exactly once.
type Token struct {
	class Class
	seq   uint64
}

// Class returns the class the token was issued for.
func (t *Token) Class() Class {
	return t.class
}

// Observer is notified on every transition. Used for metrics.
type Observer interface {
	Entered(class Class)
	Exited(class Class)
	Rejected(class Class)
}

// Guard tracks in-flight flags per class. The zero value is not usable; use New.
type Guard struct {
	mu       sync.Mutex
	inFlight map[Class]uint64 // class -> seq of the live token
	seq      uint64
	observer Observer
}

// New creates a Guard with every class IDLE.
func New() *Guard {
	return &Guard{inFlight: make(map[Class]uint64)}
}

// WithObserver attaches an observer and returns g.
func (g *Guard) WithObserver(o Observer) *Guard {
	g.mu.Lock()
	g.observer = o
	g.mu.Unlock()
	return g
}

// Enter moves class from IDLE to IN_FLIGHT. It never blocks: a class that is
// already IN_FLIGHT fails with PENDING_REQUEST.
func (g *Guard) Enter(class Class) (*Token, error) {
	g.mu.Lock()
	if _, busy := g.inFlight[class]; busy {
		obs := g.observer
		g.mu.Unlock()
		if obs != nil {
			obs.Rejected(class)
		}
		return nil, errors.NewPendingRequest(string(class))
	}
	g.seq++
	tok := &Token{class: class, seq: g.seq}
	g.inFlight[class] = tok.seq
	obs := g.observer
	g.mu.Unlock()

	if obs != nil {
		obs.Entered(class)
	}
	return tok, nil
}

// Exit returns the token's class to IDLE. Stale or repeated tokens are ignored,
// so a deferred Exit is always safe.
func (g *Guard) Exit(tok *Token) {
	if tok == nil {
		return
	}
	g.mu.Lock()
	seq, busy := g.inFlight[tok.class]
	if !busy || seq != tok.seq {
		g.mu.Unlock()
		return
	}
	delete(g.inFlight, tok.class)
	obs := g.observer
	g.mu.Unlock()

	if obs != nil {
		obs.Exited(tok.class)
	}
}

// State reports the current state of class.
func (g *Guard) State(class Class) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[class]; busy {
		return InFlight
	}
	return Idle
}

// Do runs fn inside Enter/Exit. Exit runs on every path, including a panic in fn.
func Do[T any](g *Guard, class Class, fn func() (T, error)) (T, error) {
	tok, err := g.Enter(class)
	if err != nil {
		var zero T
		return zero, err
	}
	defer g.Exit(tok)
	return fn()
}

package facade

import (
	"context"
	"sync"

	"github.com/hpungsan/wortal/internal/host"
)

// fakeHost records every provider call. A method listed in gates blocks
// until its channel is closed, signalling on started first.
type fakeHost struct {
	mu      sync.Mutex
	calls   []string
	errs    map[string]error
	gates   map[string]chan struct{}
	started chan string

	contextID   string
	contextType host.ContextType
	size        *host.ContextSizeResponse

	lastChoose  *host.ContextPayload
	lastCreate  string
	lastSwitch  string
	lastInvite  host.ContextPayload
	lastUpdate  host.ContextPayload
	lastSetData map[string]any
	lastPlayers host.ConnectedPlayerPayload
	lastCount   int
	lastOffset  int
	lastDetails string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (h *fakeHost) Context() host.ContextProvider         { return fakeContext{h} }
func (h *fakeHost) Player() host.PlayerProvider           { return fakePlayer{h} }
func (h *fakeHost) Leaderboard() host.LeaderboardProvider { return fakeLeaderboard{h} }

// gate makes method block until the returned release func runs.
func (h *fakeHost) gate(method string) (release func()) {
	ch := make(chan struct{})
	h.mu.Lock()
	h.gates[method] = ch
	h.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (h *fakeHost) fail(method string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs[method] = err
}

func (h *fakeHost) enter(method string) error {
	h.mu.Lock()
	h.calls = append(h.calls, method)
	gate := h.gates[method]
	err := h.errs[method]
	h.mu.Unlock()

	if gate != nil {
		h.started <- method
		<-gate
	}
	return err
}

func (h *fakeHost) count(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (h *fakeHost) setContextID(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contextID = id
}

type fakeContext struct{ h *fakeHost }

func (c fakeContext) ID() string {
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	return c.h.contextID
}

func (c fakeContext) Type() host.ContextType { return c.h.contextType }

func (c fakeContext) Players(context.Context) ([]host.Player, error) {
	if err := c.h.enter("Players"); err != nil {
		return nil, err
	}
	return []host.Player{{ID: "p1", Name: "One"}}, nil
}

func (c fakeContext) Choose(_ context.Context, p *host.ContextPayload) error {
	c.h.mu.Lock()
	c.h.lastChoose = p
	c.h.mu.Unlock()
	return c.h.enter("Choose")
}

func (c fakeContext) Create(_ context.Context, playerID string) error {
	c.h.mu.Lock()
	c.h.lastCreate = playerID
	c.h.mu.Unlock()
	return c.h.enter("Create")
}

func (c fakeContext) Switch(_ context.Context, id string) error {
	if err := c.h.enter("Switch"); err != nil {
		return err
	}
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	c.h.lastSwitch = id
	c.h.contextID = id
	return nil
}

func (c fakeContext) Invite(_ context.Context, p host.ContextPayload) (int, error) {
	c.h.mu.Lock()
	c.h.lastInvite = p
	c.h.mu.Unlock()
	if err := c.h.enter("Invite"); err != nil {
		return 0, err
	}
	return 2, nil
}

func (c fakeContext) Share(_ context.Context, _ host.ContextPayload) (int, error) {
	if err := c.h.enter("Share"); err != nil {
		return 0, err
	}
	return 1, nil
}

func (c fakeContext) ShareLink(context.Context, host.LinkSharePayload) error {
	return c.h.enter("ShareLink")
}

func (c fakeContext) Update(_ context.Context, p host.ContextPayload) error {
	c.h.mu.Lock()
	c.h.lastUpdate = p
	c.h.mu.Unlock()
	return c.h.enter("Update")
}

func (c fakeContext) SizeBetween(_ context.Context, min, max *int) (*host.ContextSizeResponse, error) {
	if err := c.h.enter("SizeBetween"); err != nil {
		return nil, err
	}
	c.h.mu.Lock()
	defer c.h.mu.Unlock()
	if c.h.size == nil {
		return nil, nil
	}
	resp := *c.h.size
	resp.MinSize, resp.MaxSize = min, max
	return &resp, nil
}

type fakePlayer struct{ h *fakeHost }

func (p fakePlayer) ID() string        { return "player-1" }
func (p fakePlayer) Name() string      { return "Player One" }
func (p fakePlayer) Photo() string     { return "https://example.test/p1.png" }
func (p fakePlayer) IsFirstPlay() bool { return true }

func (p fakePlayer) Data(_ context.Context, keys []string) (map[string]any, error) {
	if err := p.h.enter("Data"); err != nil {
		return nil, err
	}
	out := map[string]any{}
	for _, k := range keys {
		out[k] = len(k)
	}
	return out, nil
}

func (p fakePlayer) SetData(_ context.Context, data map[string]any) error {
	p.h.mu.Lock()
	p.h.lastSetData = data
	p.h.mu.Unlock()
	return p.h.enter("SetData")
}

func (p fakePlayer) FlushData(context.Context) error {
	return p.h.enter("FlushData")
}

func (p fakePlayer) ConnectedPlayers(_ context.Context, q host.ConnectedPlayerPayload) ([]host.Player, error) {
	p.h.mu.Lock()
	p.h.lastPlayers = q
	p.h.mu.Unlock()
	if err := p.h.enter("ConnectedPlayers"); err != nil {
		return nil, err
	}
	return []host.Player{{ID: "friend"}}, nil
}

func (p fakePlayer) SignedPlayerInfo(context.Context) (*host.SignedPlayerInfo, error) {
	if err := p.h.enter("SignedPlayerInfo"); err != nil {
		return nil, err
	}
	return &host.SignedPlayerInfo{PlayerID: "player-1", Signature: "sig"}, nil
}

func (p fakePlayer) ASID(context.Context) (string, error) {
	if err := p.h.enter("ASID"); err != nil {
		return "", err
	}
	return "asid-1", nil
}

func (p fakePlayer) SignedASID(context.Context) (*host.SignedASID, error) {
	if err := p.h.enter("SignedASID"); err != nil {
		return nil, err
	}
	return &host.SignedASID{ASID: "asid-1", Signature: "sig"}, nil
}

func (p fakePlayer) CanSubscribeBot(context.Context) (bool, error) {
	if err := p.h.enter("CanSubscribeBot"); err != nil {
		return false, err
	}
	return true, nil
}

func (p fakePlayer) SubscribeBot(context.Context) error {
	return p.h.enter("SubscribeBot")
}

type fakeLeaderboard struct{ h *fakeHost }

func (l fakeLeaderboard) Leaderboard(_ context.Context, name string) (*host.Leaderboard, error) {
	if err := l.h.enter("Leaderboard"); err != nil {
		return nil, err
	}
	return &host.Leaderboard{Name: name}, nil
}

func (l fakeLeaderboard) SendEntry(_ context.Context, _ string, score int64, details string) (*host.LeaderboardEntry, error) {
	l.h.mu.Lock()
	l.h.lastDetails = details
	l.h.mu.Unlock()
	if err := l.h.enter("SendEntry"); err != nil {
		return nil, err
	}
	return &host.LeaderboardEntry{Rank: 1, Score: score, Details: details}, nil
}

func (l fakeLeaderboard) Entries(_ context.Context, _ string, count, offset int) ([]host.LeaderboardEntry, error) {
	l.h.mu.Lock()
	l.h.lastCount, l.h.lastOffset = count, offset
	l.h.mu.Unlock()
	if err := l.h.enter("Entries"); err != nil {
		return nil, err
	}
	return []host.LeaderboardEntry{{Rank: 1, Score: 10}}, nil
}

func (l fakeLeaderboard) PlayerEntry(context.Context, string) (*host.LeaderboardEntry, error) {
	if err := l.h.enter("PlayerEntry"); err != nil {
		return nil, err
	}
	return nil, nil
}

func (l fakeLeaderboard) EntryCount(context.Context, string) (int, error) {
	if err := l.h.enter("EntryCount"); err != nil {
		return 0, err
	}
	return 7, nil
}

func (l fakeLeaderboard) ConnectedPlayersEntries(_ context.Context, _ string, count, offset int) ([]host.LeaderboardEntry, error) {
	l.h.mu.Lock()
	l.h.lastCount, l.h.lastOffset = count, offset
	l.h.mu.Unlock()
	if err := l.h.enter("ConnectedPlayersEntries"); err != nil {
		return nil, err
	}
	return nil, nil
}

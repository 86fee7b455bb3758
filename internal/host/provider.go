// Package host defines the capability provider the façade delegates to and
// the value types that cross that boundary.
package host

import "context"

// Provider is the injected host SDK, organized into three namespaces.
type Provider interface {
	Context() ContextProvider
	Player() PlayerProvider
	Leaderboard() LeaderboardProvider
}

// ContextProvider exposes the host's context capabilities.
type ContextProvider interface {
	// ID returns the active context ID, "" when solo or unsupported.
	ID() string
	Type() ContextType
	Players(ctx context.Context) ([]Player, error)
	Choose(ctx context.Context, payload *ContextPayload) error
	// Create receives a single player ID; some hosts accept only one.
	Create(ctx context.Context, playerID string) error
	Switch(ctx context.Context, contextID string) error
	Invite(ctx context.Context, payload ContextPayload) (int, error)
	Share(ctx context.Context, payload ContextPayload) (int, error)
	ShareLink(ctx context.Context, payload LinkSharePayload) error
	Update(ctx context.Context, payload ContextPayload) error
	// SizeBetween returns nil when the host cannot answer.
	SizeBetween(ctx context.Context, min, max *int) (*ContextSizeResponse, error)
}

// PlayerProvider exposes the host's player capabilities.
type PlayerProvider interface {
	ID() string
	Name() string
	Photo() string
	IsFirstPlay() bool
	Data(ctx context.Context, keys []string) (map[string]any, error)
	SetData(ctx context.Context, data map[string]any) error
	FlushData(ctx context.Context) error
	ConnectedPlayers(ctx context.Context, payload ConnectedPlayerPayload) ([]Player, error)
	SignedPlayerInfo(ctx context.Context) (*SignedPlayerInfo, error)
	ASID(ctx context.Context) (string, error)
	SignedASID(ctx context.Context) (*SignedASID, error)
	CanSubscribeBot(ctx context.Context) (bool, error)
	SubscribeBot(ctx context.Context) error
}

// LeaderboardProvider exposes the host's leaderboard capabilities.
type LeaderboardProvider interface {
	Leaderboard(ctx context.Context, name string) (*Leaderboard, error)
	SendEntry(ctx context.Context, name string, score int64, details string) (*LeaderboardEntry, error)
	Entries(ctx context.Context, name string, count, offset int) ([]LeaderboardEntry, error)
	// PlayerEntry returns nil when the player has no entry yet.
	PlayerEntry(ctx context.Context, name string) (*LeaderboardEntry, error)
	EntryCount(ctx context.Context, name string) (int, error)
	ConnectedPlayersEntries(ctx context.Context, name string, count, offset int) ([]LeaderboardEntry, error)
}

// ProviderError is the host's native rejection shape: {code, message}.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// Reject builds a ProviderError.
func Reject(code, message string) *ProviderError {
	return &ProviderError{Code: code, Message: message}
}

package host

import (
	"bytes"
	"encoding/json"
)

// ContextType is the kind of the active context.
type ContextType string

const (
	ContextSolo   ContextType = "SOLO"
	ContextThread ContextType = "THREAD"
	ContextGroup  ContextType = "GROUP"
	ContextPost   ContextType = "POST"
)

// ContextFilter governs which friends or contexts a dialog lists.
type ContextFilter string

const (
	FilterNewContextOnly            ContextFilter = "NEW_CONTEXT_ONLY"
	FilterIncludeExistingChallenges ContextFilter = "INCLUDE_EXISTING_CHALLENGES"
	FilterNewPlayersOnly            ContextFilter = "NEW_PLAYERS_ONLY"
	FilterNewInvitationsOnly        ContextFilter = "NEW_INVITATIONS_ONLY"
)

// ConnectedPlayerFilter narrows the connected-player list.
type ConnectedPlayerFilter string

const (
	ConnectedAll                ConnectedPlayerFilter = "ALL"
	ConnectedIncludePlayers     ConnectedPlayerFilter = "INCLUDE_PLAYERS"
	ConnectedIncludeNonPlayers  ConnectedPlayerFilter = "INCLUDE_NON_PLAYERS"
	ConnectedNewInvitationsOnly ConnectedPlayerFilter = "NEW_INVITATIONS_ONLY"
)

// Intent is the message format of a context message.
type Intent string

const (
	IntentInvite    Intent = "INVITE"
	IntentRequest   Intent = "REQUEST"
	IntentChallenge Intent = "CHALLENGE"
	IntentShare     Intent = "SHARE"
)

// UIMode switches the share dialog layout.
type UIMode string

const (
	UIDefault  UIMode = "DEFAULT"
	UIMultiple UIMode = "MULTIPLE"
)

// Strategy controls when an update message is delivered.
type Strategy string

const (
	StrategyImmediate      Strategy = "IMMEDIATE"
	StrategyLast           Strategy = "LAST"
	StrategyImmediateClear Strategy = "IMMEDIATE_CLEAR"
)

// Notifications controls push behavior of a context message.
type Notifications string

const (
	NotificationsNoPush Notifications = "NO_PUSH"
	NotificationsPush   Notifications = "PUSH"
)

// Text is either a plain string or localizable content.
// Default is used when no localization matches the player's locale.
type Text struct {
	Default       string            `json:"default"`
	Localizations map[string]string `json:"localizations,omitempty"`
}

// Plain returns a Text without localizations.
func Plain(s string) Text {
	return Text{Default: s}
}

// Localized returns a Text with a default and per-locale strings.
func Localized(def string, localizations map[string]string) Text {
	return Text{Default: def, Localizations: localizations}
}

// IsZero reports whether the text carries nothing.
func (t Text) IsZero() bool {
	return t.Default == "" && len(t.Localizations) == 0
}

// MarshalJSON encodes plain text as a bare string.
func (t Text) MarshalJSON() ([]byte, error) {
	if len(t.Localizations) == 0 {
		return json.Marshal(t.Default)
	}
	type raw Text
	return json.Marshal(raw(t))
}

// UnmarshalJSON accepts either a bare string or {default, localizations}.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text{Default: s}
		return nil
	}
	type raw Text
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*t = Text(r)
	return nil
}

// ContextPayload is shared by choose, invite, share and update.
type ContextPayload struct {
	Image                string          `json:"image,omitempty"`
	Text                 Text            `json:"text,omitzero"`
	Caption              *Text           `json:"caption,omitempty"`
	CTA                  *Text           `json:"cta,omitempty"`
	Description          *Text           `json:"description,omitempty"`
	Data                 map[string]any  `json:"data,omitempty"`
	Filters              []ContextFilter `json:"filters,omitempty"`
	MaxSize              *int            `json:"maxSize,omitempty"`
	MinSize              *int            `json:"minSize,omitempty"`
	HoursSinceInvitation *int            `json:"hoursSinceInvitation,omitempty"`
	Intent               Intent          `json:"intent,omitempty"`
	UI                   UIMode          `json:"ui,omitempty"`
	MinShare             *int            `json:"minShare,omitempty"`
	Strategy             Strategy        `json:"strategy,omitempty"`
	Notifications        Notifications   `json:"notifications,omitempty"`
}

// LinkSharePayload defines a custom game link.
type LinkSharePayload struct {
	Image string         `json:"image"`
	Text  Text           `json:"text"`
	Data  map[string]any `json:"data,omitempty"`
}

// ContextSizeResponse is the answer to a context size query.
type ContextSizeResponse struct {
	Answer  bool `json:"answer"`
	MinSize *int `json:"minSize,omitempty"`
	MaxSize *int `json:"maxSize,omitempty"`
}

// ConnectedPlayerPayload are the options for fetching connected players.
type ConnectedPlayerPayload struct {
	Cursor               *int                  `json:"cursor,omitempty"`
	Filter               ConnectedPlayerFilter `json:"filter,omitempty"`
	HoursSinceInvitation *int                  `json:"hoursSinceInvitation,omitempty"`
	Size                 *int                  `json:"size,omitempty"`
}

// Player is a snapshot of a player's public data. It does not live-update.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

// SignedPlayerInfo carries a player ID and an opaque signature for server-side checks.
type SignedPlayerInfo struct {
	PlayerID  string `json:"playerId"`
	Signature string `json:"signature"`
}

// SignedASID is an app-scoped ID with an opaque signature.
// Verification happens server-side only and is out of scope here.
type SignedASID struct {
	ASID      string `json:"asid"`
	Signature string `json:"signature"`
}

// Leaderboard identifies a named leaderboard, optionally bound to a context.
type Leaderboard struct {
	Name      string `json:"name"`
	ContextID string `json:"contextId,omitempty"`
}

// LeaderboardEntry is a player's ranked score record.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	Score          int64  `json:"score"`
	FormattedScore string `json:"formattedScore"`
	Timestamp      int64  `json:"timestamp"`
	Details        string `json:"details,omitempty"`
	Player         Player `json:"player"`
}

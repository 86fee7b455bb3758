// Package validate checks payloads before a call crosses into the host.
// Every check is pure; failures are INVALID_PARAM errors naming the field.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/host"
)

// Limits enforced at the boundary.
const (
	MaxDataChars                = 1000
	MaxDetailsBytes             = 2048
	MaxEntriesCount             = 100
	DefaultEntriesCount         = 10
	DefaultConnectedPlayersSize = 25
)

var (
	contextFilters = map[host.ContextFilter]bool{
		host.FilterNewContextOnly:            true,
		host.FilterIncludeExistingChallenges: true,
		host.FilterNewPlayersOnly:            true,
		host.FilterNewInvitationsOnly:        true,
	}
	connectedFilters = map[host.ConnectedPlayerFilter]bool{
		host.ConnectedAll:                true,
		host.ConnectedIncludePlayers:     true,
		host.ConnectedIncludeNonPlayers:  true,
		host.ConnectedNewInvitationsOnly: true,
	}
	intents = map[host.Intent]bool{
		host.IntentInvite:    true,
		host.IntentRequest:   true,
		host.IntentChallenge: true,
		host.IntentShare:     true,
	}
	uiModes = map[host.UIMode]bool{
		host.UIDefault:  true,
		host.UIMultiple: true,
	}
	strategies = map[host.Strategy]bool{
		host.StrategyImmediate:      true,
		host.StrategyLast:           true,
		host.StrategyImmediateClear: true,
	}
	notifications = map[host.Notifications]bool{
		host.NotificationsNoPush: true,
		host.NotificationsPush:   true,
	}
)

// SerializedLength returns the length of data once stringified, counted in
// UTF-16 code units the way the host measures it.
func SerializedLength(data map[string]any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return 0, err
	}
	s := strings.TrimSuffix(buf.String(), "\n")

	// encoding/json always escapes U+2028 and U+2029; the host emits them raw.
	n := 0
	for i := 0; i < len(s); {
		if s[i] == '\\' && i+1 < len(s) {
			if esc := s[i:min(i+6, len(s))]; esc == `\u2028` || esc == `\u2029` {
				n++
				i += 6
				continue
			}
			// Other escapes are spelled the same by both encoders.
			n += 2
			i += 2
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		n += utf16.RuneLen(r)
		i += size
	}
	return n, nil
}

// Data checks that an entry-point data blob is serializable and within MaxDataChars.
func Data(field string, data map[string]any) error {
	if data == nil {
		return nil
	}
	n, err := SerializedLength(data)
	if err != nil {
		return errors.NewInvalidParam(field, "must contain only serializable values")
	}
	if n > MaxDataChars {
		e := errors.NewInvalidParam(field, fmt.Sprintf("serialized size %d exceeds %d characters", n, MaxDataChars))
		e.Details["max_chars"] = MaxDataChars
		e.Details["actual_chars"] = n
		return e
	}
	return nil
}

// ContextPayload validates a payload for invite, share and update and returns
// the copy to forward. Only the first filter is kept.
func ContextPayload(p host.ContextPayload) (host.ContextPayload, error) {
	if strings.TrimSpace(p.Image) == "" {
		return p, errors.NewInvalidParam("image", "is required")
	}
	if strings.TrimSpace(p.Text.Default) == "" {
		return p, errors.NewInvalidParam("text", "is required")
	}
	return contextOptions(p)
}

// ChoosePayload validates the optional payload of choose. Image and text are
// not required because choose only opens the friend picker.
func ChoosePayload(p *host.ContextPayload) (*host.ContextPayload, error) {
	if p == nil {
		return nil, nil
	}
	out, err := contextOptions(*p)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func contextOptions(p host.ContextPayload) (host.ContextPayload, error) {
	for _, f := range []struct {
		name string
		text *host.Text
	}{{"caption", p.Caption}, {"cta", p.CTA}, {"description", p.Description}} {
		if err := optionalText(f.name, f.text); err != nil {
			return p, err
		}
	}
	if err := localizations("text", p.Text); err != nil {
		return p, err
	}
	if err := Data("data", p.Data); err != nil {
		return p, err
	}

	if len(p.Filters) > 0 {
		first := p.Filters[0]
		if !contextFilters[first] {
			return p, errors.NewInvalidParam("filters", fmt.Sprintf("unknown filter %q", first))
		}
		p.Filters = []host.ContextFilter{first}
	}

	for _, b := range []struct {
		name string
		v    *int
	}{{"minSize", p.MinSize}, {"maxSize", p.MaxSize}, {"hoursSinceInvitation", p.HoursSinceInvitation}, {"minShare", p.MinShare}} {
		if b.v != nil && *b.v < 0 {
			return p, errors.NewInvalidParam(b.name, "must be >= 0")
		}
	}
	if p.MinSize != nil && p.MaxSize != nil && *p.MinSize > *p.MaxSize {
		return p, errors.NewInvalidParam("minSize", "must be <= maxSize")
	}

	if p.Intent != "" && !intents[p.Intent] {
		return p, errors.NewInvalidParam("intent", fmt.Sprintf("unknown value %q", p.Intent))
	}
	if p.UI != "" && !uiModes[p.UI] {
		return p, errors.NewInvalidParam("ui", fmt.Sprintf("unknown value %q", p.UI))
	}
	if p.Strategy != "" && !strategies[p.Strategy] {
		return p, errors.NewInvalidParam("strategy", fmt.Sprintf("unknown value %q", p.Strategy))
	}
	if p.Notifications != "" && !notifications[p.Notifications] {
		return p, errors.NewInvalidParam("notifications", fmt.Sprintf("unknown value %q", p.Notifications))
	}
	return p, nil
}

func optionalText(field string, t *host.Text) error {
	if t == nil {
		return nil
	}
	if strings.TrimSpace(t.Default) == "" {
		return errors.NewInvalidParam(field, "default text must not be empty")
	}
	return localizations(field, *t)
}

func localizations(field string, t host.Text) error {
	for locale, s := range t.Localizations {
		if strings.TrimSpace(locale) == "" {
			return errors.NewInvalidParam(field, "localization locale must not be empty")
		}
		if s == "" {
			return errors.NewInvalidParam(field, fmt.Sprintf("localization %q must not be empty", locale))
		}
	}
	return nil
}

// LinkSharePayload validates a shareLink payload.
func LinkSharePayload(p host.LinkSharePayload) error {
	if strings.TrimSpace(p.Image) == "" {
		return errors.NewInvalidParam("image", "is required")
	}
	if strings.TrimSpace(p.Text.Default) == "" {
		return errors.NewInvalidParam("text", "is required")
	}
	if err := localizations("text", p.Text); err != nil {
		return err
	}
	return Data("data", p.Data)
}

// ContextID validates a switch target.
func ContextID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewInvalidParam("contextId", "is required")
	}
	return nil
}

// PlayerIDs validates create arguments and returns the ID to forward.
// Some hosts accept a single ID only, so the first element wins.
func PlayerIDs(ids []string) (string, error) {
	if len(ids) == 0 || strings.TrimSpace(ids[0]) == "" {
		return "", errors.NewInvalidParam("playerId", "is required")
	}
	return ids[0], nil
}

// SizeBounds validates an isSizeBetween query. Either bound may be omitted;
// with neither the host answers for an unbounded range.
func SizeBounds(min, max *int) error {
	if min != nil && *min < 0 {
		return errors.NewInvalidParam("min", "must be >= 0")
	}
	if max != nil && *max < 0 {
		return errors.NewInvalidParam("max", "must be >= 0")
	}
	if min != nil && max != nil && *min > *max {
		return errors.NewInvalidParam("min", "must be <= max")
	}
	return nil
}

// DataKeys validates the keys of a getData call.
func DataKeys(keys []string) error {
	if len(keys) == 0 {
		return errors.NewInvalidParam("keys", "at least one key is required")
	}
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			return errors.NewInvalidParam("keys", fmt.Sprintf("key %d must not be empty", i))
		}
	}
	return nil
}

// PlayerData validates a setData blob. Any non-serializable value rejects the
// whole modification.
func PlayerData(data map[string]any) error {
	if len(data) == 0 {
		return errors.NewInvalidParam("data", "must not be empty")
	}
	for k := range data {
		if strings.TrimSpace(k) == "" {
			return errors.NewInvalidParam("data", "keys must not be empty")
		}
	}
	if _, err := SerializedLength(data); err != nil {
		return errors.NewInvalidParam("data", "must contain only serializable values")
	}
	return nil
}

// ConnectedPlayers validates the payload and returns it with defaults applied.
func ConnectedPlayers(p *host.ConnectedPlayerPayload) (host.ConnectedPlayerPayload, error) {
	var out host.ConnectedPlayerPayload
	if p != nil {
		out = *p
	}

	if out.Cursor == nil {
		zero := 0
		out.Cursor = &zero
	} else if *out.Cursor < 0 {
		return out, errors.NewInvalidParam("cursor", "must be >= 0")
	}
	if out.Size == nil {
		size := DefaultConnectedPlayersSize
		out.Size = &size
	} else if *out.Size < 1 {
		return out, errors.NewInvalidParam("size", "must be >= 1")
	}
	if out.HoursSinceInvitation != nil && *out.HoursSinceInvitation < 0 {
		return out, errors.NewInvalidParam("hoursSinceInvitation", "must be >= 0")
	}
	if out.Filter != "" && !connectedFilters[out.Filter] {
		return out, errors.NewInvalidParam("filter", fmt.Sprintf("unknown value %q", out.Filter))
	}
	return out, nil
}

// LeaderboardName validates a leaderboard name.
func LeaderboardName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewInvalidParam("name", "is required")
	}
	return nil
}

// EntriesQuery validates an entries fetch and returns the effective count.
// A zero count means the default of 10.
func EntriesQuery(name string, count, offset int) (int, error) {
	if err := LeaderboardName(name); err != nil {
		return 0, err
	}
	if count == 0 {
		count = DefaultEntriesCount
	}
	if count < 0 {
		return 0, errors.NewInvalidParam("count", "must be >= 1")
	}
	if count > MaxEntriesCount {
		return 0, errors.NewInvalidParam("count", fmt.Sprintf("must be <= %d", MaxEntriesCount))
	}
	if offset < 0 {
		return 0, errors.NewInvalidParam("offset", "must be >= 0")
	}
	return count, nil
}

// Entry validates a sendEntry call.
func Entry(name, details string) error {
	if err := LeaderboardName(name); err != nil {
		return err
	}
	if len(details) > MaxDetailsBytes {
		e := errors.NewInvalidParam("details", fmt.Sprintf("size %d exceeds %d bytes", len(details), MaxDetailsBytes))
		e.Details["max_bytes"] = MaxDetailsBytes
		e.Details["actual_bytes"] = len(details)
		return e
	}
	return nil
}

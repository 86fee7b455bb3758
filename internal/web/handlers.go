package web

import (
	"net/http"

	"github.com/hpungsan/wortal/internal/facade"
	"github.com/hpungsan/wortal/internal/host"
)

// Handlers contains HTTP route handlers for the façade bridge.
type Handlers struct {
	facade *facade.Facade
}

type createBody struct {
	PlayerIDs []string `json:"player_ids"`
}

type switchBody struct {
	ContextID string `json:"context_id"`
}

type setDataBody struct {
	Data map[string]any `json:"data"`
}

type entryBody struct {
	Score   int64  `json:"score"`
	Details string `json:"details,omitempty"`
}

func (h *Handlers) contextInfo() map[string]any {
	c := h.facade.Context()
	return map[string]any{"id": c.ID(), "type": c.Type()}
}

// HandleContext handles GET /context: the active context.
func (h *Handlers) HandleContext(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, h.contextInfo())
}

// HandleContextPlayers handles GET /context/players.
func (h *Handlers) HandleContextPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.facade.Context().Players(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"players": players})
}

// HandleContextChoose handles POST /context/choose. The body is an optional payload.
func (h *Handlers) HandleContextChoose(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody[*host.ContextPayload](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := h.facade.Context().Choose(r.Context(), payload); err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, h.contextInfo())
}

// HandleContextCreate handles POST /context/create.
func (h *Handlers) HandleContextCreate(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[createBody](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := h.facade.Context().Create(r.Context(), body.PlayerIDs...); err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, h.contextInfo())
}

// HandleContextSwitch handles POST /context/switch.
func (h *Handlers) HandleContextSwitch(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[switchBody](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := h.facade.Context().Switch(r.Context(), body.ContextID); err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, h.contextInfo())
}

// HandleContextInvite handles POST /context/invite.
func (h *Handlers) HandleContextInvite(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody[host.ContextPayload](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	n, err := h.facade.Context().Invite(r.Context(), payload)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"count": n})
}

// HandleContextShare handles POST /context/share.
func (h *Handlers) HandleContextShare(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody[host.ContextPayload](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	n, err := h.facade.Context().Share(r.Context(), payload)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"count": n})
}

// HandleContextShareLink handles POST /context/share-link.
func (h *Handlers) HandleContextShareLink(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody[host.LinkSharePayload](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := h.facade.Context().ShareLink(r.Context(), payload); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleContextUpdate handles POST /context/update.
func (h *Handlers) HandleContextUpdate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody[host.ContextPayload](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := h.facade.Context().Update(r.Context(), payload); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleContextSize handles GET /context/size?min=&max=.
func (h *Handlers) HandleContextSize(w http.ResponseWriter, r *http.Request) {
	min, err := queryInt(r, "min")
	if err != nil {
		renderError(w, err)
		return
	}
	max, err := queryInt(r, "max")
	if err != nil {
		renderError(w, err)
		return
	}
	resp, err := h.facade.Context().IsSizeBetween(r.Context(), min, max)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, resp)
}

// HandlePlayer handles GET /player: the current player snapshot.
func (h *Handlers) HandlePlayer(w http.ResponseWriter, _ *http.Request) {
	p := h.facade.Player()
	renderJSON(w, http.StatusOK, map[string]any{
		"id":            p.ID(),
		"name":          p.Name(),
		"photo":         p.Photo(),
		"is_first_play": p.IsFirstPlay(),
	})
}

// HandlePlayerGetData handles GET /player/data?keys=a,b.
func (h *Handlers) HandlePlayerGetData(w http.ResponseWriter, r *http.Request) {
	data, err := h.facade.Player().Data(r.Context(), queryList(r, "keys"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"data": data})
}

// HandlePlayerSetData handles PUT /player/data.
func (h *Handlers) HandlePlayerSetData(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[setDataBody](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	if err := h.facade.Player().SetData(r.Context(), body.Data); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePlayerFlushData handles POST /player/data/flush.
func (h *Handlers) HandlePlayerFlushData(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.Player().FlushData(r.Context()); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePlayerConnected handles GET /player/connected.
func (h *Handlers) HandlePlayerConnected(w http.ResponseWriter, r *http.Request) {
	var payload host.ConnectedPlayerPayload
	var err error
	if payload.Cursor, err = queryInt(r, "cursor"); err != nil {
		renderError(w, err)
		return
	}
	if payload.Size, err = queryInt(r, "size"); err != nil {
		renderError(w, err)
		return
	}
	if payload.HoursSinceInvitation, err = queryInt(r, "hours_since_invitation"); err != nil {
		renderError(w, err)
		return
	}
	payload.Filter = host.ConnectedPlayerFilter(r.URL.Query().Get("filter"))

	players, err := h.facade.Player().ConnectedPlayers(r.Context(), &payload)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"players": players})
}

// HandlePlayerSignedInfo handles GET /player/signed-info.
func (h *Handlers) HandlePlayerSignedInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.facade.Player().SignedPlayerInfo(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, info)
}

// HandlePlayerASID handles GET /player/asid.
func (h *Handlers) HandlePlayerASID(w http.ResponseWriter, r *http.Request) {
	asid, err := h.facade.Player().ASID(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"asid": asid})
}

// HandlePlayerSignedASID handles GET /player/signed-asid.
func (h *Handlers) HandlePlayerSignedASID(w http.ResponseWriter, r *http.Request) {
	signed, err := h.facade.Player().SignedASID(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, signed)
}

// HandlePlayerCanSubscribeBot handles GET /player/bot.
func (h *Handlers) HandlePlayerCanSubscribeBot(w http.ResponseWriter, r *http.Request) {
	ok, err := h.facade.Player().CanSubscribeBot(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"can_subscribe": ok})
}

// HandlePlayerSubscribeBot handles POST /player/bot.
func (h *Handlers) HandlePlayerSubscribeBot(w http.ResponseWriter, r *http.Request) {
	if err := h.facade.Player().SubscribeBot(r.Context()); err != nil {
		renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLeaderboard handles GET /leaderboards/{name}.
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.facade.Leaderboard().Get(r.Context(), r.PathValue("name"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, lb)
}

// HandleSendEntry handles POST /leaderboards/{name}/entries.
func (h *Handlers) HandleSendEntry(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[entryBody](w, r)
	if err != nil {
		renderError(w, err)
		return
	}
	entry, err := h.facade.Leaderboard().SendEntry(r.Context(), r.PathValue("name"), body.Score, body.Details)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, entry)
}

// HandleEntries handles GET /leaderboards/{name}/entries?count=&offset=.
func (h *Handlers) HandleEntries(w http.ResponseWriter, r *http.Request) {
	count, offset, err := paging(r)
	if err != nil {
		renderError(w, err)
		return
	}
	entries, err := h.facade.Leaderboard().Entries(r.Context(), r.PathValue("name"), count, offset)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HandlePlayerEntry handles GET /leaderboards/{name}/entries/me.
func (h *Handlers) HandlePlayerEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.facade.Leaderboard().PlayerEntry(r.Context(), r.PathValue("name"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// HandleEntryCount handles GET /leaderboards/{name}/count.
func (h *Handlers) HandleEntryCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.facade.Leaderboard().EntryCount(r.Context(), r.PathValue("name"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"count": n})
}

// HandleConnectedEntries handles GET /leaderboards/{name}/connected.
func (h *Handlers) HandleConnectedEntries(w http.ResponseWriter, r *http.Request) {
	count, offset, err := paging(r)
	if err != nil {
		renderError(w, err)
		return
	}
	entries, err := h.facade.Leaderboard().ConnectedPlayersEntries(r.Context(), r.PathValue("name"), count, offset)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func paging(r *http.Request) (count, offset int, err error) {
	if count, err = queryIntDefault(r, "count", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = queryIntDefault(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return count, offset, nil
}

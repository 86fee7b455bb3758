package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/config"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/facade"
	"github.com/hpungsan/wortal/internal/host"
	"github.com/hpungsan/wortal/internal/normalize"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	facade *facade.Facade
	cfg    *config.Config
	log    *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(f *facade.Facade, cfg *config.Config, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{facade: f, cfg: cfg, log: log}
}

// Request types for each tool

// PayloadRequest carries a required context payload.
type PayloadRequest struct {
	Payload host.ContextPayload `json:"payload"`
}

// ChooseRequest carries optional chooser options.
type ChooseRequest struct {
	Payload *host.ContextPayload `json:"payload,omitempty"`
}

// CreateRequest represents the arguments for context_create.
type CreateRequest struct {
	PlayerIDs []string `json:"player_ids"`
}

// SwitchRequest represents the arguments for context_switch.
type SwitchRequest struct {
	ContextID string `json:"context_id"`
}

// LinkShareRequest represents the arguments for context_share_link.
type LinkShareRequest struct {
	Payload host.LinkSharePayload `json:"payload"`
}

// SizeRequest represents the arguments for context_is_size_between.
type SizeRequest struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// DataKeysRequest represents the arguments for player_get_data.
type DataKeysRequest struct {
	Keys []string `json:"keys"`
}

// SetDataRequest represents the arguments for player_set_data.
type SetDataRequest struct {
	Data map[string]any `json:"data"`
}

// ConnectedPlayersRequest represents the arguments for player_connected_players.
type ConnectedPlayersRequest struct {
	Payload *host.ConnectedPlayerPayload `json:"payload,omitempty"`
}

// LeaderboardRequest names a leaderboard.
type LeaderboardRequest struct {
	Name string `json:"name"`
}

// SendEntryRequest represents the arguments for leaderboard_send_entry.
type SendEntryRequest struct {
	Name    string   `json:"name"`
	Score   exactInt `json:"score"`
	Details string   `json:"details,omitempty"`
}

// EntriesRequest represents the arguments for the paged leaderboard tools.
type EntriesRequest struct {
	Name   string `json:"name"`
	Count  int    `json:"count,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ContextInfo is the output of context_info.
type ContextInfo struct {
	ID   string           `json:"id"`
	Type host.ContextType `json:"type"`
}

// PlayerInfo is the output of player_info.
type PlayerInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Photo       string `json:"photo"`
	IsFirstPlay bool   `json:"is_first_play"`
}

// Context handlers

// HandleContextInfo handles the context_info tool.
func (h *Handlers) HandleContextInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := h.facade.Context()
	return successResult(ContextInfo{ID: c.ID(), Type: c.Type()})
}

// HandleContextPlayers handles the context_players tool.
func (h *Handlers) HandleContextPlayers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	players, err := h.facade.Context().Players(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"players": players})
}

// HandleContextChoose handles the context_choose tool.
func (h *Handlers) HandleContextChoose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ChooseRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.facade.Context().Choose(ctx, req.Payload); err != nil {
		return errorResult(err), nil
	}
	return h.contextChanged()
}

// HandleContextCreate handles the context_create tool.
func (h *Handlers) HandleContextCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[CreateRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.facade.Context().Create(ctx, req.PlayerIDs...); err != nil {
		return errorResult(err), nil
	}
	return h.contextChanged()
}

// HandleContextSwitch handles the context_switch tool.
func (h *Handlers) HandleContextSwitch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SwitchRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.facade.Context().Switch(ctx, req.ContextID); err != nil {
		return errorResult(err), nil
	}
	return h.contextChanged()
}

func (h *Handlers) contextChanged() (*mcp.CallToolResult, error) {
	c := h.facade.Context()
	return successResult(ContextInfo{ID: c.ID(), Type: c.Type()})
}

// HandleContextInvite handles the context_invite tool.
func (h *Handlers) HandleContextInvite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[PayloadRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	n, err := h.facade.Context().Invite(ctx, req.Payload)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"count": n})
}

// HandleContextShare handles the context_share tool.
func (h *Handlers) HandleContextShare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[PayloadRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	n, err := h.facade.Context().Share(ctx, req.Payload)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"count": n})
}

// HandleContextShareLink handles the context_share_link tool.
func (h *Handlers) HandleContextShareLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[LinkShareRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.facade.Context().ShareLink(ctx, req.Payload); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"shared": true})
}

// HandleContextUpdate handles the context_update tool.
func (h *Handlers) HandleContextUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[PayloadRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.facade.Context().Update(ctx, req.Payload); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"updated": true})
}

// HandleContextIsSizeBetween handles the context_is_size_between tool.
func (h *Handlers) HandleContextIsSizeBetween(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SizeRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	resp, err := h.facade.Context().IsSizeBetween(ctx, req.Min, req.Max)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(resp)
}

// Player handlers

// HandlePlayerInfo handles the player_info tool.
func (h *Handlers) HandlePlayerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := h.facade.Player()
	return successResult(PlayerInfo{
		ID:          p.ID(),
		Name:        p.Name(),
		Photo:       p.Photo(),
		IsFirstPlay: p.IsFirstPlay(),
	})
}

// HandlePlayerGetData handles the player_get_data tool.
func (h *Handlers) HandlePlayerGetData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[DataKeysRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	data, err := h.facade.Player().Data(ctx, req.Keys)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"data": data})
}

// HandlePlayerSetData handles the player_set_data tool.
func (h *Handlers) HandlePlayerSetData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SetDataRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	if err := h.facade.Player().SetData(ctx, req.Data); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"staged": len(req.Data)})
}

// HandlePlayerFlushData handles the player_flush_data tool.
func (h *Handlers) HandlePlayerFlushData(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.facade.Player().FlushData(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"flushed": true})
}

// HandlePlayerConnected handles the player_connected_players tool.
func (h *Handlers) HandlePlayerConnected(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ConnectedPlayersRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	players, err := h.facade.Player().ConnectedPlayers(ctx, req.Payload)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"players": players})
}

// HandlePlayerSignedInfo handles the player_signed_info tool.
func (h *Handlers) HandlePlayerSignedInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := h.facade.Player().SignedPlayerInfo(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(info)
}

// HandlePlayerASID handles the player_asid tool.
func (h *Handlers) HandlePlayerASID(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	asid, err := h.facade.Player().ASID(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"asid": asid})
}

// HandlePlayerSignedASID handles the player_signed_asid tool.
func (h *Handlers) HandlePlayerSignedASID(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signed, err := h.facade.Player().SignedASID(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(signed)
}

// HandlePlayerCanSubscribeBot handles the player_can_subscribe_bot tool.
func (h *Handlers) HandlePlayerCanSubscribeBot(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ok, err := h.facade.Player().CanSubscribeBot(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"can_subscribe": ok})
}

// HandlePlayerSubscribeBot handles the player_subscribe_bot tool.
func (h *Handlers) HandlePlayerSubscribeBot(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.facade.Player().SubscribeBot(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"subscribed": true})
}

// Leaderboard handlers

// HandleLeaderboardGet handles the leaderboard_get tool.
func (h *Handlers) HandleLeaderboardGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[LeaderboardRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	lb, err := h.facade.Leaderboard().Get(ctx, req.Name)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(lb)
}

// HandleLeaderboardSendEntry handles the leaderboard_send_entry tool.
func (h *Handlers) HandleLeaderboardSendEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SendEntryRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	entry, err := h.facade.Leaderboard().SendEntry(ctx, req.Name, int64(req.Score), req.Details)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(entry)
}

// HandleLeaderboardEntries handles the leaderboard_entries tool.
func (h *Handlers) HandleLeaderboardEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[EntriesRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	entries, err := h.facade.Leaderboard().Entries(ctx, req.Name, req.Count, req.Offset)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"entries": entries})
}

// HandleLeaderboardPlayerEntry handles the leaderboard_player_entry tool.
func (h *Handlers) HandleLeaderboardPlayerEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[LeaderboardRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	entry, err := h.facade.Leaderboard().PlayerEntry(ctx, req.Name)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"entry": entry})
}

// HandleLeaderboardEntryCount handles the leaderboard_entry_count tool.
func (h *Handlers) HandleLeaderboardEntryCount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[LeaderboardRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	n, err := h.facade.Leaderboard().EntryCount(ctx, req.Name)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"count": n})
}

// HandleLeaderboardConnected handles the leaderboard_connected_entries tool.
func (h *Handlers) HandleLeaderboardConnected(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[EntriesRequest](request)
	if err != nil {
		return errorResult(err), nil
	}
	entries, err := h.facade.Leaderboard().ConnectedPlayersEntries(ctx, req.Name, req.Count, req.Offset)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"entries": entries})
}

// errorResult creates an MCP error result from an error.
// Every failure is reported in the façade's taxonomy; anything that did not
// come through the façade is normalized first.
func errorResult(err error) *mcp.CallToolResult {
	wErr, ok := normalize.Error(err).(*errors.WortalError)
	if !ok {
		wErr = errors.NewRethrow(err.Error())
	}

	errorObj := map[string]any{
		"code":    wErr.Code,
		"message": wErr.Message,
		"status":  wErr.Status,
	}
	if wErr.Details != nil {
		errorObj["details"] = wErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(content))},
		IsError: true,
	}
}

// successResult creates an MCP success result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

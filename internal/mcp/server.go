package mcp

import (
	"context"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/config"
	"github.com/hpungsan/wortal/internal/facade"
)

// Tool groups, usable in disabled_types.
const (
	typeContext     = "context"
	typePlayer      = "player"
	typeLeaderboard = "leaderboard"
)

// KnownTypes lists the tool groups in registration order.
var KnownTypes = []string{typeContext, typePlayer, typeLeaderboard}

type handlerMethod func(*Handlers, context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

type toolEntry struct {
	group  string
	def    mcp.Tool
	method handlerMethod
}

func (e toolEntry) bind(h *Handlers) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return e.method(h, ctx, req)
	}
}

var toolList = []toolEntry{
	{typeContext, contextInfoToolDef, (*Handlers).HandleContextInfo},
	{typeContext, contextPlayersToolDef, (*Handlers).HandleContextPlayers},
	{typeContext, contextChooseToolDef, (*Handlers).HandleContextChoose},
	{typeContext, contextCreateToolDef, (*Handlers).HandleContextCreate},
	{typeContext, contextSwitchToolDef, (*Handlers).HandleContextSwitch},
	{typeContext, contextInviteToolDef, (*Handlers).HandleContextInvite},
	{typeContext, contextShareToolDef, (*Handlers).HandleContextShare},
	{typeContext, contextShareLinkToolDef, (*Handlers).HandleContextShareLink},
	{typeContext, contextUpdateToolDef, (*Handlers).HandleContextUpdate},
	{typeContext, contextSizeToolDef, (*Handlers).HandleContextIsSizeBetween},

	{typePlayer, playerInfoToolDef, (*Handlers).HandlePlayerInfo},
	{typePlayer, playerGetDataToolDef, (*Handlers).HandlePlayerGetData},
	{typePlayer, playerSetDataToolDef, (*Handlers).HandlePlayerSetData},
	{typePlayer, playerFlushDataToolDef, (*Handlers).HandlePlayerFlushData},
	{typePlayer, playerConnectedToolDef, (*Handlers).HandlePlayerConnected},
	{typePlayer, playerSignedInfoToolDef, (*Handlers).HandlePlayerSignedInfo},
	{typePlayer, playerASIDToolDef, (*Handlers).HandlePlayerASID},
	{typePlayer, playerSignedASIDToolDef, (*Handlers).HandlePlayerSignedASID},
	{typePlayer, playerCanSubscribeBotToolDef, (*Handlers).HandlePlayerCanSubscribeBot},
	{typePlayer, playerSubscribeBotToolDef, (*Handlers).HandlePlayerSubscribeBot},

	{typeLeaderboard, leaderboardGetToolDef, (*Handlers).HandleLeaderboardGet},
	{typeLeaderboard, leaderboardSendEntryToolDef, (*Handlers).HandleLeaderboardSendEntry},
	{typeLeaderboard, leaderboardEntriesToolDef, (*Handlers).HandleLeaderboardEntries},
	{typeLeaderboard, leaderboardPlayerEntryToolDef, (*Handlers).HandleLeaderboardPlayerEntry},
	{typeLeaderboard, leaderboardEntryCountToolDef, (*Handlers).HandleLeaderboardEntryCount},
	{typeLeaderboard, leaderboardConnectedToolDef, (*Handlers).HandleLeaderboardConnected},
}

// toolRegistry indexes toolList by tool name.
var toolRegistry = func() map[string]toolEntry {
	m := make(map[string]toolEntry, len(toolList))
	for _, e := range toolList {
		m[e.def.Name] = e
	}
	return m
}()

// AllToolNames returns every tool name in registration order.
func AllToolNames() []string {
	names := make([]string, len(toolList))
	for i, e := range toolList {
		names[i] = e.def.Name
	}
	return names
}

// ValidateDisabledTools returns the entries of names that are not tools.
func ValidateDisabledTools(names []string) []string {
	var unknown []string
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the entries of names that are not tool groups.
func ValidateDisabledTypes(names []string) []string {
	var unknown []string
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool returns the group a tool belongs to, or "" for unknown tools.
func GetTypeForTool(toolName string) string {
	return toolRegistry[toolName].group
}

// ExpandTypesToTools returns the names of all tools in the given groups.
func ExpandTypesToTools(types []string) []string {
	var tools []string
	for _, e := range toolList {
		if slices.Contains(types, e.group) {
			tools = append(tools, e.def.Name)
		}
	}
	return tools
}

// NewServer builds an MCP server with one tool per façade operation, minus
// cfg.DisabledTools and every tool in cfg.DisabledTypes.
func NewServer(f *facade.Facade, cfg *config.Config, log *zap.Logger, version string) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := server.NewMCPServer(
		"wortal",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	h := NewHandlers(f, cfg, log)
	off := append(ExpandTypesToTools(cfg.DisabledTypes), cfg.DisabledTools...)

	registered := 0
	for _, e := range toolList {
		if slices.Contains(off, e.def.Name) {
			log.Debug("tool disabled", zap.String("tool", e.def.Name))
			continue
		}
		s.AddTool(e.def, e.bind(h))
		registered++
	}
	log.Debug("mcp tools registered", zap.Int("count", registered))

	return s
}

// Run serves the façade over stdio until stdin closes.
func Run(f *facade.Facade, cfg *config.Config, log *zap.Logger, version string) error {
	return server.ServeStdio(NewServer(f, cfg, log, version))
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/wortal/internal/facade"
)

// Tools outside the façade's asynchronous operations.
const (
	toolContextInfo = "context_info"
	toolPlayerInfo  = "player_info"
)

const (
	payloadDesc = "Context payload: {image, text, caption?, cta?, description?, data?, filters?, " +
		"minSize?, maxSize?, hoursSinceInvitation?, intent?, ui?, minShare?, strategy?, notifications?}. " +
		"text is a string or {default, localizations}."
	nameDesc = "Leaderboard name"
)

func leaderboardName() mcp.ToolOption {
	return mcp.WithString("name", mcp.Required(), mcp.Description(nameDesc))
}

func paging() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("count", mcp.Description("Entries to return, 1-100 (default 10)"), mcp.Min(0), mcp.Max(100)),
		mcp.WithNumber("offset", mcp.Description("Entries to skip (default 0)"), mcp.Min(0)),
	}
}

// Context tools

var contextInfoToolDef = mcp.NewTool(toolContextInfo,
	mcp.WithDescription("Return the active context ID and type. The ID is empty in a solo session."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var contextPlayersToolDef = mcp.NewTool(facade.OpContextPlayers,
	mcp.WithDescription("List the players in the active context."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var contextChooseToolDef = mcp.NewTool(facade.OpContextChoose,
	mcp.WithDescription("Open the context chooser. Fails with PENDING_REQUEST while another context switch is in flight."),
	mcp.WithObject("payload", mcp.Description("Optional chooser options: filters, minSize, maxSize, hoursSinceInvitation")),
)

var contextCreateToolDef = mcp.NewTool(facade.OpContextCreate,
	mcp.WithDescription("Create or enter the context with a player. Only the first ID is used."),
	mcp.WithArray("player_ids", mcp.Required(), mcp.Description("Player IDs"), mcp.Items(map[string]any{"type": "string"})),
)

var contextSwitchToolDef = mcp.NewTool(facade.OpContextSwitch,
	mcp.WithDescription("Switch into a context. Fails with SAME_CONTEXT when it is already active."),
	mcp.WithString("context_id", mcp.Required(), mcp.Description("Target context ID")),
)

var contextInviteToolDef = mcp.NewTool(facade.OpContextInvite,
	mcp.WithDescription("Open the invite dialog. Returns the number of invitations sent."),
	mcp.WithObject("payload", mcp.Required(), mcp.Description(payloadDesc)),
)

var contextShareToolDef = mcp.NewTool(facade.OpContextShare,
	mcp.WithDescription("Open the share dialog. Returns the number of shares."),
	mcp.WithObject("payload", mcp.Required(), mcp.Description(payloadDesc)),
)

var contextShareLinkToolDef = mcp.NewTool(facade.OpContextShareLink,
	mcp.WithDescription("Share a link to the game."),
	mcp.WithObject("payload", mcp.Required(), mcp.Description("Link payload: {image, text, data?}")),
)

var contextUpdateToolDef = mcp.NewTool(facade.OpContextUpdate,
	mcp.WithDescription("Post an update message to the active context."),
	mcp.WithObject("payload", mcp.Required(), mcp.Description(payloadDesc)),
)

var contextSizeToolDef = mcp.NewTool(facade.OpContextSizeBetween,
	mcp.WithDescription("Check whether the active context size lies within bounds. "+
		"The first answer in a context is returned for every later call in that context."),
	mcp.WithNumber("min", mcp.Description("Minimum size"), mcp.Min(0)),
	mcp.WithNumber("max", mcp.Description("Maximum size"), mcp.Min(0)),
	mcp.WithReadOnlyHintAnnotation(true),
)

// Player tools

var playerInfoToolDef = mcp.NewTool(toolPlayerInfo,
	mcp.WithDescription("Return the current player's ID, name, photo and first-play flag."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var playerGetDataToolDef = mcp.NewTool(facade.OpPlayerData,
	mcp.WithDescription("Read stored player data for the given keys."),
	mcp.WithArray("keys", mcp.Required(), mcp.Description("Data keys"), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithReadOnlyHintAnnotation(true),
)

var playerSetDataToolDef = mcp.NewTool(facade.OpPlayerSetData,
	mcp.WithDescription("Stage player data changes. Shares a pending slot with player_flush_data."),
	mcp.WithObject("data", mcp.Required(), mcp.Description("Key/value pairs to store")),
)

var playerFlushDataToolDef = mcp.NewTool(facade.OpPlayerFlushData,
	mcp.WithDescription("Persist staged player data."),
)

var playerConnectedToolDef = mcp.NewTool(facade.OpPlayerConnected,
	mcp.WithDescription("List players connected to the current player."),
	mcp.WithObject("payload", mcp.Description("Optional {cursor, size, filter, hoursSinceInvitation}")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var playerSignedInfoToolDef = mcp.NewTool(facade.OpPlayerSignedInfo,
	mcp.WithDescription("Return the host-signed player identity."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var playerASIDToolDef = mcp.NewTool(facade.OpPlayerASID,
	mcp.WithDescription("Return the app-scoped player ID."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var playerSignedASIDToolDef = mcp.NewTool(facade.OpPlayerSignedASID,
	mcp.WithDescription("Return the app-scoped player ID with its signature."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var playerCanSubscribeBotToolDef = mcp.NewTool(facade.OpPlayerCanSubscribeBot,
	mcp.WithDescription("Check whether the player may subscribe to the game bot."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var playerSubscribeBotToolDef = mcp.NewTool(facade.OpPlayerSubscribeBot,
	mcp.WithDescription("Ask the player to subscribe to the game bot."),
)

// Leaderboard tools

var leaderboardGetToolDef = mcp.NewTool(facade.OpLeaderboardGet,
	mcp.WithDescription("Look up a leaderboard."),
	leaderboardName(),
	mcp.WithReadOnlyHintAnnotation(true),
)

var leaderboardSendEntryToolDef = mcp.NewTool(facade.OpLeaderboardSendEntry,
	mcp.WithDescription("Submit a score. A stored entry is replaced only by a better score."),
	leaderboardName(),
	mcp.WithNumber("score", mcp.Required(), mcp.Description("Score as an integer. Send scores beyond 2^53 as a decimal string.")),
	mcp.WithString("details", mcp.Description("Extra details, at most 2048 bytes")),
)

var leaderboardEntriesToolDef = mcp.NewTool(facade.OpLeaderboardEntries,
	append([]mcp.ToolOption{
		mcp.WithDescription("List ranked entries."),
		leaderboardName(),
		mcp.WithReadOnlyHintAnnotation(true),
	}, paging()...)...,
)

var leaderboardPlayerEntryToolDef = mcp.NewTool(facade.OpLeaderboardPlayerEntry,
	mcp.WithDescription("Return the current player's entry, or null."),
	leaderboardName(),
	mcp.WithReadOnlyHintAnnotation(true),
)

var leaderboardEntryCountToolDef = mcp.NewTool(facade.OpLeaderboardEntryCount,
	mcp.WithDescription("Count entries on a leaderboard."),
	leaderboardName(),
	mcp.WithReadOnlyHintAnnotation(true),
)

var leaderboardConnectedToolDef = mcp.NewTool(facade.OpLeaderboardConnected,
	append([]mcp.ToolOption{
		mcp.WithDescription("List entries of connected players, ranked among themselves."),
		leaderboardName(),
		mcp.WithReadOnlyHintAnnotation(true),
	}, paging()...)...,
)

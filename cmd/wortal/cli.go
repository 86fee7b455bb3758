package main

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/wortal/internal/adbreak"
	"github.com/hpungsan/wortal/internal/errors"
	"github.com/hpungsan/wortal/internal/host"
	"github.com/hpungsan/wortal/internal/normalize"
	"github.com/hpungsan/wortal/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// e may be nil when only help or version output is needed.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "wortal",
		Usage:   "Typed game platform client with an offline sandbox host",
		Version: Version,
		Commands: []*cli.Command{
			contextCmd(e),
			playerCmd(e),
			leaderboardCmd(e),
			sandboxCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

var payloadFlag = &cli.StringFlag{
	Name:    "payload",
	Aliases: []string{"p"},
	Usage:   "JSON payload (read from stdin when omitted and piped)",
}

// contextCmd groups the context operations.
func contextCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "context",
		Usage: "Inspect and change the active context",
		Subcommands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show the active context",
				Action: func(c *cli.Context) error {
					return outputJSON(contextInfo(e))
				},
			},
			{
				Name:  "players",
				Usage: "List players in the active context",
				Action: func(c *cli.Context) error {
					players, err := e.facade.Context().Players(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(players)
				},
			},
			{
				Name:  "choose",
				Usage: "Pick a context with the chooser",
				Flags: []cli.Flag{payloadFlag},
				Action: func(c *cli.Context) error {
					var payload *host.ContextPayload
					if err := readPayload(c, &payload, false); err != nil {
						return outputError(err)
					}
					if err := e.facade.Context().Choose(c.Context, payload); err != nil {
						return outputError(err)
					}
					return outputJSON(contextInfo(e))
				},
			},
			{
				Name:      "create",
				Usage:     "Create or enter the context with a player",
				ArgsUsage: "<player-id> [player-id...]",
				Action: func(c *cli.Context) error {
					if err := e.facade.Context().Create(c.Context, c.Args().Slice()...); err != nil {
						return outputError(err)
					}
					return outputJSON(contextInfo(e))
				},
			},
			{
				Name:      "switch",
				Usage:     "Switch into a context",
				ArgsUsage: "<context-id>",
				Action: func(c *cli.Context) error {
					if err := e.facade.Context().Switch(c.Context, c.Args().First()); err != nil {
						return outputError(err)
					}
					return outputJSON(contextInfo(e))
				},
			},
			{
				Name:  "invite",
				Usage: "Send invitations",
				Flags: []cli.Flag{payloadFlag},
				Action: func(c *cli.Context) error {
					var payload host.ContextPayload
					if err := readPayload(c, &payload, true); err != nil {
						return outputError(err)
					}
					n, err := e.facade.Context().Invite(c.Context, payload)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"count": n})
				},
			},
			{
				Name:  "share",
				Usage: "Share with connected players",
				Flags: []cli.Flag{payloadFlag},
				Action: func(c *cli.Context) error {
					var payload host.ContextPayload
					if err := readPayload(c, &payload, true); err != nil {
						return outputError(err)
					}
					n, err := e.facade.Context().Share(c.Context, payload)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"count": n})
				},
			},
			{
				Name:  "share-link",
				Usage: "Share a game link",
				Flags: []cli.Flag{payloadFlag},
				Action: func(c *cli.Context) error {
					var payload host.LinkSharePayload
					if err := readPayload(c, &payload, true); err != nil {
						return outputError(err)
					}
					if err := e.facade.Context().ShareLink(c.Context, payload); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"shared": true})
				},
			},
			{
				Name:  "update",
				Usage: "Post an update to the active context",
				Flags: []cli.Flag{payloadFlag},
				Action: func(c *cli.Context) error {
					var payload host.ContextPayload
					if err := readPayload(c, &payload, true); err != nil {
						return outputError(err)
					}
					if err := e.facade.Context().Update(c.Context, payload); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"updated": true})
				},
			},
			{
				Name:  "size",
				Usage: "Check whether the context size lies within bounds",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "min", Usage: "Minimum size"},
					&cli.IntFlag{Name: "max", Usage: "Maximum size"},
				},
				Action: func(c *cli.Context) error {
					resp, err := e.facade.Context().IsSizeBetween(c.Context, intFlag(c, "min"), intFlag(c, "max"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(resp)
				},
			},
		},
	}
}

// playerCmd groups the player operations.
func playerCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "player",
		Usage: "Current player, data and bot subscription",
		Subcommands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show the current player",
				Action: func(c *cli.Context) error {
					p := e.facade.Player()
					return outputJSON(map[string]any{
						"id":            p.ID(),
						"name":          p.Name(),
						"photo":         p.Photo(),
						"is_first_play": p.IsFirstPlay(),
					})
				},
			},
			{
				Name:      "data",
				Usage:     "Read stored data",
				ArgsUsage: "<key> [key...]",
				Action: func(c *cli.Context) error {
					data, err := e.facade.Player().Data(c.Context, c.Args().Slice())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(data)
				},
			},
			{
				Name:  "set-data",
				Usage: "Stage data and flush it (JSON object via --payload or stdin)",
				Flags: []cli.Flag{payloadFlag},
				Action: func(c *cli.Context) error {
					var data map[string]any
					if err := readPayload(c, &data, true); err != nil {
						return outputError(err)
					}
					// Staged data lives in this process only, so persist it now.
					if err := e.facade.Player().SetData(c.Context, data); err != nil {
						return outputError(err)
					}
					if err := e.facade.Player().FlushData(c.Context); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"stored": len(data)})
				},
			},
			{
				Name:  "connected",
				Usage: "List connected players",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "cursor", Usage: "Offset into the list"},
					&cli.IntFlag{Name: "size", Usage: "Page size (default 25)"},
					&cli.StringFlag{Name: "filter", Usage: "ALL|INCLUDE_PLAYERS|INCLUDE_NON_PLAYERS|NEW_INVITATIONS_ONLY"},
					&cli.IntFlag{Name: "hours", Usage: "Hours since invitation for NEW_INVITATIONS_ONLY"},
				},
				Action: func(c *cli.Context) error {
					payload := &host.ConnectedPlayerPayload{
						Cursor:               intFlag(c, "cursor"),
						Size:                 intFlag(c, "size"),
						HoursSinceInvitation: intFlag(c, "hours"),
						Filter:               host.ConnectedPlayerFilter(c.String("filter")),
					}
					players, err := e.facade.Player().ConnectedPlayers(c.Context, payload)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(players)
				},
			},
			{
				Name:  "signed-info",
				Usage: "Show the signed player identity",
				Action: func(c *cli.Context) error {
					info, err := e.facade.Player().SignedPlayerInfo(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(info)
				},
			},
			{
				Name:  "asid",
				Usage: "Show the app-scoped player ID",
				Action: func(c *cli.Context) error {
					asid, err := e.facade.Player().ASID(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"asid": asid})
				},
			},
			{
				Name:  "signed-asid",
				Usage: "Show the signed app-scoped player ID",
				Action: func(c *cli.Context) error {
					signed, err := e.facade.Player().SignedASID(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(signed)
				},
			},
			{
				Name:  "can-subscribe-bot",
				Usage: "Check whether the bot subscription prompt can be shown",
				Action: func(c *cli.Context) error {
					ok, err := e.facade.Player().CanSubscribeBot(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"can_subscribe": ok})
				},
			},
			{
				Name:  "subscribe-bot",
				Usage: "Subscribe to the game bot",
				Action: func(c *cli.Context) error {
					if err := e.facade.Player().SubscribeBot(c.Context); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"subscribed": true})
				},
			},
		},
	}
}

// leaderboardCmd groups the leaderboard operations.
func leaderboardCmd(e *env) *cli.Command {
	paging := []cli.Flag{
		&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Entries to return (default 10, max 100)"},
		&cli.IntFlag{Name: "offset", Usage: "Entries to skip"},
	}
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "Scores and rankings",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Look up a leaderboard",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					lb, err := e.facade.Leaderboard().Get(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(lb)
				},
			},
			{
				Name:      "send",
				Usage:     "Submit a score",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "score", Aliases: []string{"s"}, Required: true, Usage: "Score"},
					&cli.StringFlag{Name: "details", Aliases: []string{"d"}, Usage: "Extra details"},
				},
				Action: func(c *cli.Context) error {
					entry, err := e.facade.Leaderboard().SendEntry(c.Context, c.Args().First(), c.Int64("score"), c.String("details"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(entry)
				},
			},
			{
				Name:      "entries",
				Usage:     "List ranked entries",
				ArgsUsage: "<name>",
				Flags:     paging,
				Action: func(c *cli.Context) error {
					entries, err := e.facade.Leaderboard().Entries(c.Context, c.Args().First(), c.Int("count"), c.Int("offset"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(entries)
				},
			},
			{
				Name:      "me",
				Usage:     "Show the current player's entry",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					entry, err := e.facade.Leaderboard().PlayerEntry(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(entry)
				},
			},
			{
				Name:      "count",
				Usage:     "Count entries",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					n, err := e.facade.Leaderboard().EntryCount(c.Context, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"count": n})
				},
			},
			{
				Name:      "connected",
				Usage:     "List connected players' entries",
				ArgsUsage: "<name>",
				Flags:     paging,
				Action: func(c *cli.Context) error {
					entries, err := e.facade.Leaderboard().ConnectedPlayersEntries(c.Context, c.Args().First(), c.Int("count"), c.Int("offset"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(entries)
				},
			},
		},
	}
}

// sandboxCmd groups sandbox administration.
func sandboxCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "sandbox",
		Usage: "Manage the offline sandbox host",
		Subcommands: []*cli.Command{
			{
				Name:      "add-player",
				Usage:     "Register a player",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name (defaults to id)"},
					&cli.StringFlag{Name: "photo", Usage: "Photo URL"},
				},
				Action: func(c *cli.Context) error {
					pl := host.Player{ID: c.Args().First(), Name: c.String("name"), Photo: c.String("photo")}
					if err := e.sandbox.AddPlayer(c.Context, pl); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"added": pl.ID})
				},
			},
			{
				Name:      "connect",
				Usage:     "Connect two players",
				ArgsUsage: "<player-id> <player-id>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidParam("args", "expected two player IDs"))
					}
					a, b := c.Args().Get(0), c.Args().Get(1)
					if err := e.sandbox.Connect(c.Context, a, b); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"connected": []string{a, b}})
				},
			},
			{
				Name:      "create-leaderboard",
				Usage:     "Create a leaderboard",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "context", Aliases: []string{"c"}, Usage: "Bind to a context ID"},
				},
				Action: func(c *cli.Context) error {
					name := c.Args().First()
					if err := e.sandbox.CreateLeaderboard(c.Context, name, c.String("context")); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"created": name})
				},
			},
			{
				Name:      "use-player",
				Usage:     "Start a solo session as another player",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if err := e.sandbox.UsePlayer(c.Context, c.Args().First()); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"player": e.facade.Player().ID()})
				},
			},
			{
				Name:  "messages",
				Usage: "List messages sent to a context",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "context", Aliases: []string{"c"}, Usage: "Context ID (defaults to the active one)"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum messages"},
				},
				Action: func(c *cli.Context) error {
					contextID := c.String("context")
					if contextID == "" {
						contextID = e.facade.Context().ID()
					}
					msgs, err := e.sandbox.Messages(c.Context, contextID, c.Int("limit"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(msgs)
				},
			},
			{
				Name:  "preroll",
				Usage: "Run the preroll ad break",
				Action: func(c *cli.Context) error {
					outcome := <-adbreak.Preroll(c.Context, e.sandbox, adbreak.Callbacks{}, e.log)
					return outputJSON(map[string]any{"outcome": outcome})
				},
			},
		},
	}
}

// serveCmd starts the HTTP bridge.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the façade over HTTP with /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8787, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(e.facade, e.registry, e.log, c.String("bind"), c.Int("port"))
			return web.Run(c.Context, srv, e.log)
		},
	}
}

// Helper functions

func contextInfo(e *env) map[string]any {
	ctx := e.facade.Context()
	return map[string]any{"id": ctx.ID(), "type": ctx.Type()}
}

// intFlag returns a pointer to the flag's value, or nil when it was not set.
func intFlag(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

// readPayload decodes --payload, or piped stdin when the flag is absent, into v.
func readPayload(c *cli.Context, v any, required bool) error {
	raw := c.String("payload")
	if raw == "" && stdinHasData() {
		data, err := readStdin()
		if err != nil {
			return err
		}
		raw = data
	}
	if raw == "" {
		if required {
			return errors.NewInvalidParam("payload", "is required (use --payload or pipe JSON via stdin)")
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewInvalidParam("payload", err.Error())
	}
	return nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var wErr *errors.WortalError
	if stderrors.As(normalize.Error(err), &wErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", wErr.Code, wErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

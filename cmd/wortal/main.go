package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hpungsan/wortal/internal/config"
	"github.com/hpungsan/wortal/internal/db"
	"github.com/hpungsan/wortal/internal/facade"
	"github.com/hpungsan/wortal/internal/logging"
	"github.com/hpungsan/wortal/internal/mcp"
	"github.com/hpungsan/wortal/internal/metrics"
	"github.com/hpungsan/wortal/internal/sandbox"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// runMode is what an invocation asks for.
type runMode int

const (
	modeMCP     runMode = iota // no subcommand: serve MCP over stdio
	modeBanner                 // no subcommand on a terminal
	modeHelp                   // help or version, needs no sandbox
	modeCLI                    // a known subcommand
	modeUnknown                // an unknown word typed on a terminal
)

var subcommands = []string{"context", "player", "leaderboard", "sandbox", "serve"}

var helpFlags = []string{"help", "--help", "-h", "--version", "-v"}

// classify picks the run mode from os.Args-style args. interactive reports
// whether stdin is a terminal.
func classify(args []string, interactive bool) runMode {
	if len(args) < 2 {
		if interactive {
			return modeBanner
		}
		return modeMCP
	}
	switch first := args[1]; {
	case slices.Contains(helpFlags, first):
		return modeHelp
	case slices.Contains(subcommands, first):
		return modeCLI
	case interactive:
		return modeUnknown
	default:
		return modeMCP
	}
}

// stdinIsTerminal reports whether stdin is a character device rather than a pipe.
func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// printBanner greets a user who ran wortal bare on a terminal.
func printBanner() {
	fmt.Println(`
  __      __       _        _
  \ \    / /__ _ _| |_ __ _| |
   \ \/\/ / _ \ '_|  _/ _' | |
    \_/\_/\___/_|  \__\__,_|_|

  Typed game platform client with an offline sandbox host

  Usage: wortal <command> [options]
         wortal --help

  Pipe MCP requests on stdin to run as an MCP server.`)
}

// env is everything a command needs once the sandbox is open.
type env struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *sql.DB
	sandbox  *sandbox.Provider
	facade   *facade.Facade
	registry *prometheus.Registry
}

// setup loads config and opens the sandbox host behind a façade.
func setup(ctx context.Context, baseDir, workDir string) (*env, error) {
	cfg, err := config.LoadWithRepo(baseDir, workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	sb, err := sandbox.Open(ctx, database, sandbox.Options{
		PlayerID:    cfg.SandboxPlayerID,
		PlayerName:  cfg.SandboxPlayerName,
		PlayerPhoto: cfg.SandboxPlayerPhoto,
		Unsupported: cfg.SandboxUnsupported,
		Logger:      log,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open sandbox: %w", err)
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	if err != nil {
		database.Close()
		return nil, err
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown disabled_tools entries", zap.Strings("tools", unknown))
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn("unknown disabled_types entries", zap.Strings("types", unknown))
	}

	return &env{
		cfg:      cfg,
		log:      log,
		db:       database,
		sandbox:  sb,
		facade:   facade.New(sb, facade.WithLogger(log), facade.WithMetrics(rec)),
		registry: reg,
	}, nil
}

func (e *env) close() {
	_ = e.log.Sync()
	e.db.Close()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "wortal: %v\n", err)
	os.Exit(1)
}

func main() {
	mode := classify(os.Args, stdinIsTerminal())
	switch mode {
	case modeBanner:
		printBanner()
		return
	case modeHelp:
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fail(err)
		}
		return
	case modeUnknown:
		fail(fmt.Errorf("unknown command %q (see 'wortal --help')", os.Args[1]))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fail(fmt.Errorf("locate home directory: %w", err))
	}
	workDir, _ := os.Getwd()

	e, err := setup(context.Background(), filepath.Join(home, ".wortal"), workDir)
	if err != nil {
		fail(err)
	}

	if mode == modeCLI {
		err = newCLIApp(e).Run(os.Args)
	} else {
		e.log.Info("starting MCP stdio server", zap.String("version", Version))
		err = mcp.Run(e.facade, e.cfg, e.log, Version)
	}
	e.close()
	if err != nil {
		fail(err)
	}
}

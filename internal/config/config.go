package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the merged wortal configuration.
type Config struct {
	// DBMaxOpenConns caps open sandbox connections. 1 serializes all access;
	// 0 keeps the database/sql default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns caps idle sandbox connections. 0 keeps the default.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools names MCP tools left unregistered. Unknown names are warned about.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes removes whole tool groups: "context", "player", "leaderboard".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "console" or "json".
	LogFormat string `json:"log_format,omitempty"`

	// SandboxPlayerID is the player the sandbox session starts as.
	SandboxPlayerID string `json:"sandbox_player_id,omitempty"`

	// SandboxPlayerName and SandboxPlayerPhoto describe the sandbox player
	// when it is created on first run.
	SandboxPlayerName  string `json:"sandbox_player_name,omitempty"`
	SandboxPlayerPhoto string `json:"sandbox_player_photo,omitempty"`

	// SandboxUnsupported lists operation names (e.g. "context_share_link")
	// the sandbox rejects with NOT_SUPPORTED, to rehearse hosts that lack them.
	SandboxUnsupported []string `json:"sandbox_unsupported,omitempty"`
}

// FileName is the config file inside the global and repo directories.
const FileName = "config.json"

// RepoDirName is the per-repository directory holding an overlay config.
const RepoDirName = ".wortal"

// DefaultConfig is what a fresh install runs with.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "console",
		SandboxPlayerID:   "sandbox-player",
		SandboxPlayerName: "Sandbox Player",
	}
}

// Load reads baseDir/config.json over the defaults. A missing file yields the defaults.
func Load(baseDir string) (*Config, error) {
	cfg, err := readFile(filepath.Join(baseDir, FileName))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo layers defaults, then globalDir/config.json, then the nearest
// .wortal/config.json at or above startDir. Either file may be absent.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	cfg := DefaultConfig()
	for _, path := range []string{filepath.Join(globalDir, FileName), FindRepoConfig(startDir)} {
		layer, err := readFile(path)
		if err != nil {
			return nil, err
		}
		cfg = Merge(cfg, layer)
	}
	return cfg, nil
}

// FindRepoConfig returns the nearest .wortal/config.json at or above startDir, or "".
func FindRepoConfig(startDir string) string {
	for dir := startDir; ; {
		candidate := filepath.Join(dir, RepoDirName, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// readFile decodes one config layer. Missing files decode as the zero Config
// so they contribute nothing to Merge.
func readFile(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge returns base with overlay applied. Non-empty overlay scalars win.
// Lists are unioned in order with blanks and duplicates dropped.
func Merge(base, overlay *Config) *Config {
	return &Config{
		DBMaxOpenConns:     firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:     firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		LogLevel:           firstString(overlay.LogLevel, base.LogLevel),
		LogFormat:          firstString(overlay.LogFormat, base.LogFormat),
		SandboxPlayerID:    firstString(overlay.SandboxPlayerID, base.SandboxPlayerID),
		SandboxPlayerName:  firstString(overlay.SandboxPlayerName, base.SandboxPlayerName),
		SandboxPlayerPhoto: firstString(overlay.SandboxPlayerPhoto, base.SandboxPlayerPhoto),
		DisabledTools:      mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes:      mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes),
		SandboxUnsupported: mergeStringSlice(base.SandboxUnsupported, overlay.SandboxUnsupported),
	}
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func firstString(overlay, base string) string {
	if s := strings.TrimSpace(overlay); s != "" {
		return s
	}
	return base
}

func mergeStringSlice(lists ...[]string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

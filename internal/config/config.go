package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type DeleteMode string

const (
	DeleteModeArchive DeleteMode = "archive"
	DeleteModeHard    DeleteMode = "hard"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Delete   DeleteConfig   `toml:"delete"`
	Board    BoardConfig    `toml:"board"`
	Ordering OrderingConfig `toml:"ordering"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type DeleteConfig struct {
	DefaultMode DeleteMode `toml:"default_mode"`
}

// BoardConfig seeds the columns of newly created kanban projects.
type BoardConfig struct {
	States []StateConfig `toml:"states"`
}

type StateConfig struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	WIPLimit int    `toml:"wip_limit"`
	Position int    `toml:"position"`
}

// OrderingConfig tunes order-key spacing and planning date defaults.
type OrderingConfig struct {
	Gap             float64 `toml:"gap"`
	DefaultSpanDays int     `toml:"default_span_days"`
	MinSpacing      float64 `toml:"min_spacing"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the logfmt file sink used in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
	// RateLimitRPS caps requests per client address; 0 disables the limiter.
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
}

func defaultStates() []StateConfig {
	return []StateConfig{
		{ID: "todo", Name: "To Do", WIPLimit: 0, Position: 0},
		{ID: "progress", Name: "In Progress", WIPLimit: 0, Position: 1},
		{ID: "done", Name: "Done", WIPLimit: 0, Position: 2},
	}
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Delete: DeleteConfig{
			DefaultMode: DeleteModeArchive,
		},
		Board: BoardConfig{
			States: defaultStates(),
		},
		Ordering: OrderingConfig{
			Gap:             1000,
			DefaultSpanDays: 4,
			MinSpacing:      1,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".plank/log",
			},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// Array tables append to a populated slice, so decode states from empty.
	cfg.Board.States = nil
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(cfg.Board.States) == 0 {
		cfg.Board.States = append([]StateConfig(nil), defaults.Board.States...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch c.Delete.DefaultMode {
	case DeleteModeArchive, DeleteModeHard:
	default:
		return fmt.Errorf("invalid delete.default_mode: %q", c.Delete.DefaultMode)
	}

	if len(c.Board.States) == 0 {
		return errors.New("board.states must include at least one state")
	}
	seenStateID := map[string]struct{}{}
	for idx := range c.Board.States {
		state := c.Board.States[idx]
		state.ID = strings.TrimSpace(strings.ToLower(state.ID))
		state.Name = strings.TrimSpace(state.Name)
		if state.ID == "" {
			return fmt.Errorf("board.states[%d].id is required", idx)
		}
		if state.Name == "" {
			return fmt.Errorf("board.states[%d].name is required", idx)
		}
		if state.WIPLimit < 0 {
			return fmt.Errorf("board.states[%d].wip_limit must be >= 0", idx)
		}
		if state.Position < 0 {
			return fmt.Errorf("board.states[%d].position must be >= 0", idx)
		}
		if _, ok := seenStateID[state.ID]; ok {
			return fmt.Errorf("board.states[%d].id is duplicated: %s", idx, state.ID)
		}
		seenStateID[state.ID] = struct{}{}
	}

	if c.Ordering.Gap <= 0 {
		return fmt.Errorf("ordering.gap must be > 0, got %v", c.Ordering.Gap)
	}
	if c.Ordering.DefaultSpanDays < 1 {
		return fmt.Errorf("ordering.default_span_days must be >= 1, got %d", c.Ordering.DefaultSpanDays)
	}
	if c.Ordering.MinSpacing <= 0 || c.Ordering.MinSpacing >= c.Ordering.Gap {
		return fmt.Errorf("ordering.min_spacing must be > 0 and below ordering.gap, got %v", c.Ordering.MinSpacing)
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		if strings.ContainsAny(endpoint, " ?#") {
			return fmt.Errorf("invalid %s: %q", name, endpoint)
		}
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("server.rate_limit_rps and server.rate_limit_burst must be >= 0")
	}
	if api, mcp := strings.Trim(c.Server.APIEndpoint, "/ "), strings.Trim(c.Server.MCPEndpoint, "/ "); api != "" && api == mcp {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ")
	}

	return nil
}

// Write validates cfg and stores it as TOML at path.
func Write(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/plank.db")
	if cfg.Database.Path != "/tmp/plank.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Delete.DefaultMode != DeleteModeArchive {
		t.Fatalf("unexpected delete mode %q", cfg.Delete.DefaultMode)
	}
	if cfg.Ordering.Gap != 1000 || cfg.Ordering.DefaultSpanDays != 4 || cfg.Ordering.MinSpacing != 1 {
		t.Fatalf("unexpected ordering defaults %#v", cfg.Ordering)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.DevFile.Dir != ".plank/log" {
		t.Fatalf("unexpected logging defaults %#v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/plank.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != defaults.Database.Path {
		t.Fatalf("expected default db path, got %q", cfg.Database.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[database]
path = "/custom/plank.db"

[delete]
default_mode = "hard"

[ordering]
gap = 64
default_span_days = 2
min_spacing = 0.5

[logging]
level = "debug"

[logging.dev_file]
enabled = false

[server]
http_bind = "0.0.0.0:9090"
api_endpoint = "/api/v2"
rate_limit_rps = 20
rate_limit_burst = 40

[[board.states]]
id = "backlog"
name = "Backlog"
position = 0

[[board.states]]
id = "shipped"
name = "Shipped"
position = 1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path, Default("/tmp/default.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/custom/plank.db" {
		t.Fatalf("unexpected db path %q", cfg.Database.Path)
	}
	if cfg.Delete.DefaultMode != DeleteModeHard {
		t.Fatalf("unexpected delete mode %q", cfg.Delete.DefaultMode)
	}
	if cfg.Ordering.Gap != 64 || cfg.Ordering.DefaultSpanDays != 2 || cfg.Ordering.MinSpacing != 0.5 {
		t.Fatalf("unexpected ordering override %#v", cfg.Ordering)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.DevFile.Enabled {
		t.Fatalf("unexpected logging override %#v", cfg.Logging)
	}
	if cfg.Logging.DevFile.Dir != ".plank/log" {
		t.Fatalf("expected dev file dir default to survive, got %q", cfg.Logging.DevFile.Dir)
	}
	if cfg.Server.HTTPBind != "0.0.0.0:9090" || cfg.Server.APIEndpoint != "/api/v2" || cfg.Server.MCPEndpoint != "/mcp" ||
		cfg.Server.RateLimitRPS != 20 || cfg.Server.RateLimitBurst != 40 {
		t.Fatalf("unexpected server override %#v", cfg.Server)
	}
	if len(cfg.Board.States) != 2 || cfg.Board.States[1].Name != "Shipped" {
		t.Fatalf("unexpected board states %#v", cfg.Board.States)
	}
}

func TestLoadRejectsInvalidSections(t *testing.T) {
	cases := map[string]string{
		"delete mode": `
[delete]
default_mode = "weird"
`,
		"zero gap": `
[ordering]
gap = 0
`,
		"spacing above gap": `
[ordering]
gap = 10
min_spacing = 20
`,
		"span": `
[ordering]
default_span_days = 0
`,
		"log level": `
[logging]
level = "loud"
`,
		"endpoint collision": `
[server]
api_endpoint = "/mcp/"
`,
		"duplicate state": `
[[board.states]]
id = "todo"
name = "To Do"

[[board.states]]
id = "TODO"
name = "Again"
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(path, Default("/tmp/default.db")); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default("/tmp/plank.db")
	cfg.Ordering.Gap = 512
	cfg.Board.States = cfg.Board.States[:2]
	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	loaded, err := Load(path, Default("/tmp/other.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Database.Path != "/tmp/plank.db" || loaded.Ordering.Gap != 512 || len(loaded.Board.States) != 2 {
		t.Fatalf("unexpected round trip %#v", loaded)
	}

	cfg.Ordering.Gap = -1
	if err := Write(path, cfg); err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
}

func TestEnsureConfigDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "config.toml")
	if err := EnsureConfigDir(target); err != nil {
		t.Fatalf("EnsureConfigDir() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Fatalf("expected dir to exist, stat error %v", err)
	}
}

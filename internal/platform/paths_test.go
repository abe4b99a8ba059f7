package platform

import (
	"path/filepath"
	"testing"
)

func TestLayout(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		base       BaseDirs
		wantConfig string
		wantDB     string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			base:       BaseDirs{Config: "/fallback/config", Data: "/fallback/data"},
			wantConfig: filepath.Join("/xdg/config", "plank", "config.toml"),
			wantDB:     filepath.Join("/xdg/data", "plank", "plank.db"),
		},
		{
			name:       "linux without xdg",
			goos:       "linux",
			base:       BaseDirs{Config: "/home/me/.config", Data: "/home/me/.local/share"},
			wantConfig: filepath.Join("/home/me/.config", "plank", "config.toml"),
			wantDB:     filepath.Join("/home/me/.local/share", "plank", "plank.db"),
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Users\me\Roaming`, "LOCALAPPDATA": `C:\Users\me\Local`},
			base:       BaseDirs{Config: `C:\fallback\config`, Data: `C:\fallback\data`},
			wantConfig: filepath.Join(`C:\Users\me\Roaming`, "plank", "config.toml"),
			wantDB:     filepath.Join(`C:\Users\me\Local`, "plank", "plank.db"),
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			base:       BaseDirs{Config: "/Users/me/Library/Application Support", Data: "/Users/me/Library/Application Support"},
			wantConfig: filepath.Join("/Users/me/Library/Application Support", "plank", "config.toml"),
			wantDB:     filepath.Join("/Users/me/Library/Application Support", "plank", "plank.db"),
		},
		{
			name:       "other os",
			goos:       "freebsd",
			base:       BaseDirs{Config: "/cfg", Data: "/data"},
			wantConfig: filepath.Join("/cfg", "plank", "config.toml"),
			wantDB:     filepath.Join("/data", "plank", "plank.db"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Layout(tc.goos, func(key string) string { return tc.env[key] }, tc.base, "plank")
			if err != nil {
				t.Fatalf("Layout() error = %v", err)
			}
			if p.ConfigPath != tc.wantConfig || p.DBPath != tc.wantDB {
				t.Fatalf("unexpected paths %#v", p)
			}
			if p.DataDir != filepath.Dir(tc.wantDB) {
				t.Fatalf("unexpected data dir %q", p.DataDir)
			}
		})
	}
}

func TestLayoutRejectsEmptyInputs(t *testing.T) {
	if _, err := Layout("darwin", nil, BaseDirs{Data: "/tmp/data"}, "plank"); err == nil {
		t.Fatal("expected error for empty config base")
	}
	if _, err := Layout("linux", nil, BaseDirs{Config: "/c", Data: "/d"}, " "); err == nil {
		t.Fatal("expected error for empty app name")
	}
	// An env override can fill a missing base.
	lookup := func(key string) string { return map[string]string{"XDG_CONFIG_HOME": "/xdg"}[key] }
	if _, err := Layout("linux", lookup, BaseDirs{Data: "/d"}, "plank"); err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
}

func TestResolveDevMode(t *testing.T) {
	p, err := Resolve(Options{AppName: "plank", DevMode: true})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "plank-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "plank-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
	if def, err := Resolve(Options{}); err != nil || filepath.Base(def.DBPath) != "plank.db" {
		t.Fatalf("Resolve(default) = %#v, %v", def, err)
	}
}

// TestResolveEnv verifies PLANK_* overrides are trimmed and parsed.
func TestResolveEnv(t *testing.T) {
	values := map[string]string{
		EnvConfig:  " /etc/plank/config.toml ",
		EnvDBPath:  "/var/lib/plank/plank.db",
		EnvAppName: "plank-ci",
		EnvDevMode: "true",
	}
	env := ResolveEnv(func(key string) string { return values[key] })
	if env.ConfigPath != "/etc/plank/config.toml" || env.DBPath != "/var/lib/plank/plank.db" || env.AppName != "plank-ci" {
		t.Fatalf("unexpected env %#v", env)
	}
	if env.DevMode == nil || !*env.DevMode {
		t.Fatalf("expected dev mode override, got %#v", env.DevMode)
	}

	values[EnvDevMode] = "sometimes"
	if env := ResolveEnv(func(key string) string { return values[key] }); env.DevMode != nil {
		t.Fatalf("expected unparsable dev mode to be ignored, got %v", *env.DevMode)
	}
}

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// DefaultAppName names config and data directories when no override is given.
const DefaultAppName = "plank"

// Environment variables consulted by ResolveEnv.
const (
	EnvConfig  = "PLANK_CONFIG"
	EnvDBPath  = "PLANK_DB_PATH"
	EnvAppName = "PLANK_APP_NAME"
	EnvDevMode = "PLANK_DEV_MODE"
)

// Paths is where one app name keeps its config file and database.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
}

type Options struct {
	AppName string
	DevMode bool
}

// Env holds the PLANK_* overrides present in the environment.
type Env struct {
	ConfigPath string
	DBPath     string
	AppName    string
	// DevMode is nil when PLANK_DEV_MODE is unset or not a boolean.
	DevMode *bool
}

// ResolveEnv reads PLANK_* overrides through lookup.
func ResolveEnv(lookup func(string) string) Env {
	if lookup == nil {
		lookup = os.Getenv
	}
	env := Env{
		ConfigPath: strings.TrimSpace(lookup(EnvConfig)),
		DBPath:     strings.TrimSpace(lookup(EnvDBPath)),
		AppName:    strings.TrimSpace(lookup(EnvAppName)),
	}
	if raw := strings.TrimSpace(lookup(EnvDevMode)); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			env.DevMode = &v
		}
	}
	return env
}

// BaseDirs are the per-user roots that app directories hang off.
type BaseDirs struct {
	Config string
	Data   string
}

// dirOverrides names the env vars that replace BaseDirs.Config and BaseDirs.Data per GOOS.
var dirOverrides = map[string][2]string{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

// Resolve lays out the config and database locations for the running OS. Dev mode appends
// "-dev" to the app name so a dev build never touches real boards.
func Resolve(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}
	base, err := userBaseDirs(runtime.GOOS)
	if err != nil {
		return Paths{}, err
	}
	return Layout(runtime.GOOS, os.Getenv, base, appName)
}

func userBaseDirs(goos string) (BaseDirs, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return BaseDirs{}, fmt.Errorf("user config dir: %w", err)
	}
	base := BaseDirs{Config: configDir, Data: configDir}
	if goos == "linux" {
		home, err := os.UserHomeDir()
		if err != nil {
			return BaseDirs{}, fmt.Errorf("user home dir: %w", err)
		}
		base.Data = filepath.Join(home, ".local", "share")
	}
	return base, nil
}

// Layout places config.toml under the config base and <app>.db under the data base, after
// applying the OS env overrides read through lookup.
func Layout(goos string, lookup func(string) string, base BaseDirs, appName string) (Paths, error) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}
	if lookup == nil {
		lookup = func(string) string { return "" }
	}
	if keys, ok := dirOverrides[goos]; ok {
		if v := strings.TrimSpace(lookup(keys[0])); v != "" {
			base.Config = v
		}
		if v := strings.TrimSpace(lookup(keys[1])); v != "" {
			base.Data = v
		}
	}
	if base.Config == "" || base.Data == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}

	dataDir := filepath.Join(base.Data, appName)
	return Paths{
		ConfigPath: filepath.Join(base.Config, appName, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appName+".db"),
	}, nil
}

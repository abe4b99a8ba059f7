package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	serveradapter "github.com/hylla/plank/internal/adapters/server"
	servercommon "github.com/hylla/plank/internal/adapters/server/common"
	"github.com/hylla/plank/internal/adapters/storage/sqlite"
	"github.com/hylla/plank/internal/app"
	"github.com/hylla/plank/internal/config"
	"github.com/hylla/plank/internal/ordering"
	"github.com/hylla/plank/internal/platform"
)

// version stores a package-level helper value.
var version = "dev"

// cliActorID attributes CLI writes in the change log.
const cliActorID = "plank-cli"

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	quiet      bool
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCmd assembles the plank command tree.
func newRootCmd() *cobra.Command {
	env := platform.ResolveEnv(os.Getenv)
	opts := &rootOptions{appName: platform.DefaultAppName, devMode: version == "dev"}
	if env.AppName != "" {
		opts.appName = env.AppName
	}
	if env.DevMode != nil {
		opts.devMode = *env.DevMode
	}

	root := &cobra.Command{
		Use:   "plank",
		Short: "Drag-and-drop ordering for kanban and planning boards",
		Long: `plank keeps kanban columns and weekly planning buckets in a stable order.

Items carry fractional order keys, so moving one item rewrites a single row
unless the gap next to the drop point has run out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", opts.devMode, "use dev mode paths (<app>-dev)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors to the console")

	root.AddCommand(
		newPathsCmd(opts),
		newConfigCmd(opts),
		newServeCmd(opts),
		newProjectCmd(opts),
		newColumnCmd(opts),
		newBucketCmd(opts),
		newItemCmd(opts),
		newBoardCmd(opts),
		newLogCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
	)
	return root
}

// newPathsCmd prints resolved config and data paths without opening storage.
func newPathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := platform.Resolve(platform.Options{AppName: opts.appName, DevMode: opts.devMode})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

// newConfigCmd writes a starter config file.
func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to the resolved config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			if _, err := os.Stat(resolved.configPath); err == nil && !force {
				return fmt.Errorf("config %s already exists (use --force to overwrite)", resolved.configPath)
			}
			if err := config.EnsureConfigDir(resolved.configPath); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			if err := config.Write(resolved.configPath, config.Default(resolved.dbPath)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", resolved.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)
	return cmd
}

// cliRuntime is the opened state one command flow runs against.
type cliRuntime struct {
	cfg     config.Config
	logger  *runtimeLogger
	repo    *sqlite.Repository
	svc     *app.Service
	board   servercommon.BoardService
	appName string
}

// resolvedPaths is where one invocation reads config and stores data.
type resolvedPaths struct {
	platform     platform.Paths
	configPath   string
	dbPath       string
	dbOverridden bool
}

// resolvePaths applies flag, then PLANK_* environment, then platform defaults.
func resolvePaths(opts *rootOptions) (resolvedPaths, error) {
	paths, err := platform.Resolve(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return resolvedPaths{}, err
	}
	env := platform.ResolveEnv(os.Getenv)

	out := resolvedPaths{platform: paths}
	out.configPath = strings.TrimSpace(opts.configPath)
	if out.configPath == "" {
		out.configPath = env.ConfigPath
	}
	if out.configPath == "" {
		out.configPath = paths.ConfigPath
	}
	out.dbPath = strings.TrimSpace(opts.dbPath)
	if out.dbPath == "" {
		out.dbPath = env.DBPath
	}
	out.dbOverridden = out.dbPath != ""
	if !out.dbOverridden {
		out.dbPath = paths.DBPath
	}
	return out, nil
}

// withRuntime resolves config, opens storage, and runs fn as one logged command flow.
func withRuntime(cmd *cobra.Command, opts *rootOptions, command string, fn func(context.Context, *cliRuntime) error) error {
	resolved, err := resolvePaths(opts)
	if err != nil {
		return err
	}
	configPath, dbPath, paths := resolved.configPath, resolved.dbPath, resolved.platform

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if resolved.dbOverridden {
		cfg.Database.Path = dbPath
	}

	stderr := cmd.ErrOrStderr()
	logger, err := newRuntimeLogger(stderr, cfg.Logging, loggerOptions{
		appName: opts.appName,
		devMode: opts.devMode,
		quiet:   opts.quiet,
		now:     time.Now,
	})
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	svc := app.NewService(repo, uuid.NewString, nil, serviceConfig(cfg))
	logger.Debug("application service initialized", "default_delete_mode", cfg.Delete.DefaultMode, "gap", cfg.Ordering.Gap, "min_spacing", cfg.Ordering.MinSpacing)

	flow := logger.With("command", command)
	rt := &cliRuntime{
		cfg:     cfg,
		logger:  flow,
		repo:    repo,
		svc:     svc,
		board:   servercommon.NewAppServiceAdapter(svc),
		appName: opts.appName,
	}
	flow.Info("command flow start")
	if err := fn(cmd.Context(), rt); err != nil {
		flow.Error("command flow failed", "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	flow.Info("command flow complete")
	return nil
}

// serviceConfig maps persisted config values onto the application service.
func serviceConfig(cfg config.Config) app.ServiceConfig {
	templates := make([]app.StateTemplate, 0, len(cfg.Board.States))
	for _, state := range cfg.Board.States {
		templates = append(templates, app.StateTemplate{
			ID:       state.ID,
			Name:     state.Name,
			WIPLimit: state.WIPLimit,
			Position: state.Position,
		})
	}
	return app.ServiceConfig{
		DefaultDeleteMode:        app.DeleteMode(cfg.Delete.DefaultMode),
		StateTemplates:           templates,
		AutoCreateProjectColumns: true,
		Ordering: ordering.Config{
			Gap:             cfg.Ordering.Gap,
			DefaultSpanDays: cfg.Ordering.DefaultSpanDays,
			MinSpacing:      cfg.Ordering.MinSpacing,
		},
	}
}

// newServeCmd runs the HTTP API and MCP endpoints until interrupted.
func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		httpBind    string
		apiEndpoint string
		mcpEndpoint string
		rateLimit   float64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, "serve", func(ctx context.Context, rt *cliRuntime) error {
				serverCfg := serveradapter.Config{
					HTTPBind:      rt.cfg.Server.HTTPBind,
					APIEndpoint:   rt.cfg.Server.APIEndpoint,
					MCPEndpoint:   rt.cfg.Server.MCPEndpoint,
					ServerName:    rt.appName,
					ServerVersion: version,
					RateLimit: serveradapter.RateLimit{
						RPS:   rt.cfg.Server.RateLimitRPS,
						Burst: rt.cfg.Server.RateLimitBurst,
					},
				}
				if cmd.Flags().Changed("http") {
					serverCfg.HTTPBind = httpBind
				}
				if cmd.Flags().Changed("api-endpoint") {
					serverCfg.APIEndpoint = apiEndpoint
				}
				if cmd.Flags().Changed("mcp-endpoint") {
					serverCfg.MCPEndpoint = mcpEndpoint
				}
				if cmd.Flags().Changed("rate-limit") {
					serverCfg.RateLimit.RPS = rateLimit
				}
				return serveCommandRunner(ctx, serverCfg, serveradapter.Dependencies{
					Board:  rt.board,
					Ready:  rt.repo.Ping,
					Logger: rt.logger.With("component", "server"),
				})
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "127.0.0.1:8080", "HTTP listen address")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "/api/v1", "HTTP API base endpoint")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "requests per second per client (0 disables)")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ctagard/gdb-mcp/internal/config"
	"github.com/ctagard/gdb-mcp/internal/logging"
	"github.com/ctagard/gdb-mcp/internal/mcp"
	"github.com/ctagard/gdb-mcp/internal/session"
	"github.com/ctagard/gdb-mcp/internal/version"
)

type options struct {
	configPath string
	gdbPath    string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	app := &cobra.Command{
		Use:   "gdb-mcp",
		Short: "MCP server exposing a GDB/MI session",
		Long: `gdb-mcp: a Model Context Protocol server that drives GDB over its machine
interface, letting LLM agents connect to a remote gdbserver and issue raw MI
commands.

MCP INTEGRATION:
    {
        "mcpServers": {
            "gdb": {
                "command": "gdb-mcp",
                "args": ["--config", "/path/to/gdb-mcp.toml"]
            }
        }
    }

TOOLS:
    connect       Start GDB and select a remote target (host:port)
    disconnect    Terminate the active session
    command       Send a raw MI command`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts)
		},
	}

	app.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to TOML configuration file")
	app.PersistentFlags().StringVar(&opts.gdbPath, "gdb", "", "Path to the gdb binary (overrides configuration)")
	app.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides configuration)")

	app.AddCommand(versionCmd(opts))
	return app
}

func versionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version and the detected GDB version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gdb-mcp version %s\n", version.Version)

			info, err := version.CheckGDB(cmd.Context(), cfg.GDB.Path)
			if err != nil {
				fmt.Fprintf(out, "gdb: not found (%v)\n", err)
				return nil
			}
			status := "supported"
			if !info.Compatible {
				status = "unsupported, need " + version.MinGDB
			}
			fmt.Fprintf(out, "gdb %s at %s (%s)\n", info.Version, info.Path, status)
			return nil
		},
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.gdbPath != "" {
		cfg.GDB.Path = opts.gdbPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return err
	}

	logger, err := logging.Init("gdb-mcp", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		return err
	}

	info, err := version.CheckGDB(context.Background(), cfg.GDB.Path)
	switch {
	case err != nil:
		logger.Warn().Err(err).Str("gdb", cfg.GDB.Path).Msg("could not determine gdb version; connect will fail if gdb is missing")
	case !info.Compatible:
		logger.Warn().Str("gdb", cfg.GDB.Path).Str("version", info.Version.String()).Str("required", version.MinGDB).Msg("gdb may not support --interpreter=mi3")
	default:
		logger.Debug().Str("gdb", cfg.GDB.Path).Str("version", info.Version.String()).Msg("found gdb")
	}

	manager := session.NewManager(
		session.GDBDialer(cfg, logger),
		session.OptionsFromConfig(cfg, logger),
	)
	server := mcp.NewServer(manager, logger)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		server.Close()
		os.Exit(0)
	}()

	logger.Info().Str("version", version.Version).Msg("gdb-mcp server starting")
	if err := server.ServeStdio(); err != nil {
		server.Close()
		logger.Error().Err(err).Msg("server error")
		return err
	}
	server.Close()
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/santoshkal/mcp-server-http-time/pkg/config"
	"github.com/santoshkal/mcp-server-http-time/pkg/guard"
	"github.com/santoshkal/mcp-server-http-time/pkg/mcp"
	"github.com/santoshkal/mcp-server-http-time/pkg/ratelimit"
	"github.com/santoshkal/mcp-server-http-time/pkg/reg"
	"github.com/santoshkal/mcp-server-http-time/pkg/server"
	"github.com/santoshkal/mcp-server-http-time/pkg/timetools"
	"github.com/santoshkal/mcp-server-http-time/pkg/utils"
)

var logger = utils.Logger

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mcp-server-http-time",
	Short: "MCP server exposing date and time tools over HTTP JSON-RPC",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// If a config path is provided, set the environment variable.
		if configPath != "" {
			os.Setenv(config.EnvConfigPath, configPath)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe("")
	},
	SilenceUsage: true,
}

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server would register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTITLE\tDESCRIPTION")
			for _, t := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, t.Title, t.Description)
			}
			return w.Flush()
		},
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the configuration YAML file")
	rootCmd.AddCommand(newServeCommand(), newToolsCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	if err := utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRegistry registers the built-in time tools, the natural language tool when an
// LLM is configured, and finally the plugin tools. A name collision is fatal.
func buildRegistry(cfg *config.Config) (*reg.Registry, error) {
	registry := reg.New()

	tools, err := timetools.New(cfg.Time.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	if err := tools.Register(registry); err != nil {
		return nil, err
	}

	if cfg.LLM.Enabled {
		model, err := timetools.NewOpenAIModel(cfg.APIKey(), cfg.LLM.Model, cfg.LLM.BaseURL)
		if err != nil {
			logger.Warnf("%s disabled: %v", timetools.ToolParseNaturalTime, err)
		} else {
			if cfg.LLM.SystemPrompt != "" {
				utils.SetSystemPromptOverride(cfg.LLM.SystemPrompt)
			}
			if err := registry.Register(tools.NaturalTimeTool(model, cfg.LLM.Timeout)); err != nil {
				return nil, err
			}
		}
	}

	if err := reg.RegisterToolsFromConfig(registry, cfg.Plugins); err != nil {
		return nil, fmt.Errorf("failed to register plugin tools: %w", err)
	}
	return registry, nil
}

func runServe(addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	logger.Infof("Registered %d tools", registry.Len())

	srv, err := server.NewServer(registry, mcp.ServerInfo{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, cfg.Server.Instructions)
	if err != nil {
		return fmt.Errorf("error initializing server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if cfg.RateLimit.SweepInterval > 0 {
			go limiter.RunSweeper(ctx, cfg.RateLimit.SweepInterval)
		}
	}

	handler := server.NewHTTPHandler(srv, server.HTTPOptions{
		Guard:         guard.New(cfg.Security.AllowedOrigins),
		Limiter:       limiter,
		ClientHeaders: cfg.RateLimit.ClientIPHeaders,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	})
	return server.ListenAndServe(ctx, cfg.Server, handler.Routes())
}

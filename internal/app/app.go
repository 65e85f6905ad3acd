// Package app wires the assistant together and runs it over HTTP or MCP stdio.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robloxmcp/studio-assist/common/environment"
	"github.com/robloxmcp/studio-assist/common/version"
	"github.com/robloxmcp/studio-assist/internal/api"
	"github.com/robloxmcp/studio-assist/internal/assist"
	"github.com/robloxmcp/studio-assist/internal/capability"
	"github.com/robloxmcp/studio-assist/internal/mcp"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/prompts"
	"github.com/robloxmcp/studio-assist/internal/session"
	"github.com/robloxmcp/studio-assist/internal/templates"
	"github.com/robloxmcp/studio-assist/internal/wizard"
)

// ServerName is reported in the MCP initialize handshake.
const ServerName = "roblox-studio-assist"

// Config holds application configuration.
type Config struct {
	// HTTPAddr is the listen address of the HTTP API (e.g. ":3000").
	HTTPAddr string
	// Stdio serves MCP over stdin/stdout instead of HTTP.
	Stdio bool
	// DatabasePath is the SQLite session database. ":memory:" keeps sessions
	// for the life of the process; empty disables sessions.
	DatabasePath string
	// TemplatesFile is an optional YAML catalog overlaid on the embedded one.
	TemplatesFile string
	// AutoExecuteThreshold is the confidence above which suggested tools run.
	AutoExecuteThreshold float64
	// ProcessCacheSize bounds the processed-command cache; 0 disables it.
	ProcessCacheSize int
	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	// Stdin and Stdout default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() Config {
	return Config{
		HTTPAddr:             environment.StringOr("STUDIO_HTTP_ADDR", ":3000"),
		Stdio:                environment.BoolOr("STUDIO_STDIO", false),
		DatabasePath:         environment.StringOr("STUDIO_DB_PATH", ":memory:"),
		TemplatesFile:        environment.StringOr("STUDIO_TEMPLATES_FILE", ""),
		AutoExecuteThreshold: environment.FloatOr("STUDIO_AUTO_EXECUTE_THRESHOLD", assist.DefaultThreshold),
		ProcessCacheSize:     environment.IntOr("STUDIO_PROCESS_CACHE_SIZE", 256),
		ShutdownTimeout:      environment.DurationOr("STUDIO_SHUTDOWN_TIMEOUT", api.DefaultShutdownTimeout),
		LogLevel:             environment.StringOr("LOG_LEVEL", "info"),
		LogFormat:            environment.StringOr("LOG_FORMAT", "text"),
	}
}

// App is the assembled assistant.
type App struct {
	config Config

	gateway   *capability.Gateway
	prompts   *prompts.Registry
	assistant *assist.Assistant
	mcp       *mcp.Server
	sessions  *session.Store
	api       *api.Server
}

// New builds every component described by config.
func New(config Config) (*App, error) {
	if config.Stdin == nil {
		config.Stdin = os.Stdin
	}
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}

	store := templates.Default()
	if config.TemplatesFile != "" {
		over, err := templates.Load(os.DirFS(filepath.Dir(config.TemplatesFile)), filepath.Base(config.TemplatesFile))
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		store = store.Overlay(over)
		slog.Info("template overlay loaded", "path", config.TemplatesFile)
	}

	processor := &nlcmd.Processor{Logger: slog.Default()}
	registry := capability.NewRegistry()
	capability.RegisterBuiltins(registry, capability.Builtins{
		Processor: processor,
		Templates: store,
		Wizard:    wizard.New(store),
	})
	gateway := capability.NewGateway(registry)
	promptRegistry := prompts.NewRegistry(store)
	assistant := assist.New(processor, gateway, config.AutoExecuteThreshold)
	mcpServer := mcp.NewServer(mcp.ServerInfo{Name: ServerName, Version: version.Version}, gateway, promptRegistry)

	a := &App{
		config:    config,
		gateway:   gateway,
		prompts:   promptRegistry,
		assistant: assistant,
		mcp:       mcpServer,
	}

	if config.DatabasePath != "" {
		sessions, err := session.New(config.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		a.sessions = sessions
	}

	if !config.Stdio {
		h := api.Handlers{
			Version:   version.Version,
			GitCommit: version.GitCommit,
			BuildTime: version.BuildTime,
			Assistant: assistant,
			Gateway:   gateway,
			Prompts:   promptRegistry,
			MCP:       mcpServer,
			Sessions:  a.sessions,
			CacheSize: config.ProcessCacheSize,

			ShutdownTimeout: config.ShutdownTimeout,
		}
		srv, err := api.New(config.HTTPAddr, h)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.api = srv
	}

	slog.Info("assistant ready",
		"capabilities", len(registry.Names()),
		"prompts", len(promptRegistry.List()),
		"threshold", assistant.Threshold(),
		"sessions", a.sessions != nil,
		"stdio", config.Stdio,
	)
	return a, nil
}

// Assistant returns the command assistant.
func (a *App) Assistant() *assist.Assistant { return a.assistant }

// Gateway returns the capability gateway.
func (a *App) Gateway() *capability.Gateway { return a.gateway }

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives. In stdio mode
// it also returns once stdin is exhausted.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if a.config.Stdio {
		slog.Info("serving MCP over stdio")
		g.Go(func() error {
			return a.mcp.ServeStdio(ctx, a.config.Stdin, a.config.Stdout)
		})
	} else {
		if err := a.api.Start(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			slog.Info("shutting down")
			a.api.Stop()
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// HTTPAddr returns the bound HTTP address, or "" in stdio mode.
func (a *App) HTTPAddr() string {
	if a.api == nil {
		return ""
	}
	return a.api.Addr()
}

// Close releases the session database.
func (a *App) Close() error {
	if a.sessions != nil {
		return a.sessions.Close()
	}
	return nil
}

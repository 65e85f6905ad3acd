// Command studio-assist interprets Korean and English Roblox Studio requests
// and dispatches them to capabilities over HTTP, MCP stdio or the command line.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robloxmcp/studio-assist/common/version"
	"github.com/robloxmcp/studio-assist/internal/app"
	"github.com/robloxmcp/studio-assist/internal/nlcmd"
	"github.com/robloxmcp/studio-assist/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "studio-assist",
		Short:        "Bilingual Roblox Studio command assistant",
		Long:         `studio-assist interprets Korean and English Roblox Studio requests and routes them to capabilities.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newProcessCmd(), newToolsCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, or MCP over stdio with --stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.LoadConfig()
			applyFlags(cmd, &cfg)
			observability.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address (env STUDIO_HTTP_ADDR)")
	f.Bool("stdio", false, "serve MCP over stdin/stdout (env STUDIO_STDIO)")
	f.String("db", "", "session database path, empty disables sessions (env STUDIO_DB_PATH)")
	f.String("templates", "", "YAML template overlay (env STUDIO_TEMPLATES_FILE)")
	f.Int("cache-size", 0, "processed-command cache size (env STUDIO_PROCESS_CACHE_SIZE)")
	addCommonFlags(cmd)
	return cmd
}

func newProcessCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "process <text>",
		Short: "Interpret one command and print the outcome as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var language nlcmd.Language
			if lang != "" {
				l, ok := nlcmd.ParseLanguage(lang)
				if !ok {
					return fmt.Errorf("unsupported language %q", lang)
				}
				language = l
			}

			a, err := newLocalApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			text := strings.Join(args, " ")
			out := a.Assistant().Handle(cmd.Context(), nlcmd.Command{Text: text}, language)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "response language (ko or en), detected when empty")
	addCommonFlags(cmd)
	return cmd
}

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List every registered capability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newLocalApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			for _, c := range a.Gateway().Registry().List() {
				fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Description)
			}
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "studio-assist", version.Info())
		},
	}
}

func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("threshold", 0, "auto-execute confidence threshold (env STUDIO_AUTO_EXECUTE_THRESHOLD)")
	f.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	f.String("log-format", "", "text or json (env LOG_FORMAT)")
}

// newLocalApp builds an app for one-shot commands: no listener, no sessions.
func newLocalApp(cmd *cobra.Command) (*app.App, error) {
	cfg := app.LoadConfig()
	applyFlags(cmd, &cfg)
	cfg.Stdio = true
	cfg.DatabasePath = ""
	observability.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return app.New(cfg)
}

// applyFlags overrides cfg with every flag the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *app.Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.HTTPAddr, _ = f.GetString("addr")
	}
	if f.Changed("stdio") {
		cfg.Stdio, _ = f.GetBool("stdio")
	}
	if f.Changed("db") {
		cfg.DatabasePath, _ = f.GetString("db")
	}
	if f.Changed("templates") {
		cfg.TemplatesFile, _ = f.GetString("templates")
	}
	if f.Changed("cache-size") {
		cfg.ProcessCacheSize, _ = f.GetInt("cache-size")
	}
	if f.Changed("threshold") {
		cfg.AutoExecuteThreshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.LogFormat, _ = f.GetString("log-format")
	}
}

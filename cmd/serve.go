package cmd

import (
	"context"
	"errors"
	"fmt"

	"toolgate/internal/app"
	"toolgate/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// boolKeys are the configuration keys exposed as boolean flags.
var boolKeys = map[string]bool{
	config.KeyAuthEnabled:       true,
	config.KeyProtectStreamable: true,
	config.KeyValkeyTLS:         true,
}

// serveCmd starts the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the toolgate MCP server",
	Long: `Starts the HTTP server that hosts the MCP tools.

Endpoints:
  /mcp          streamable HTTP binding
  /sse          SSE binding, opens a session and its event stream
  /messages     SSE binding, posts a message to a session
  /healthz      health check
  /metrics      Prometheus metrics

When AUTH_ENABLED is set, the OAuth authorization server endpoints are
mounted as well and /sse and /messages require a bearer token.

Configuration:
  Every setting is read from an environment variable of the same name,
  optionally preloaded from a dotenv file (--env-file). Each variable
  has a matching flag, e.g. OAUTH_CLIENT_ID and --oauth-client-id.
  Flags take precedence over the environment.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(config.LoadOptions{
		EnvFile:         envFile,
		EnvFileRequired: cmd.Flags().Changed("env-file"),
		Flags:           cmd.Flags(),
	})
	if err != nil {
		var configErrs config.ConfigurationErrorCollection
		if errors.As(err, &configErrs) {
			fmt.Fprintln(cmd.ErrOrStderr(), configErrs.GetDetailedReport())
		}
		return err
	}

	application, err := app.NewApplication(app.NewConfig(settings, GetVersion()))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

// addConfigFlags registers one flag per configuration key. The flags carry
// no defaults of their own; unset flags fall through to the environment.
func addConfigFlags(flags *pflag.FlagSet) {
	for _, key := range config.Keys {
		name := config.FlagName(key)
		usage := fmt.Sprintf("overrides %s", key)
		if boolKeys[key] {
			flags.Bool(name, false, usage)
			continue
		}
		flags.String(name, "", usage)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addConfigFlags(serveCmd.Flags())
}

package cmd

import (
	"errors"
	"os"

	"toolgate/internal/config"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates the configuration could not be resolved or validated.
	ExitCodeConfig = 2
)

// envFile is the dotenv file read before the environment and flags.
var envFile string

// rootCmd represents the base command for the toolgate application.
var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "Serve MCP tools over streamable HTTP and SSE",
	Long: `toolgate is an MCP tool server. It routes client traffic to per-session
MCP transports over the streamable HTTP binding (/mcp) and the legacy
SSE binding (/sse and /messages).

With authentication enabled it also acts as an OAuth 2.1 authorization
server that proxies to an upstream identity provider and keeps
dynamically registered clients in Valkey.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "toolgate version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var configErrs config.ConfigurationErrorCollection
	if errors.As(err, &configErrs) {
		return ExitCodeConfig
	}

	var configErr config.ConfigurationError
	if errors.As(err, &configErr) {
		return ExitCodeConfig
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file to read before the environment (ignored when missing)")
}

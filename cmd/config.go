package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"toolgate/internal/config"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configOutput string

// newConfigCmd creates the command that prints the resolved configuration
// with secrets masked.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Resolves the configuration exactly as 'serve' would and prints it with
secrets masked. Validation problems are reported after the listing and
make the command exit with a non-zero status.`,
		Args: cobra.NoArgs,
		RunE: runConfig,
	}
	cmd.Flags().StringVarP(&configOutput, "output", "o", "table", "Output format (table, yaml)")
	addConfigFlags(cmd.Flags())
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configOutput != "table" && configOutput != "yaml" {
		return fmt.Errorf("unsupported output format %q (supported: table, yaml)", configOutput)
	}

	settings, err := config.Load(config.LoadOptions{
		EnvFile:         envFile,
		EnvFileRequired: cmd.Flags().Changed("env-file"),
		Flags:           cmd.Flags(),
	})
	var configErrs config.ConfigurationErrorCollection
	if err != nil && !errors.As(err, &configErrs) {
		return err
	}

	if perr := printConfig(cmd.OutOrStdout(), settings.Redacted(), configOutput); perr != nil {
		return perr
	}

	if configErrs.HasErrors() {
		fmt.Fprintln(cmd.ErrOrStderr(), configErrs.GetDetailedReport())
		return configErrs
	}
	return nil
}

func printConfig(w io.Writer, cfg config.Config, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		return enc.Close()
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SETTING"),
		text.FgHiCyan.Sprint("VALUE"),
	})
	for _, key := range config.Keys {
		t.AppendRow(table.Row{key, settingValue(cfg, key)})
	}
	t.Render()
	return nil
}

// settingValue renders the effective value of key.
func settingValue(cfg config.Config, key string) string {
	switch key {
	case config.KeyPort:
		return strconv.Itoa(cfg.Server.Port)
	case config.KeyHost:
		return cfg.Server.Host
	case config.KeyMode:
		return cfg.Server.Mode
	case config.KeySSETimeout:
		return cfg.Server.SSETimeout.String()
	case config.KeyMaxSessions:
		return strconv.Itoa(cfg.Server.MaxSessions)
	case config.KeyAuthEnabled:
		return strconv.FormatBool(cfg.Auth.Enabled)
	case config.KeyProtectStreamable:
		return strconv.FormatBool(cfg.Auth.ProtectStreamable)
	case config.KeyPublicURL:
		return cfg.Auth.PublicURL
	case config.KeyClientID:
		return cfg.Auth.ClientID
	case config.KeyClientSecret:
		return cfg.Auth.ClientSecret
	case config.KeyIssuerURL:
		return cfg.Auth.IssuerURL
	case config.KeyAuthorizationURL:
		return cfg.Auth.AuthorizationURL
	case config.KeyTokenURL:
		return cfg.Auth.TokenURL
	case config.KeyRevocationURL:
		return cfg.Auth.RevocationURL
	case config.KeyRegistrationURL:
		return cfg.Auth.RegistrationURL
	case config.KeyJWTSigningKey:
		return cfg.Auth.JWTSigningKey
	case config.KeyJWTAlgorithm:
		return cfg.Auth.JWTAlgorithm
	case config.KeyJWTAudience:
		return cfg.Auth.JWTAudience
	case config.KeyClientStore:
		return cfg.ClientStore.Backend
	case config.KeyValkeyAddress:
		return cfg.ClientStore.Valkey.Address
	case config.KeyValkeyPassword:
		return cfg.ClientStore.Valkey.Password
	case config.KeyValkeyDB:
		return strconv.Itoa(cfg.ClientStore.Valkey.DB)
	case config.KeyValkeyKeyPrefix:
		return cfg.ClientStore.Valkey.KeyPrefix
	case config.KeyValkeyTLS:
		return strconv.FormatBool(cfg.ClientStore.Valkey.TLSEnabled)
	case config.KeyLogLevel:
		return cfg.Logging.Level
	case config.KeyLogFormat:
		return cfg.Logging.Format
	}
	return ""
}

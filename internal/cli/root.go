/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cli implements the docsubmit command line interface.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crptkit/docsubmit/config"
	"github.com/crptkit/docsubmit/docclient"
	"github.com/crptkit/docsubmit/log"
)

// EnvVarsPrefix is the prefix of environment variables overriding configuration values,
// e.g. DOCSUBMIT_CLIENT_APIURL or DOCSUBMIT_LOG_LEVEL.
const EnvVarsPrefix = "DOCSUBMIT"

const cfgKeyPrefixClient = "client"

// AppConfig is the configuration of the docsubmit command.
type AppConfig struct {
	Log    *log.Config
	Client *docclient.Config
}

// LoadAppConfig loads the configuration from the file (if path is not empty), environment variables and defaults.
// The file format is detected by its extension (.yaml, .yml or .json).
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{
		Log:    log.NewConfig(),
		Client: docclient.NewConfigWithKeyPrefix(cfgKeyPrefixClient),
	}
	if err := config.NewDefaultLoader(EnvVarsPrefix).LoadFromPath(path, cfg.Log, cfg.Client); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the docsubmit root command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docsubmit",
		Short: "Submit documents to the registration API without exceeding its rate limit",
		Long: `docsubmit reads documents from JSON or YAML files and submits them to the
registration API. No more than rateLimit.requestLimit requests are sent per rateLimit.window.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (error, warn, info, debug)")

	cmd.AddCommand(newSubmitCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func (o *rootOptions) loadConfig() (*AppConfig, error) {
	cfg, err := LoadAppConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		level := log.Level(strings.ToLower(o.logLevel))
		switch level {
		case log.LevelError, log.LevelWarn, log.LevelInfo, log.LevelDebug:
			cfg.Log.Level = level
		default:
			return nil, fmt.Errorf("unknown log level %q", o.logLevel)
		}
	}
	return cfg, nil
}

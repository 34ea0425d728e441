package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalfonso89/openexchangerates/internal/config"
	"github.com/dalfonso89/openexchangerates/internal/logger"
	"github.com/dalfonso89/openexchangerates/openexchangerates"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	config *config.Config
	logger *logger.Logger
	client *openexchangerates.Client
}

func newRootCommand() *cobra.Command {
	application := &app{}

	var (
		appID    string
		baseURL  string
		logLevel string
		timeout  time.Duration
	)

	root := &cobra.Command{
		Use:           "oxr",
		Short:         "Query the Open Exchange Rates API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("app-id") {
				cfg.AppID = appID
			}
			if flags.Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("timeout") {
				cfg.Timeout = timeout
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			application.config = cfg
			application.logger = logger.NewWithOutput(cfg.LogLevel, cmd.ErrOrStderr())
			application.client, err = openexchangerates.New(cfg.AppID,
				openexchangerates.WithBaseURL(cfg.BaseURL),
				openexchangerates.WithTimeout(cfg.Timeout),
				openexchangerates.WithLogger(application.logger),
			)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if application.client != nil {
				return application.client.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&appID, "app-id", "", "Open Exchange Rates app id (env OXR_APP_ID)")
	flags.StringVar(&baseURL, "base-url", config.DefaultBaseURL, "API root (env OXR_BASE_URL)")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error (env LOG_LEVEL)")
	flags.DurationVar(&timeout, "timeout", openexchangerates.DefaultTimeout, "per-request timeout (env OXR_TIMEOUT_SECONDS)")
	flags.Bool("prettyprint", false, "ask the API for indented JSON")

	root.AddCommand(
		newConvertCommand(application),
		newLatestCommand(application),
		newHistoricalCommand(application),
		newCurrenciesCommand(application),
		newUsageCommand(application),
		newServeCommand(application),
	)

	return root
}

// optionalBool returns nil unless the flag was given on the command line
func optionalBool(cmd *cobra.Command, name string) (*bool, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil, err
	}
	return openexchangerates.Bool(value), nil
}

func writeJSON(cmd *cobra.Command, value interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

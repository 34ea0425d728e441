package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dalfonso89/openexchangerates/internal/api"
	"github.com/dalfonso89/openexchangerates/internal/models"
	"github.com/dalfonso89/openexchangerates/openexchangerates"
)

const maxConcurrentHistorical = 4

func newConvertCommand(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert AMOUNT FROM TO",
		Short: "Convert an amount between two currencies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("amount %q is not a decimal number", args[0])
			}
			prettyPrint, err := optionalBool(cmd, "prettyprint")
			if err != nil {
				return err
			}

			response, err := application.client.Convert(cmd.Context(), strings.ToUpper(args[1]), strings.ToUpper(args[2]), amount,
				openexchangerates.ConvertOptions{PrettyPrint: prettyPrint})
			if err != nil {
				return err
			}
			return writeJSON(cmd, models.FromConvert(response))
		},
	}
}

// addRatesFlags registers the flags shared by latest and historical
func addRatesFlags(cmd *cobra.Command) {
	cmd.Flags().String("base", "", "base currency")
	cmd.Flags().String("symbols", "", "comma separated currency codes to include")
	cmd.Flags().Bool("alternative", false, "include alternative currencies")
}

func ratesOptions(cmd *cobra.Command) (openexchangerates.RatesOptions, error) {
	var options openexchangerates.RatesOptions
	var err error

	base, _ := cmd.Flags().GetString("base")
	options.Base = strings.ToUpper(base)

	if cmd.Flags().Changed("symbols") {
		symbols, _ := cmd.Flags().GetString("symbols")
		options.Symbols = api.SplitSymbols(symbols)
	}
	if options.PrettyPrint, err = optionalBool(cmd, "prettyprint"); err != nil {
		return options, err
	}
	if options.ShowAlternative, err = optionalBool(cmd, "alternative"); err != nil {
		return options, err
	}
	return options, nil
}

func newLatestCommand(application *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the latest exchange rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options, err := ratesOptions(cmd)
			if err != nil {
				return err
			}

			response, err := application.client.LatestRates(cmd.Context(), options)
			if err != nil {
				return err
			}
			return writeJSON(cmd, models.FromRates(response))
		},
	}
	addRatesFlags(cmd)
	return cmd
}

func newHistoricalCommand(application *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "historical DATE [DATE...]",
		Short: "Show end-of-day rates for one or more dates (YYYY-MM-DD)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dates := make([]time.Time, len(args))
			for i, arg := range args {
				date, err := time.Parse("2006-01-02", arg)
				if err != nil {
					return fmt.Errorf("date %q must be formatted as YYYY-MM-DD", arg)
				}
				dates[i] = date
			}
			options, err := ratesOptions(cmd)
			if err != nil {
				return err
			}

			entries := make([]models.HistoricalEntry, len(dates))
			group, ctx := errgroup.WithContext(cmd.Context())
			group.SetLimit(maxConcurrentHistorical)
			for i, date := range dates {
				i, date := i, date
				group.Go(func() error {
					response, err := application.client.HistoricalRates(ctx, date, options)
					if err != nil {
						return fmt.Errorf("%s: %w", args[i], err)
					}
					entries[i] = models.HistoricalEntry{Date: args[i], Rates: models.FromRates(response)}
					return nil
				})
			}
			if err := group.Wait(); err != nil {
				return err
			}

			if len(entries) == 1 {
				return writeJSON(cmd, entries[0].Rates)
			}
			return writeJSON(cmd, entries)
		},
	}
	addRatesFlags(cmd)
	return cmd
}

func newCurrenciesCommand(application *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currencies",
		Short: "List currency codes and names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var options openexchangerates.CurrenciesOptions
			var err error
			if options.PrettyPrint, err = optionalBool(cmd, "prettyprint"); err != nil {
				return err
			}
			if options.ShowAlternative, err = optionalBool(cmd, "alternative"); err != nil {
				return err
			}
			if options.ShowInactive, err = optionalBool(cmd, "inactive"); err != nil {
				return err
			}

			currencies, err := application.client.Currencies(cmd.Context(), options)
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]string(currencies))
		},
	}
	cmd.Flags().Bool("alternative", false, "include alternative currencies")
	cmd.Flags().Bool("inactive", false, "include historical, inactive currencies")
	return cmd
}

func newUsageCommand(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show plan and quota usage for the app id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prettyPrint, err := optionalBool(cmd, "prettyprint")
			if err != nil {
				return err
			}

			usage, err := application.client.Usage(cmd.Context(), openexchangerates.UsageOptions{PrettyPrint: prettyPrint})
			if err != nil {
				return err
			}
			return writeJSON(cmd, models.FromUsage(usage))
		},
	}
}

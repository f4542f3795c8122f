package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	applog "github.com/earnscope/earnscope/internal/log"
)

const (
	appName = "earnscope"
	version = "v1.3.0"
)

func main() {
	// Local development keeps secrets in .env; production injects real
	// environment variables and has no file.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Options-flow directional scoring around earnings events",
		Version: version,
		Long: `earnscope scores the option chains of companies reporting earnings and
emits a directional call (CALL/PUT/PASS) with conviction and a suggested
trade structure. Three phases cover the event lifecycle: the post-close
batch, the pre-market open-interest update, and the intraday nowcast.`,
	}
	addCommonFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newPhaseCmd("postclose", "Run the nightly post-close scoring batch"),
		newPhaseCmd("premarket", "Run the pre-market open-interest update"),
		newPhaseCmd("intraday", "Run one intraday nowcast cycle"),
		newCalendarCmd(),
		newServeCmd(),
		newScheduleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("config", "config/config.yaml", "Path to the application config file")
	flags.String("log-level", "", "Override the configured log level")
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newPhaseCmd builds a one-shot phase runner.
func newPhaseCmd(name, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext()
			defer cancel()

			now := time.Now()
			switch name {
			case "postclose":
				_, err = app.Pipeline.PostClose(ctx, now)
			case "premarket":
				if raw, _ := cmd.Flags().GetString("trade-date"); raw != "" {
					tradeDate, perr := time.Parse("2006-01-02", raw)
					if perr != nil {
						return fmt.Errorf("invalid --trade-date %q, want YYYY-MM-DD: %w", raw, perr)
					}
					_, err = app.Pipeline.PreMarketFor(ctx, now, tradeDate)
				} else {
					_, err = app.Pipeline.PreMarket(ctx, now)
				}
			case "intraday":
				_, err = app.Pipeline.Intraday(ctx, now)
			}
			return err
		},
	}
	if name == "premarket" {
		cmd.Flags().String("trade-date", "", "Trade date to refresh (YYYY-MM-DD), default previous weekday")
	}
	return cmd
}

// newCalendarCmd ingests the earnings calendar for the coming days.
func newCalendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Fetch and store the upcoming earnings calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetInt("days")

			app, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext()
			defer cancel()
			return app.IngestCalendar(ctx, days)
		},
	}
	cmd.Flags().Int("days", 7, "Days of calendar to fetch")
	return cmd
}

// newServeCmd runs the HTTP API.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the score API, websocket stream, and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext()
			defer cancel()
			return app.Server.Run(ctx)
		},
	}
}

// newScheduleCmd runs the cron-driven scheduler, with the API alongside it
// so the intraday stream has subscribers somewhere to land.
func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run all phases on their configured schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := bootstrap(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := signalContext()
			defer cancel()

			go func() {
				if err := app.Server.Run(ctx); err != nil && ctx.Err() == nil {
					lg := applog.Logger()
				lg.Error().Err(err).Msg("api server stopped")
					cancel()
				}
			}()
			return app.Scheduler.Start(ctx)
		},
	}
}

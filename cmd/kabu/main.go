package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kabu/internal/app"
	"github.com/ternarybob/kabu/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	codeFlag     = flag.String("code", "", "Security code to analyze (4 or 5 digits); overrides the watchlist")
	outFlag      = flag.String("out", "", "Output directory for reports (overrides config)")
	dateFlag     = flag.String("date", "", "Analysis date as YYYY-MM-DD (default: last trading day)")
	scheduleFlag = flag.Bool("schedule", false, "Run the watchlist on the configured cron schedule")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Kabu version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Credentials may live in a .env alongside the binary
	_ = godotenv.Load()

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("kabu.toml"); err == nil {
			configFiles = append(configFiles, "kabu.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *outFlag, *scheduleFlag)

	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetFullVersion())

	date, err := resolveDate(*dateFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid -date value")
	}

	application, err := app.New(config, logger, date)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *codeFlag != "":
		path, err := application.RunSingle(ctx, *codeFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("Report generation failed")
		}
		fmt.Printf("Report written to %s\n", path)

	case config.Schedule.Enabled:
		runScheduled(ctx, application)

	default:
		path, err := application.RunWatchlist(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Watchlist report generation failed")
		}
		fmt.Printf("Report written to %s\n", path)
	}
}

// runScheduled keeps the process alive, regenerating the watchlist
// report on the configured cron schedule until interrupted. Each fire
// rebuilds the pipeline so a run picks up its own trading day.
func runScheduled(ctx context.Context, application *app.App) {
	err := application.Scheduler.Start(config.Schedule.Cron, func() error {
		date := common.LastTradingDay(common.TodayJST(), nil)
		run, err := app.New(config, logger, date)
		if err != nil {
			return err
		}
		_, err = run.RunWatchlist(ctx)
		return err
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	application.Scheduler.Stop()
}

// resolveDate parses the -date flag, defaulting to the most recent
// trading day in JST.
func resolveDate(value string) (time.Time, error) {
	if value == "" {
		return common.LastTradingDay(common.TodayJST(), nil), nil
	}
	date, err := time.ParseInLocation("2006-01-02", value, common.JST)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return date, nil
}

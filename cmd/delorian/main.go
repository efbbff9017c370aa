package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Delorian/internal/collector"
	"Delorian/internal/config"
	"Delorian/internal/model"
	"Delorian/internal/notifier"
	"Delorian/internal/optimizer"
	"Delorian/internal/runner"
	"Delorian/internal/scheduler"
	"Delorian/internal/simulator"
	"Delorian/internal/store"
)

type flags struct {
	symbol   string
	interval string
	start    string
	end      string
	cash     float64
	serve    bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.symbol, "symbol", "", "ticker to backtest (default from config, BTC-USD)")
	flag.StringVar(&f.interval, "interval", "", "bar interval: 1h or 1d")
	flag.StringVar(&f.start, "start", "", "start date YYYY-MM-DD")
	flag.StringVar(&f.end, "end", "", "end date YYYY-MM-DD (exclusive)")
	flag.Float64Var(&f.cash, "cash", 0, "initial cash")
	flag.BoolVar(&f.serve, "serve", false, "run on the cron schedule and answer Telegram commands")
	flag.Parse()
	return f
}

func (f flags) apply(cfg *config.Config) {
	if f.symbol != "" {
		cfg.Run.Symbol = f.symbol
	}
	if f.interval != "" {
		cfg.Run.Interval = f.interval
	}
	if f.start != "" {
		cfg.Run.StartDate = f.start
	}
	if f.end != "" {
		cfg.Run.EndDate = f.end
	}
	if f.cash > 0 {
		cfg.Run.InitialCash = f.cash
	}
	cfg.Serve = f.serve
}

// setupLogging configures the global logger. Component loggers derive from
// it, so it runs before anything is constructed.
func setupLogging(logLevel string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

func main() {
	if err := run(parseFlags()); err != nil {
		log.Error().Err(err).Msg("delorian failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	f.apply(cfg)
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case config.ProviderREST:
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case config.ProviderMock:
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")

	// Init bar cache
	bars := openStore(cfg)
	defer bars.Close()
	fetcher = collector.NewCachingFetcher(fetcher, bars)

	opt := optimizer.New(cfg.ExitGrid(), simulator.NewEngine(), cfg.Run.InitialCash, cfg.Parallel())
	r := runner.New(collector.NewCollector(fetcher), cfg.Params(), opt)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Serve {
		report, err := r.Run(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(notifier.FormatReportText(report))
		fmt.Println(notifier.FormatGridText(report))
		return nil
	}
	return serve(ctx, cfg, r, req)
}

func serve(ctx context.Context, cfg *config.Config, r *runner.Runner, req model.Request) error {
	tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(ctx, r, tn, req)
	if err := sched.Register(cfg.Schedule.RunCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running backtest now")
		go sched.RunNow()
	}

	log.Info().Str("cron", cfg.Schedule.RunCron).Str("request", req.String()).Msg("Delorian is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

// openStore picks the bar cache: PostgreSQL when a DSN is set, else SQLite,
// else none. Cache failures never stop a run.
func openStore(cfg *config.Config) store.BarStore {
	if cfg.DataSource.Provider == config.ProviderMock {
		return store.NewNoopStore()
	}
	if cfg.Database.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(cfg.Database.PostgresDSN)
		if err == nil {
			return pg
		}
		log.Warn().Err(err).Msg("init postgres store failed, trying sqlite")
	}
	if cfg.Database.SQLitePath == "" {
		return store.NewNoopStore()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		log.Warn().Err(err).Msg("create data dir failed, cache disabled")
		return store.NewNoopStore()
	}
	sq, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite store failed, cache disabled")
		return store.NewNoopStore()
	}
	return sq
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"AgentTreasury/internal/access"
	"AgentTreasury/internal/api"
	"AgentTreasury/internal/config"
	"AgentTreasury/internal/custody"
	"AgentTreasury/internal/events"
	"AgentTreasury/internal/metrics"
	"AgentTreasury/internal/model"
	"AgentTreasury/internal/notifier"
	"AgentTreasury/internal/recorder"
	"AgentTreasury/internal/reputation"
	"AgentTreasury/internal/scheduler"
	"AgentTreasury/internal/store"
	"AgentTreasury/internal/treasury"
)

var snapshotOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the treasury service",
	Long: `Restores the treasury from its state file (or starts empty) and runs
until SIGINT or SIGTERM:
  - the HTTP API, when api.listen is set
  - the event bus feeding the state file, SQLite journal, metrics and Telegram
  - Telegram command polling, when telegram is configured
  - the cron snapshot and daily summary jobs`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&snapshotOnStart, "snapshot-on-start", false, "record a journal snapshot immediately")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()
	log.Info("treasury starting", zap.String("config", configPath), zap.String("asset", cfg.Treasury.Asset))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := openRecorder(cfg, log)
	defer rec.Close()

	rep, err := loadReputation(cfg, log)
	if err != nil {
		return err
	}

	bus := events.NewBus(1024, log)
	met := metrics.New(nil)
	vault := custody.NewVault()

	t, err := openTreasury(cfg, log, treasury.Options{
		Custody:    vault,
		Reputation: rep,
		Publisher:  bus,
		Observer:   met,
		Logger:     log,
	}, vault)
	if err != nil {
		return err
	}
	met.WatchLedger(t)

	for who, amount := range cfg.Treasury.Genesis {
		vault.Fund(model.Address(who), decimal.RequireFromString(amount))
	}

	persister := store.NewPersister(cfg.Treasury.StateFile, t, log)
	bus.Subscribe("store", persister.Handle)
	bus.Subscribe("recorder", recorder.Handler(rec, log))
	bus.Subscribe("metrics", met.HandleEvent)

	// Telegram delivery runs behind its own bus. Alerts are dropped while
	// its buffer is full.
	var (
		tn     *notifier.TelegramNotifier
		alerts *events.Bus
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBaseURL, cfg.Proxy, log)
		alerts = events.NewBus(256, log.Named("telegram"))
		alerts.Subscribe("telegram", tn.EventHandler(ctx))
		bus.Subscribe("telegram", alerts.Relay())
	}

	sched := scheduler.NewScheduler(ctx, t, rec, log)
	sched.State = persister
	if tn != nil {
		sched.Notifier = tn
	}
	if err := sched.RegisterAll(cfg.Schedule.SnapshotCron, cfg.Schedule.DailyCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()
	if snapshotOnStart {
		go sched.RunSnapshotNow()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bus.Run(gctx) })
	if alerts != nil {
		g.Go(func() error { return alerts.Run(gctx) })
	}

	if cfg.API.Listen != "" {
		srv, err := api.New(api.Options{
			Treasury: t,
			Recorder: rec,
			Tokens:   api.NewTokens(cfg.API.JWTSecret),
			Limiter:  api.NewRateLimiter(cfg.API.RatePerSecond, cfg.API.Burst, log),
			Metrics:  met,
			Logger:   log,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.API.Listen) })
	}
	if tn != nil {
		g.Go(func() error { return tn.StartPolling(gctx, notifier.NewCommandHandler(t, log)) })
		log.Info("telegram polling started")
	}

	log.Info("treasury is running", zap.Uint64("seq", t.Snapshot().Seq))
	err = g.Wait()

	log.Info("shutting down")
	if ferr := persister.Flush(); ferr != nil {
		log.Error("final state save failed", zap.Error(ferr))
	}
	return err
}

func openRecorder(cfg *config.Config, log *zap.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return sr
}

// loadReputation prefers the registry API and falls back to the score file.
func loadReputation(cfg *config.Config, log *zap.Logger) (reputation.Source, error) {
	var local reputation.Source = reputation.NewStatic(nil)
	if cfg.Reputation.File != "" {
		src, err := reputation.LoadFile(cfg.Reputation.File)
		if err != nil {
			return nil, fmt.Errorf("load reputation: %w", err)
		}
		local = src
	}
	if cfg.Reputation.URL == "" {
		return local, nil
	}
	log.Info("reputation registry", zap.String("url", cfg.Reputation.URL))
	return &reputation.Fallback{
		Primary:   reputation.NewHTTPSource(cfg.Reputation.URL, cfg.Reputation.APIKey, cfg.Proxy),
		Secondary: local,
		Log:       log,
	}, nil
}

// openTreasury restores the persisted treasury, or creates an empty one with
// the configured roles. Restored assets are credited back to the vault pool.
func openTreasury(cfg *config.Config, log *zap.Logger, opts treasury.Options, vault *custody.Vault) (*treasury.Treasury, error) {
	floor, err := cfg.MinFirstDeposit()
	if err != nil {
		return nil, err
	}
	opts.MinFirstDeposit = floor

	st, ok, err := store.LoadState(cfg.Treasury.StateFile)
	if err != nil {
		return nil, err
	}
	if ok {
		t, err := treasury.Restore(st, opts)
		if err != nil {
			return nil, fmt.Errorf("restore state: %w", err)
		}
		vault.FundPool(st.TotalAssets)
		if st.Admin.String() != cfg.Treasury.Admin || st.Governance.String() != cfg.Treasury.Governance {
			log.Warn("persisted roles differ from config, keeping persisted roles",
				zap.String("admin", st.Admin.String()),
				zap.String("governance", st.Governance.String()))
		}
		log.Info("treasury restored",
			zap.String("state_file", cfg.Treasury.StateFile),
			zap.Uint64("seq", st.Seq),
			zap.Int("investors", len(st.Investors)),
			zap.Int("agents", len(st.Agents)))
		return t, nil
	}

	policy, err := access.NewPolicy(model.Address(cfg.Treasury.Admin), model.Address(cfg.Treasury.Governance))
	if err != nil {
		return nil, err
	}
	t, err := treasury.New(policy, opts)
	if err != nil {
		return nil, err
	}
	log.Info("treasury created", zap.String("state_file", cfg.Treasury.StateFile))
	return t, nil
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"reportbot/internal/adapters/telegram"
	"reportbot/internal/config"
	"reportbot/internal/content"
	"reportbot/internal/dialog"
	"reportbot/internal/notify"
	"reportbot/internal/reports"
	"reportbot/internal/schedule"
	"reportbot/internal/storage"
	kit "reportbot/internal/transport"
	"reportbot/pkg/logx"
)

// App assembles the bot: config, logging, transport, content registry,
// scheduler, notification store, dialog controller, storage and the
// maintenance cron. Run blocks until the context is cancelled.
type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	adapter *telegram.Adapter
	store   storage.Store
	sched   *schedule.Scheduler
	notifs  *notify.Store
	ctrl    *dialog.Controller

	updates    chan kit.Update
	dispatcher *dispatcher
	maint      *maintenance
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pollTimeout, err := config.ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logx.Nop())
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	logSvc, log := logx.New(logxConfig(cfg.Logging), adapter)
	if chatID := parseChatID(cfg.Telegram.GroupLog); chatID != 0 {
		logSvc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
	}
	adapter.SetLogger(log.With(logx.String("comp", "telegram")))
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	tick, err := config.ParseDuration("scheduler.tick", cfg.Scheduler.Tick, 30*time.Second)
	if err != nil {
		return nil, err
	}
	busyTimeout, err := config.ParseDuration("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	reg, err := buildRegistry(cfg, log)
	if err != nil {
		return nil, err
	}

	sched := schedule.New(schedule.Config{
		Tick:    tick,
		Workers: cfg.Scheduler.Workers,
	}, schedule.SystemClock(), log.With(logx.String("comp", "sched")))

	// The store delivers through the controller, which is built after
	// the store; break the cycle with a late-bound pointer.
	var ctrl *dialog.Controller
	notifs := notify.NewStore(sched, func(ctx context.Context, chatID int64, category string) error {
		return ctrl.DeliverSnapshot(ctx, chatID, category)
	}, log.With(logx.String("comp", "notify")))

	ctrl = dialog.New(reg, notifs, store, adapter, adapter,
		schedule.SystemClock(), log.With(logx.String("comp", "dialog")))

	a := &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log.With(logx.String("comp", "app")),
		adapter: adapter,
		store:   store,
		sched:   sched,
		notifs:  notifs,
		ctrl:    ctrl,
		updates: make(chan kit.Update, 256),
	}
	a.dispatcher = newDispatcher(ctrl, log.With(logx.String("comp", "dispatch")))
	a.maint, err = newMaintenance(cfg.Maintenance, ctrl, store, log.With(logx.String("comp", "maint")))
	if err != nil {
		return nil, err
	}

	mgr.SetValidator(a.validateReload)
	return a, nil
}

// Run starts everything, restores persisted chats, and blocks until ctx
// is cancelled, then shuts down in reverse order.
func (a *App) Run(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}

	a.sched.Start(ctx)
	a.dispatcher.start(ctx, a.updates)
	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return fmt.Errorf("telegram start: %w", err)
	}
	a.maint.start()

	if err := a.adapter.UpdateMenuCommands(ctx, menuCommands()); err != nil {
		a.log.Warn("command menu update failed", logx.Err(err))
	}

	go a.watchConfig(ctx)
	go a.watchdog(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("bot running")

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.maint.stop()
	if err := a.adapter.Stop(stopCtx); err != nil {
		a.log.Warn("telegram stop", logx.Err(err))
	}
	a.dispatcher.stop()
	a.sched.Stop(stopCtx)
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close", logx.Err(err))
	}
	a.logSvc.Close()
	return nil
}

// restore reloads every persisted chat: dialog position first, then the
// notification schedules, so nothing fires before the controller can
// deliver.
func (a *App) restore(ctx context.Context) error {
	recs, err := a.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	chats, jobs := 0, 0
	for chatID, rec := range recs {
		a.ctrl.Seed(chatID, rec)
		jobs += a.notifs.Restore(chatID, dialog.SavedFromRecord(rec))
		chats++
	}
	if chats > 0 {
		a.log.Info("chats restored",
			logx.Int("chats", chats),
			logx.Int("notifications", jobs))
	}
	return nil
}

func (a *App) watchConfig(ctx context.Context) {
	sub := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(sub)

	go func() {
		if err := a.cfgMgr.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-sub:
			// Only the logging block is hot-swappable; the rest takes
			// effect on restart.
			a.logSvc.Apply(logxConfig(cfg.Logging))
			if chatID := parseChatID(cfg.Telegram.GroupLog); chatID != 0 {
				a.logSvc.SetTelegramTarget(chatID, cfg.Logging.Telegram.ThreadID)
			}
			a.log.Info("config reloaded")
		}
	}
}

func (a *App) validateReload(ctx context.Context, cfg *config.Config) error {
	if _, err := config.ParseDuration("telegram.poll_timeout", cfg.Telegram.PollTimeout, 0); err != nil {
		return err
	}
	if _, err := config.ParseDuration("scheduler.tick", cfg.Scheduler.Tick, 0); err != nil {
		return err
	}
	if _, err := config.ParseDuration("maintenance.stale_dialog_after", cfg.Maintenance.StaleDialogAfter, 0); err != nil {
		return err
	}
	return nil
}

// watchdog keeps systemd's watchdog fed at half the configured interval.
func (a *App) watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

func buildRegistry(cfg *config.Config, log logx.Logger) (*content.Registry, error) {
	httpTimeout, err := config.ParseDuration("reports.http_timeout", cfg.Reports.HTTPTimeout, 15*time.Second)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: httpTimeout}
	chartsDir := cfg.Reports.ChartsDir
	if chartsDir == "" {
		chartsDir = os.TempDir()
	}

	reg := content.NewRegistry()
	if cfg.Reports.Market.Enabled {
		m := reports.NewMarket(hc, cfg.Reports.Market.BaseURL, chartsDir,
			log.With(logx.String("comp", "market")))
		if err := reg.Register("market", m); err != nil {
			return nil, err
		}
	}
	if cfg.Reports.Lightning.Enabled {
		l := reports.NewLightning(hc, cfg.Reports.Lightning.BaseURL, chartsDir,
			log.With(logx.String("comp", "lightning")))
		if err := reg.Register("lightning", l); err != nil {
			return nil, err
		}
	}
	if cfg.Reports.Network.Enabled {
		n := reports.NewNetwork(log.With(logx.String("comp", "network")))
		if err := reg.Register("network", n); err != nil {
			return nil, err
		}
	}
	if len(reg.Names()) == 0 {
		return nil, fmt.Errorf("reports: no categories enabled")
	}
	return reg, nil
}

func menuCommands() []kit.BotCommand {
	return []kit.BotCommand{
		{Command: "explore", Description: "Browse current report charts"},
		{Command: "history", Description: "Price history over a period"},
		{Command: "notifications", Description: "Schedule recurring deliveries"},
		{Command: "cancel", Description: "Abort the current dialog"},
		{Command: "help", Description: "What this bot can do"},
	}
}

func logxConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			ThreadID:   c.Telegram.ThreadID,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}

func parseChatID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

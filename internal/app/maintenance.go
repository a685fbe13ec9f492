package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"reportbot/internal/config"
	"reportbot/internal/dialog"
	"reportbot/internal/storage"
	"reportbot/pkg/logx"
)

// maintenance runs the housekeeping jobs on a UTC cron: abandoned
// dialogs are folded back to idle nightly, and the storage backend gets
// a periodic compaction pass.
type maintenance struct {
	cron *cron.Cron
	log  logx.Logger
}

func newMaintenance(cfg config.MaintenanceConfig, ctrl *dialog.Controller,
	store storage.Store, log logx.Logger) (*maintenance, error) {

	staleAfter, err := config.ParseDuration("maintenance.stale_dialog_after",
		cfg.StaleDialogAfter, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	resetSpec := cfg.ResetSpec
	if resetSpec == "" {
		resetSpec = "30 3 * * *"
	}
	compactSpec := cfg.CompactSpec
	if compactSpec == "" {
		compactSpec = "0 4 * * *"
	}

	c := cron.New(cron.WithLocation(time.UTC))
	m := &maintenance{cron: c, log: log}

	if _, err := c.AddFunc(resetSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		ctrl.ResetStale(ctx, staleAfter)
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(compactSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := store.Compact(ctx); err != nil {
			log.Warn("storage compact failed", logx.Err(err))
		} else {
			log.Debug("storage compacted")
		}
	}); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *maintenance) start() {
	m.cron.Start()
	m.log.Debug("maintenance cron started")
}

func (m *maintenance) stop() {
	ctx := m.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		m.log.Warn("maintenance jobs still running at shutdown")
	}
}

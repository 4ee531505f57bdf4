package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/presencehq/presence-backend-go/internal/domain/attendance"
	"github.com/presencehq/presence-backend-go/internal/domain/entity"
	"github.com/presencehq/presence-backend-go/internal/pkg/database"
)

// SweepJobs wires the expiry sweeper to the scheduler: every run it walks all
// tenants and force-checks-out sessions whose expected check-out time lies
// further in the past than the configured grace window.
type SweepJobs struct {
	sessions attendance.SessionService
	entities *entity.Registry
	settings attendance.SettingsProvider
	db       *database.DB
}

func NewSweepJobs(
	sessions attendance.SessionService,
	entities *entity.Registry,
	settings attendance.SettingsProvider,
	db *database.DB,
) *SweepJobs {
	return &SweepJobs{
		sessions: sessions,
		entities: entities,
		settings: settings,
		db:       db,
	}
}

func (j *SweepJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("expire_stale_sessions", 1*time.Hour, j.ExpireStaleSessions)
}

// ExpireStaleSessions sweeps every tenant and entity type with auto-checkout
// enabled. Failures per entity are reported by the sweeper itself; a failing
// tenant never stops the rest of the batch.
func (j *SweepJobs) ExpireStaleSessions(ctx context.Context) error {
	tenants, err := j.distinctTenants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}
	if len(tenants) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sweptTotal := 0
	failedTotal := 0

	for _, tenantID := range tenants {
		for _, entityType := range j.entities.Types() {
			cfg := j.settings(entityType)
			if !cfg.AutoCheckout {
				continue
			}

			summary, err := j.sessions.SweepExpired(ctx, attendance.SweepRequest{
				TenantID:    tenantID,
				Cutoff:      now.Add(-cfg.AutoCheckoutAfter),
				EntityTypes: []string{entityType},
			})
			if err != nil {
				slog.Error("Cron: sweep failed",
					"tenant_id", tenantID,
					"entity_type", entityType,
					"error", err)
				continue
			}

			sweptTotal += summary.SweptCount
			failedTotal += len(summary.Failures)
			for _, failure := range summary.Failures {
				slog.Warn("Cron: could not auto check-out session",
					"tenant_id", tenantID,
					"entity_type", failure.EntityType,
					"entity_id", failure.EntityID,
					"reason", failure.Reason)
			}
		}
	}

	slog.Info("Cron: expired stale sessions", "swept", sweptTotal, "failed", failedTotal)
	return nil
}

func (j *SweepJobs) distinctTenants(ctx context.Context) ([]string, error) {
	rows, err := j.db.Pool.Query(ctx, `SELECT DISTINCT tenant_id FROM entities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			continue
		}
		tenants = append(tenants, tenantID)
	}
	return tenants, rows.Err()
}

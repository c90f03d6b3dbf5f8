// Package syncer keeps the organization users cache warm by refreshing it
// on a schedule, so interactive requests rarely pay the upstream round trip.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/grafops/grafana-console/pkg/cache"
	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/observability"
)

// DefaultSchedule refreshes every five minutes
const DefaultSchedule = "*/5 * * * *"

// runTimeout bounds one full refresh sweep
const runTimeout = 2 * time.Minute

// OrgLister enumerates the organizations to keep warm
type OrgLister interface {
	ListOrgs(ctx context.Context) ([]grafana.Org, error)
}

// Syncer runs the periodic refresh job
type Syncer struct {
	schedule string
	orgs     OrgLister
	cache    cache.OrgUsersCache
	logger   *observability.Logger
	cron     *cron.Cron
}

// New creates a syncer. An empty schedule falls back to DefaultSchedule.
func New(schedule string, orgs OrgLister, usersCache cache.OrgUsersCache, logger *observability.Logger) *Syncer {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Syncer{
		schedule: schedule,
		orgs:     orgs,
		cache:    usersCache,
		logger:   logger,
	}
}

// Start registers the schedule and begins running. Returns an error for an
// unparsable schedule.
func (s *Syncer) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.runOnce); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("organization sync started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Syncer) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("organization sync stopped")
	}
}

func (s *Syncer) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	s.Sync(ctx)
}

// Sync refreshes the membership cache for every organization. Per-org
// failures are logged and skipped; a failed org list aborts the sweep.
func (s *Syncer) Sync(ctx context.Context) {
	start := time.Now()

	orgs, err := s.orgs.ListOrgs(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("organization sync: failed to list organizations")
		return
	}

	refreshed := 0
	for _, org := range orgs {
		if _, err := s.cache.Refresh(ctx, org.ID); err != nil {
			s.logger.WithError(err).WithField("org_id", org.ID).
				Warn("organization sync: refresh failed, skipping")
			continue
		}
		refreshed++
	}

	s.logger.WithFields(map[string]interface{}{
		"orgs":        len(orgs),
		"refreshed":   refreshed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("organization sync complete")
}

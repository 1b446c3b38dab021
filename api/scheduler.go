/*
scheduler.go - Cycle boundary and reconciliation scheduler

PURPOSE:
  Runs two background jobs on cron specs:
  - Boundary check: resolves the display cycle and logs when it changes or
    when a grace window opens or closes, so operators can see the switch
    that dashboards and approval queues are about to make.
  - Reconciliation: recomputes WeeklySummary rows for the display cycle and
    the cycle containing today, repairing any drift.

DESIGN:
  - robfig/cron in the server's local timezone
  - Holds no request state; every job resolves "now" through the service
  - Jobs can be triggered directly (CheckBoundary, Reconcile) for tests
    and the admin CLI

CONFIGURATION:
  - BoundarySpec:  default "5 0 * * *" (00:05 daily)
  - ReconcileSpec: default "30 2 * * *" (02:30 daily)
  - Enabled:       whether the scheduler starts at all

USAGE:
  scheduler := NewCycleScheduler(svc, cfg.Scheduler, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - generic/period.go: ResolveDisplayCycle
  - generic/service.go: ReconcileSummaries
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/staff-hours/config"
	"github.com/warp/staff-hours/generic"
)

// reconcileTimeout bounds a single reconciliation run.
const reconcileTimeout = 5 * time.Minute

// BoundaryState is the outcome of a boundary check.
type BoundaryState struct {
	Display generic.DisplayCycle
	// Changed is true when the display cycle or grace flag differs from the
	// previous check. The first check always reports a change.
	Changed bool
}

// CycleScheduler runs cycle-related background jobs.
type CycleScheduler struct {
	Service       *generic.RecordService
	Log           logrus.FieldLogger
	BoundarySpec  string
	ReconcileSpec string
	Enabled       bool

	cron *cron.Cron

	mu          sync.Mutex
	lastCycle   string
	lastGrace   bool
	initialized bool
}

// NewCycleScheduler creates a new scheduler.
func NewCycleScheduler(svc *generic.RecordService, cfg config.SchedulerConfig, log logrus.FieldLogger) *CycleScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CycleScheduler{
		Service:       svc,
		Log:           log.WithField("component", "scheduler"),
		BoundarySpec:  cfg.BoundarySpec,
		ReconcileSpec: cfg.ReconcileSpec,
		Enabled:       cfg.Enabled,
		cron:          cron.New(cron.WithLocation(time.Local)),
	}
}

// Start registers the jobs and starts the cron engine. An invalid spec is
// returned as an error and nothing is started.
func (cs *CycleScheduler) Start() error {
	if !cs.Enabled {
		cs.Log.Info("scheduler disabled, not starting")
		return nil
	}

	if _, err := cs.cron.AddFunc(cs.BoundarySpec, func() { cs.CheckBoundary() }); err != nil {
		return fmt.Errorf("boundary job %q: %w", cs.BoundarySpec, err)
	}
	if _, err := cs.cron.AddFunc(cs.ReconcileSpec, cs.runReconcile); err != nil {
		return fmt.Errorf("reconcile job %q: %w", cs.ReconcileSpec, err)
	}

	// Establish the baseline so the first cron run only logs real changes.
	cs.CheckBoundary()
	cs.cron.Start()
	cs.Log.WithFields(logrus.Fields{
		"boundary_spec":  cs.BoundarySpec,
		"reconcile_spec": cs.ReconcileSpec,
	}).Info("scheduler started")
	return nil
}

// Stop stops the cron engine and waits for running jobs.
func (cs *CycleScheduler) Stop() {
	if !cs.Enabled {
		return
	}
	ctx := cs.cron.Stop()
	<-ctx.Done()
	cs.Log.Info("scheduler stopped")
}

// CheckBoundary resolves the display cycle for now and logs transitions.
func (cs *CycleScheduler) CheckBoundary() BoundaryState {
	dc := cs.Service.Calendar.ResolveDisplayCycle(cs.Service.Now())

	cs.mu.Lock()
	defer cs.mu.Unlock()

	key := dc.Cycle.Key()
	changed := !cs.initialized || key != cs.lastCycle || dc.IsGracePeriod != cs.lastGrace
	entry := cs.Log.WithFields(logrus.Fields{
		"cycle":       key,
		"cycle_index": dc.Cycle.Index,
		"grace":       dc.IsGracePeriod,
	})

	switch {
	case !cs.initialized:
		entry.Info("display cycle resolved")
	case dc.IsGracePeriod && !cs.lastGrace:
		entry.WithField("grace_end", dc.GraceEnd.Format(time.RFC3339)).Info("grace period started")
	case !dc.IsGracePeriod && cs.lastGrace:
		entry.Info("grace period ended")
	case key != cs.lastCycle:
		entry.Info("display cycle changed")
	default:
		entry.Debug("display cycle unchanged")
	}

	cs.lastCycle, cs.lastGrace, cs.initialized = key, dc.IsGracePeriod, true
	return BoundaryState{Display: dc, Changed: changed}
}

// Reconcile recomputes summaries for the display cycle and, when different,
// the cycle containing today.
func (cs *CycleScheduler) Reconcile(ctx context.Context) ([]generic.ReconcileResult, error) {
	now := cs.Service.Now()
	cal := cs.Service.Calendar
	cycles := []generic.Cycle{cal.ResolveDisplayCycle(now).Cycle}
	if current := cal.CycleContaining(generic.DateOf(now)); current.Key() != cycles[0].Key() {
		cycles = append(cycles, current)
	}

	results := make([]generic.ReconcileResult, 0, len(cycles))
	for _, c := range cycles {
		res, err := cs.Service.ReconcileSummaries(ctx, c)
		if err != nil {
			return results, fmt.Errorf("reconcile %s: %w", c.Key(), err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (cs *CycleScheduler) runReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	results, err := cs.Reconcile(ctx)
	if err != nil {
		cs.Log.WithError(err).Error("summary reconciliation failed")
		return
	}
	for _, res := range results {
		cs.Log.WithFields(logrus.Fields{
			"cycle":     res.Cycle.Key(),
			"corrected": res.Corrected,
			"removed":   res.Removed,
		}).Info("summary reconciliation finished")
	}
}

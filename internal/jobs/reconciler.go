package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/repository"
)

// abandonedGrace is how long past the session window a date can sit with no
// feedback before the reconciler closes it.
const abandonedGrace = time.Hour

// stalePendingAge marks date requests nobody acted on. They are counted and
// logged for operability; pending requests never auto-expire.
const stalePendingAge = 7 * 24 * time.Hour

// Reconciler runs the periodic sweeps: expire boosts, close abandoned
// sessions, and rebuild the cached match counts from the source-of-truth
// tables. Each run is independent and idempotent.
type Reconciler struct {
	appCtx      *app.AppContext
	dateRepo    *repository.DateRepository
	profileRepo *repository.ProfileRepository
	cron        *cron.Cron

	now func() time.Time
}

func NewReconciler(appCtx *app.AppContext) *Reconciler {
	return &Reconciler{
		appCtx:      appCtx,
		dateRepo:    repository.NewDateRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		cron:        cron.New(),
		now:         time.Now,
	}
}

// Start schedules the sweep on the configured cron spec and begins running.
func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.appCtx.Config.Jobs.ReconcileSpec, func() {
		r.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.appCtx.Logger.Info("reconciler started", "spec", r.appCtx.Config.Jobs.ReconcileSpec)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs one sweep. Exported so tests and the server boot path
// can invoke it directly.
func (r *Reconciler) RunOnce(ctx context.Context) {
	now := r.now()
	log := r.appCtx.Logger

	if n, err := r.profileRepo.ClearExpiredBoosts(ctx, now); err != nil {
		log.Error("boost sweep failed", "err", err)
	} else if n > 0 {
		log.Info("expired boosts cleared", "count", n)
	}

	cutoff := now.Add(-(r.appCtx.Config.Session.Duration + abandonedGrace))
	if n, err := r.dateRepo.CompleteAbandoned(ctx, cutoff); err != nil {
		log.Error("abandoned session sweep failed", "err", err)
	} else if n > 0 {
		log.Info("abandoned sessions completed", "count", n)
	}

	if n, err := r.dateRepo.CountStalePending(ctx, now.Add(-stalePendingAge)); err != nil {
		log.Error("stale pending count failed", "err", err)
	} else if n > 0 {
		log.Warn("stale pending date requests", "count", n, "older_than", stalePendingAge)
	}

	if err := r.profileRepo.RebuildMatchCounts(ctx); err != nil {
		log.Error("match count rebuild failed", "err", err)
	}
}

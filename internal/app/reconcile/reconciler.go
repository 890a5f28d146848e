package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"villabook/internal/app/booking"
	"villabook/internal/domain/reservation"
)

// Promoter swaps a fallback entry for its remote copy.
type Promoter interface {
	PromoteFallback(ctx context.Context, r *reservation.Reservation, remoteID, source string) error
	InFlight(code reservation.Code) bool
}

// Report summarizes one pass over the fallback store.
type Report struct {
	Attempted int      `json:"attempted"`
	Promoted  int      `json:"promoted"`
	Failed    int      `json:"failed"`
	Conflicts []string `json:"conflicts"`
	Skipped   int      `json:"skipped"`
}

// Reconciler retries fallback entries against the remote store.
type Reconciler struct {
	Remote   reservation.RemoteStore
	Fallback reservation.FallbackStore
	Promoter Promoter
	Interval time.Duration
	// AttemptTimeout bounds a single remote create.
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

var ErrNotConfigured = errors.New("reconcile: missing dependencies")

func (r *Reconciler) Run(ctx context.Context) error {
	if err := r.ensureDependencies(); err != nil {
		return err
	}
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() == nil && r.Logger != nil {
					r.Logger.Warn("reconcile pass failed", "error", err)
				}
				continue
			}
			if report.Attempted > 0 && r.Logger != nil {
				r.Logger.Info("reconcile pass finished",
					"attempted", report.Attempted,
					"promoted", report.Promoted,
					"failed", report.Failed,
					"conflicts", len(report.Conflicts))
			}
		}
	}
}

// RunOnce retries every fallback entry once, oldest first. Entries whose
// dates were taken remotely in the meantime stay local for an admin to
// resolve.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	report := Report{Conflicts: []string{}}
	if err := r.ensureDependencies(); err != nil {
		return report, err
	}
	entries, err := r.Fallback.List(ctx)
	if err != nil {
		return report, err
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if r.Promoter.InFlight(entry.ID) {
			report.Skipped++
			continue
		}
		report.Attempted++
		id, err := r.create(ctx, entry)
		switch {
		case err == nil:
			if err := r.Promoter.PromoteFallback(ctx, entry, id, booking.PromotedReconciler); err != nil {
				report.Failed++
				r.warn("promotion failed", entry, err)
				continue
			}
			report.Promoted++
		case errors.Is(err, reservation.ErrAvailabilityConflict), errors.Is(err, booking.ErrCodeTaken):
			report.Conflicts = append(report.Conflicts, string(entry.ID))
			r.warn("fallback reservation needs admin attention", entry, err)
		default:
			report.Failed++
			r.warn("fallback reservation still offline", entry, err)
		}
	}
	return report, nil
}

func (r *Reconciler) create(ctx context.Context, entry *reservation.Reservation) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout())
	defer cancel()
	return booking.StoreRemote(attemptCtx, r.Remote, entry)
}

func (r *Reconciler) warn(msg string, entry *reservation.Reservation, err error) {
	if r.Logger != nil {
		r.Logger.Warn(msg, "code", entry.ID, "local_key", entry.LocalKey, "error", err)
	}
}

func (r *Reconciler) ensureDependencies() error {
	if r.Remote == nil || r.Fallback == nil || r.Promoter == nil {
		return ErrNotConfigured
	}
	return nil
}

func (r *Reconciler) interval() time.Duration {
	if r.Interval <= 0 {
		return 30 * time.Second
	}
	return r.Interval
}

func (r *Reconciler) attemptTimeout() time.Duration {
	if r.AttemptTimeout <= 0 {
		return 5 * time.Second
	}
	return r.AttemptTimeout
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appavailability "villabook/internal/app/availability"
	"villabook/internal/app/commands"
	"villabook/internal/app/outbox"
	"villabook/internal/app/policies"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

const (
	defaultRemoteTimeout     = 5 * time.Second
	defaultBackgroundTimeout = 2 * time.Minute
	defaultNotifyTimeout     = 10 * time.Second
	codeAttempts             = 20

	PromotedLateWrite  = "late-write"
	PromotedReconciler = "reconciler"
)

// RangeChecker answers the write-time availability check.
type RangeChecker interface {
	RangeConflict(ctx context.Context, unit units.UnitID, dr daterange.DateRange, exclude reservation.Code) (*appavailability.Conflict, error)
}

// Snapshot is the local view of reservations already written by anyone.
type Snapshot interface {
	Reservations() ([]*reservation.Reservation, bool)
	Put(r *reservation.Reservation)
}

// Writer persists new reservations. The remote write races RemoteTimeout;
// a failed or late write degrades to the local fallback and the guest gets
// a confirmation either way.
type Writer struct {
	Catalog     *units.Catalog
	Oracle      RangeChecker
	Remote      reservation.RemoteStore
	Fallback    reservation.FallbackStore
	Payments    policies.PaymentsPort
	Notifier    policies.Notifier
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Snapshot    Snapshot
	Broadcaster *appavailability.Broadcaster
	Metrics     policies.BookingMetrics
	Logger      *slog.Logger

	RemoteTimeout     time.Duration
	BackgroundTimeout time.Duration
	NotifyTimeout     time.Duration

	Codes     func() reservation.Code
	LocalKeys func() string
	Now       func() time.Time
	// Location decides which calendar day "today" is.
	Location *time.Location

	wg       sync.WaitGroup
	inflight sync.Map
}

func (w *Writer) Handle(ctx context.Context, cmd CreateReservationCommand) (Result, error) {
	if err := w.ensureDependencies(); err != nil {
		return Result{}, err
	}
	draft, err := cmd.Draft.Validate(w.Catalog)
	if err != nil {
		return Result{}, err
	}
	if err := draft.NotBefore(w.today()); err != nil {
		return Result{}, err
	}

	if w.Oracle != nil {
		conflict, err := w.Oracle.RangeConflict(ctx, draft.Unit.ID, draft.Range, "")
		if err != nil {
			return Result{}, err
		}
		if conflict != nil {
			return Result{}, fmt.Errorf("%w: %s taken on %s", reservation.ErrAvailabilityConflict, conflict.Kind, conflict.Day)
		}
	}

	code, err := w.drawCode(ctx)
	if err != nil {
		return Result{}, err
	}
	if w.Payments != nil {
		if _, err := w.Payments.Charge(ctx, string(code), string(draft.PaymentMethod), draft.Quote.Total); err != nil {
			return Result{}, errors.Join(ErrPayment, err)
		}
	}

	r, err := reservation.New(reservation.CreateParams{ID: code, Draft: draft, CreatedAt: w.now()})
	if err != nil {
		return Result{}, err
	}
	if err := r.BeginRemote(); err != nil {
		return Result{}, err
	}

	// The write outlives the request so a slow remote can still land.
	detached := context.WithoutCancel(ctx)
	if err := w.write(detached, r); err != nil {
		w.metrics().PersistenceFailed()
		return Result{}, err
	}

	w.publish(detached, r)
	w.notify(detached, r, draft.Unit)
	return resultFor(r, draft.Unit.Name), nil
}

type remoteOutcome struct {
	id  string
	err error
}

// write races the remote create against RemoteTimeout. A code another booking
// already holds remotely is redrawn and retried within the same deadline; it
// never reaches the fallback.
func (w *Writer) write(ctx context.Context, r *reservation.Reservation) error {
	deadline := time.NewTimer(w.remoteTimeout())
	defer deadline.Stop()

	var (
		cause   error
		outcome <-chan remoteOutcome
		cancel  context.CancelFunc
		taken   []reservation.Code
	)
	for attempt := 1; cause == nil; attempt++ {
		outcome, cancel = w.startRemote(ctx, r)
		select {
		case res := <-outcome:
			w.inflight.Delete(r.ID)
			switch {
			case res.err == nil:
				if err := r.ConfirmRemote(res.id, w.now()); err != nil {
					return err
				}
				w.metrics().ReservationStored(string(reservation.OriginRemote))
				return nil
			case errors.Is(res.err, reservation.ErrAvailabilityConflict):
				return res.err
			case errors.Is(res.err, ErrCodeTaken):
				if attempt >= codeAttempts {
					return errors.Join(ErrNoFreeCode, res.err)
				}
				taken = append(taken, r.ID)
				code, err := w.drawCode(ctx, taken...)
				if err != nil {
					return err
				}
				if err := r.Rekey(code); err != nil {
					return err
				}
			default:
				cause = res.err
			}
		case <-deadline.C:
			cause = ErrRemoteTimeout
		}
	}

	localErr := w.storeLocal(ctx, r, cause)
	if cause == ErrRemoteTimeout {
		w.wg.Add(1)
		go w.awaitLateWrite(ctx, r.Clone(), outcome, localErr == nil)
	}
	if localErr != nil {
		cancel()
		return &PersistenceError{Remote: cause, Local: localErr}
	}
	w.metrics().ReservationStored(string(reservation.OriginLocalFallback))
	if w.Logger != nil {
		w.Logger.Warn("reservation stored in local fallback", "code", r.ID, "local_key", r.LocalKey, "cause", cause)
	}
	return nil
}

// startRemote runs one remote create for a copy of r. The attempt outlives the
// request deadline up to BackgroundTimeout.
func (w *Writer) startRemote(ctx context.Context, r *reservation.Reservation) (<-chan remoteOutcome, context.CancelFunc) {
	outcome := make(chan remoteOutcome, 1)
	remoteCtx, cancel := context.WithTimeout(ctx, w.backgroundTimeout())
	w.inflight.Store(r.ID, struct{}{})
	w.wg.Add(1)
	go func(candidate *reservation.Reservation) {
		defer w.wg.Done()
		defer cancel()
		id, err := StoreRemote(remoteCtx, w.Remote, candidate)
		outcome <- remoteOutcome{id: id, err: err}
	}(r.Clone())
	return outcome, cancel
}

func (w *Writer) storeLocal(ctx context.Context, r *reservation.Reservation, cause error) error {
	if w.Fallback == nil {
		return errors.New("booking: no fallback store configured")
	}
	if err := r.FallBack(w.localKey(), cause, w.now()); err != nil {
		return err
	}
	return w.Fallback.Put(ctx, r)
}

// awaitLateWrite settles a remote attempt that lost the race. A late success
// promotes the fallback copy, or is undone when the guest was told the
// booking failed.
func (w *Writer) awaitLateWrite(ctx context.Context, local *reservation.Reservation, outcome <-chan remoteOutcome, fallbackStored bool) {
	defer w.wg.Done()
	defer w.inflight.Delete(local.ID)
	res := <-outcome
	switch {
	case errors.Is(res.err, ErrCodeTaken) && fallbackStored:
		w.rekeyFallback(ctx, local)
	case res.err != nil:
		if w.Logger != nil {
			w.Logger.Warn("late remote write failed", "code", local.ID, "error", res.err)
		}
	case !fallbackStored:
		if err := w.Remote.Delete(ctx, res.id); err != nil && w.Logger != nil {
			w.Logger.Error("could not undo remote write after failed booking", "code", local.ID, "remote_id", res.id, "error", err)
		}
	default:
		if err := w.PromoteFallback(ctx, local, res.id, PromotedLateWrite); err != nil && w.Logger != nil {
			w.Logger.Warn("late write promotion failed", "code", local.ID, "error", err)
		}
	}
}

// rekeyFallback moves a fallback entry whose code turned out to be held by
// another remote booking onto a fresh code and tells the guest again.
func (w *Writer) rekeyFallback(ctx context.Context, local *reservation.Reservation) {
	old := local.ID
	code, err := w.drawCode(ctx, old)
	if err == nil {
		err = local.Rekey(code)
	}
	if err == nil {
		err = w.Fallback.Put(ctx, local)
	}
	if err != nil {
		if w.Logger != nil {
			w.Logger.Error("fallback reservation holds a taken code", "code", old, "local_key", local.LocalKey, "error", err)
		}
		return
	}
	if w.Logger != nil {
		w.Logger.Warn("fallback reservation moved to a fresh code", "old_code", old, "code", code, "local_key", local.LocalKey)
	}
	if unit, err := w.Catalog.ByID(local.UnitID); err == nil {
		w.notify(ctx, local, unit)
	}
}

// PromoteFallback replaces the local copy of r with its remote twin.
func (w *Writer) PromoteFallback(ctx context.Context, r *reservation.Reservation, remoteID, source string) error {
	localKey := r.LocalKey
	if err := r.Promote(remoteID, w.now()); err != nil {
		return err
	}
	if err := w.Fallback.Delete(ctx, localKey); err != nil {
		return err
	}
	w.metrics().ReservationPromoted(source)
	if w.Logger != nil {
		w.Logger.Info("fallback reservation promoted", "code", r.ID, "remote_id", remoteID, "source", source)
	}
	w.publish(ctx, r)
	return nil
}

// InFlight reports whether a remote write for code is still running.
func (w *Writer) InFlight(code reservation.Code) bool {
	_, ok := w.inflight.Load(code)
	return ok
}

// Wait blocks until background writes and notifications finish.
func (w *Writer) Wait() {
	w.wg.Wait()
}

func (w *Writer) publish(ctx context.Context, r *reservation.Reservation) {
	if r.Origin == reservation.OriginRemote && w.Snapshot != nil {
		w.Snapshot.Put(r)
	}
	if w.Outbox != nil {
		if err := outbox.RecordDomainEvents(ctx, w.Outbox, w.Encoder, r.Drain()); err != nil && w.Logger != nil {
			w.Logger.Warn("reservation events not recorded", "code", r.ID, "error", err)
		}
	}
	if w.Broadcaster != nil {
		w.Broadcaster.Publish(appavailability.Change{Kind: appavailability.ChangeWritten, UnitID: r.UnitID})
	}
}

func (w *Writer) notify(ctx context.Context, r *reservation.Reservation, unit units.Unit) {
	if w.Notifier == nil {
		return
	}
	n := NotificationFor(r, unit)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		nctx, cancel := context.WithTimeout(ctx, w.notifyTimeout())
		defer cancel()
		if err := w.Notifier.NotifyReservation(nctx, n); err != nil {
			w.metrics().NotificationFailed()
			if w.Logger != nil {
				w.Logger.Warn("confirmation email not sent", "error", &NotificationError{Code: n.ReservationID, Err: err})
			}
		}
	}()
}

// drawCode picks a confirmation code nobody holds in the local view and that
// is not in avoid.
func (w *Writer) drawCode(ctx context.Context, avoid ...reservation.Code) (reservation.Code, error) {
	taken := map[reservation.Code]bool{}
	for _, c := range avoid {
		taken[c] = true
	}
	if w.Snapshot != nil {
		list, _ := w.Snapshot.Reservations()
		for _, r := range list {
			taken[r.ID] = true
		}
	}
	if w.Fallback != nil {
		if list, err := w.Fallback.List(ctx); err == nil {
			for _, r := range list {
				taken[r.ID] = true
			}
		}
	}
	for i := 0; i < codeAttempts; i++ {
		code := w.newCode()
		if !taken[code] {
			return code, nil
		}
	}
	return "", ErrNoFreeCode
}

// StoreRemote creates r remotely. Creating the same booking twice returns
// the id of the first write; a code held by a different booking fails with
// ErrCodeTaken.
func StoreRemote(ctx context.Context, store reservation.RemoteStore, r *reservation.Reservation) (string, error) {
	id, err := store.Create(ctx, r)
	if !errors.Is(err, reservation.ErrAlreadyStored) {
		return id, err
	}
	existing, getErr := store.Get(ctx, id)
	if getErr != nil {
		return "", errors.Join(err, getErr)
	}
	if !sameBooking(existing, r) {
		return "", fmt.Errorf("%w: %s", ErrCodeTaken, r.ID)
	}
	return id, nil
}

func sameBooking(a, b *reservation.Reservation) bool {
	return a.ID == b.ID &&
		a.UnitID == b.UnitID &&
		a.Range == b.Range &&
		strings.EqualFold(a.GuestEmail, b.GuestEmail)
}

func (w *Writer) ensureDependencies() error {
	switch {
	case w.Catalog == nil:
		return errors.New("booking: unit catalog required")
	case w.Remote == nil:
		return errors.New("booking: remote store required")
	default:
		return nil
	}
}

func (w *Writer) metrics() policies.BookingMetrics {
	if w.Metrics == nil {
		return policies.NopMetrics{}
	}
	return w.Metrics
}

func (w *Writer) newCode() reservation.Code {
	if w.Codes != nil {
		return w.Codes()
	}
	return reservation.NewCode()
}

func (w *Writer) localKey() string {
	if w.LocalKeys != nil {
		return w.LocalKeys()
	}
	return "local_" + uuid.NewString()
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Writer) today() daterange.Day {
	now := w.now()
	if w.Location != nil {
		now = now.In(w.Location)
	}
	return daterange.DayOf(now)
}

func (w *Writer) remoteTimeout() time.Duration {
	if w.RemoteTimeout > 0 {
		return w.RemoteTimeout
	}
	return defaultRemoteTimeout
}

func (w *Writer) backgroundTimeout() time.Duration {
	if w.BackgroundTimeout > 0 {
		return w.BackgroundTimeout
	}
	return defaultBackgroundTimeout
}

func (w *Writer) notifyTimeout() time.Duration {
	if w.NotifyTimeout > 0 {
		return w.NotifyTimeout
	}
	return defaultNotifyTimeout
}

var _ commands.Handler[CreateReservationCommand, Result] = (*Writer)(nil)

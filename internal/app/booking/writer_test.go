package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appavailability "villabook/internal/app/availability"
	"villabook/internal/app/commands"
	"villabook/internal/app/middleware"
	"villabook/internal/app/policies"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
	"villabook/internal/infra/storage/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	sent []policies.Notification
}

func (n *recordingNotifier) NotifyReservation(_ context.Context, msg policies.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

type countingMetrics struct {
	remote, local, promoted, persistence, notify atomic.Int32
}

func (m *countingMetrics) ReservationStored(origin string) {
	if origin == string(reservation.OriginRemote) {
		m.remote.Add(1)
		return
	}
	m.local.Add(1)
}
func (m *countingMetrics) ReservationPromoted(string) { m.promoted.Add(1) }
func (m *countingMetrics) PersistenceFailed()         { m.persistence.Add(1) }
func (m *countingMetrics) NotificationFailed()        { m.notify.Add(1) }

type approvingPayments struct{ calls atomic.Int32 }

func (p *approvingPayments) Charge(context.Context, string, string, money.Money) (string, error) {
	p.calls.Add(1)
	return "pay-ok", nil
}

type fixture struct {
	writer   *Writer
	remote   *memory.ReservationStore
	fallback *memory.FallbackStore
	cache    *appavailability.RemoteCache
	oracle   *appavailability.Oracle
	notifier *recordingNotifier
	metrics  *countingMetrics
	payments *approvingPayments
	box      *memory.Outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		remote:   memory.NewReservationStore(),
		fallback: memory.NewFallbackStore(),
		notifier: &recordingNotifier{},
		metrics:  &countingMetrics{},
		payments: &approvingPayments{},
		box:      memory.NewOutbox(),
	}
	f.cache = appavailability.NewRemoteCache(f.remote, nil, nil)
	require.NoError(t, f.cache.Load(context.Background()))
	f.oracle = &appavailability.Oracle{Remote: f.cache, Fallback: f.fallback, Blocks: memory.NewBlockStore()}
	var seq atomic.Int32
	f.writer = &Writer{
		Catalog:       units.DefaultCatalog(),
		Oracle:        f.oracle,
		Remote:        f.remote,
		Fallback:      f.fallback,
		Payments:      f.payments,
		Notifier:      f.notifier,
		Outbox:        f.box,
		Snapshot:      f.cache,
		Metrics:       f.metrics,
		RemoteTimeout: 50 * time.Millisecond,
		Now:           func() time.Time { return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) },
		Codes: func() reservation.Code {
			return reservation.Code(fmt.Sprintf("VM-%d", seq.Add(1)))
		},
	}
	t.Cleanup(f.writer.Wait)
	return f
}

func draft4D(guests int) reservation.Draft {
	return reservation.Draft{
		UnitID:        "4D",
		GuestName:     "Ana Pérez",
		GuestEmail:    "ana@example.com",
		CheckIn:       "2026-01-10",
		CheckOut:      "2026-01-13",
		NumGuests:     guests,
		PaymentMethod: "card",
	}
}

func (f *fixture) isAvailable(t *testing.T, unit, day string) bool {
	t.Helper()
	ok, err := f.oracle.IsAvailable(context.Background(), units.UnitID(unit), daterange.MustDay(day))
	require.NoError(t, err)
	return ok
}

func TestWriter_EndToEnd4D(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.writer.Handle(ctx, CreateReservationCommand{Draft: draft4D(5)})
	var verr *reservation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("numGuests"))
	list, _ := f.remote.List(ctx)
	assert.Empty(t, list)
	assert.Zero(t, f.payments.calls.Load())

	res, err := f.writer.Handle(ctx, CreateReservationCommand{Draft: draft4D(4)})
	require.NoError(t, err)
	assert.Equal(t, "$255.00", res.Total)
	assert.Equal(t, 3, res.Nights)
	assert.Equal(t, "confirmed", res.Status)
	assert.True(t, strings.HasPrefix(res.Code, "VM-"))

	assert.False(t, f.isAvailable(t, "4D", "2026-01-11"))
	assert.True(t, f.isAvailable(t, "4D", "2026-01-13"))

	f.writer.Wait()
	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, "10/1/2026", n.CheckIn)
	assert.Equal(t, "13/1/2026", n.CheckOut)
	assert.Equal(t, "255.00", n.Total)
	assert.Equal(t, "4D", n.VillaNumber)
	assert.Equal(t, res.Code, n.ReservationID)
	assert.Equal(t, int32(1), f.metrics.remote.Load())
	assert.Equal(t, 1, f.box.Pending())
}

func TestWriter_TransferIsPending(t *testing.T) {
	f := newFixture(t)
	d := draft4D(2)
	d.PaymentMethod = "transfer"
	res, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: d})
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)
	assert.False(t, f.isAvailable(t, "4D", "2026-01-12"))
}

func TestWriter_RejectsOverlapButAllowsAdjacent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.writer.Handle(ctx, CreateReservationCommand{Draft: draft4D(2)})
	require.NoError(t, err)

	overlap := draft4D(2)
	overlap.CheckIn, overlap.CheckOut = "2026-01-12", "2026-01-14"
	_, err = f.writer.Handle(ctx, CreateReservationCommand{Draft: overlap})
	assert.ErrorIs(t, err, reservation.ErrAvailabilityConflict)

	adjacent := draft4D(2)
	adjacent.CheckIn, adjacent.CheckOut = "2026-01-13", "2026-01-15"
	_, err = f.writer.Handle(ctx, CreateReservationCommand{Draft: adjacent})
	require.NoError(t, err)

	list, _ := f.remote.List(ctx)
	assert.Len(t, list, 2)
}

func TestWriter_ConcurrentSameRangeFirstWriteWins(t *testing.T) {
	f := newFixture(t)
	f.writer.Oracle = nil // every writer sees a free calendar

	const n = 10
	var wg sync.WaitGroup
	var ok, conflicts atomic.Int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := draft4D(2)
			d.GuestEmail = fmt.Sprintf("guest%d@example.com", i)
			_, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: d})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, reservation.ErrAvailabilityConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
	list, _ := f.remote.List(context.Background())
	assert.Len(t, list, 1)
	local, _ := f.fallback.List(context.Background())
	assert.Empty(t, local)
}

func TestWriter_RemoteFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.remote.SetFailure(errors.New("firestore unavailable"))

	res, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: draft4D(3)})
	require.NoError(t, err)
	assert.Equal(t, "$255.00", res.Total)

	local, err := f.fallback.List(context.Background())
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, reservation.OriginLocalFallback, local[0].Origin)
	assert.Equal(t, reservation.SyncLocalFallback, local[0].Sync)
	assert.True(t, strings.HasPrefix(local[0].LocalKey, "local_"))
	assert.Empty(t, local[0].RemoteID)
	assert.Equal(t, int32(1), f.metrics.local.Load())

	assert.False(t, f.isAvailable(t, "4D", "2026-01-11"), "fallback entries hold their dates")
}

func TestWriter_LateRemoteWriteIsPromoted(t *testing.T) {
	f := newFixture(t)
	f.remote.SetLatency(150 * time.Millisecond)

	res, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: draft4D(2)})
	require.NoError(t, err)
	local, _ := f.fallback.List(context.Background())
	require.Len(t, local, 1)
	assert.True(t, f.writer.InFlight(reservation.Code(res.Code)))

	f.writer.Wait()
	assert.False(t, f.writer.InFlight(reservation.Code(res.Code)))
	local, _ = f.fallback.List(context.Background())
	assert.Empty(t, local)
	f.remote.SetLatency(0)
	list, _ := f.remote.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, reservation.Code(res.Code), list[0].ID)
	assert.Equal(t, int32(1), f.metrics.promoted.Load())
}

func TestWriter_BothStoresFailing(t *testing.T) {
	f := newFixture(t)
	f.remote.SetFailure(errors.New("remote down"))
	f.fallback.SetFailure(errors.New("quota exceeded"))

	_, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: draft4D(2)})
	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.EqualError(t, perr.Remote, "remote down")
	assert.EqualError(t, perr.Local, "quota exceeded")
	assert.Equal(t, int32(1), f.metrics.persistence.Load())

	f.writer.Wait()
	assert.Empty(t, f.notifier.sent)
}

func TestWriter_LateWriteUndoneWhenBookingFailed(t *testing.T) {
	f := newFixture(t)
	f.remote.SetLatency(100 * time.Millisecond)
	f.fallback.SetFailure(errors.New("disk full"))
	f.writer.BackgroundTimeout = time.Second

	_, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: draft4D(2)})
	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, ErrRemoteTimeout)

	f.writer.Wait()
	f.remote.SetLatency(0)
	list, _ := f.remote.List(context.Background())
	assert.Empty(t, list)
}

func TestWriter_NotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("relay unreachable")

	_, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: draft4D(2)})
	require.NoError(t, err)
	f.writer.Wait()
	assert.Equal(t, int32(1), f.metrics.notify.Load())
}

func TestStoreRemote_IdempotentByCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vd, err := draft4D(2).Validate(units.DefaultCatalog())
	require.NoError(t, err)
	r, _ := reservation.New(reservation.CreateParams{ID: "VM-7", Draft: vd, CreatedAt: time.Now()})

	first, err := StoreRemote(ctx, f.remote, r)
	require.NoError(t, err)
	again, err := StoreRemote(ctx, f.remote, r)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	other := draft4D(2)
	other.UnitID, other.GuestEmail = "5E", "luis@example.com"
	vd2, err := other.Validate(units.DefaultCatalog())
	require.NoError(t, err)
	clash, _ := reservation.New(reservation.CreateParams{ID: "VM-7", Draft: vd2, CreatedAt: time.Now()})
	_, err = StoreRemote(ctx, f.remote, clash)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestWriter_DuplicateSubmissionThroughBus(t *testing.T) {
	f := newFixture(t)
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[CreateReservationCommand, Result](bus, CreateReservationKey, f.writer)
	chained := middleware.ChainCommands(bus, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil))

	cmd := CreateReservationCommand{Draft: draft4D(2), IdemKey: "submit-1"}
	first, err := commands.Dispatch[CreateReservationCommand, Result](context.Background(), chained, cmd)
	require.NoError(t, err)
	second, err := commands.Dispatch[CreateReservationCommand, Result](context.Background(), chained, cmd)
	require.NoError(t, err)

	assert.Equal(t, first.Code, second.Code)
	list, _ := f.remote.List(context.Background())
	assert.Len(t, list, 1)
}

func TestWriter_DrawCodeSkipsTakenCodes(t *testing.T) {
	f := newFixture(t)
	codes := []reservation.Code{"VM-1", "VM-1", "VM-2"}
	var i atomic.Int32
	f.writer.Codes = func() reservation.Code { return codes[int(i.Add(1))-1] }

	first, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: draft4D(2)})
	require.NoError(t, err)
	d := draft4D(2)
	d.UnitID = "5E"
	second, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: d})
	require.NoError(t, err)

	assert.Equal(t, "VM-1", first.Code)
	assert.Equal(t, "VM-2", second.Code)
}

func TestWriter_RedrawsCodeHeldRemotely(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := draft4D(2)
	other.UnitID, other.GuestEmail = "5E", "luis@example.com"
	vd, err := other.Validate(units.DefaultCatalog())
	require.NoError(t, err)
	existing, _ := reservation.New(reservation.CreateParams{ID: "VM-1", Draft: vd, CreatedAt: time.Now()})
	_, err = f.remote.Create(ctx, existing)
	require.NoError(t, err)

	// The cache was loaded before VM-1 existed, so the first draw collides.
	res, err := f.writer.Handle(ctx, CreateReservationCommand{Draft: draft4D(2)})
	require.NoError(t, err)
	assert.Equal(t, "VM-2", res.Code)

	list, err := f.remote.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byCode := map[reservation.Code]*reservation.Reservation{}
	for _, r := range list {
		byCode[r.ID] = r
	}
	assert.Equal(t, units.UnitID("5E"), byCode["VM-1"].UnitID)
	assert.Equal(t, units.UnitID("4D"), byCode["VM-2"].UnitID)

	local, err := f.fallback.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, local)
	f.writer.Wait()
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "VM-2", f.notifier.sent[0].ReservationID)
}

func TestWriter_GivesUpWhenEveryCodeIsHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := draft4D(2)
	other.UnitID, other.GuestEmail = "5E", "luis@example.com"
	vd, err := other.Validate(units.DefaultCatalog())
	require.NoError(t, err)
	existing, _ := reservation.New(reservation.CreateParams{ID: "VM-9", Draft: vd, CreatedAt: time.Now()})
	_, err = f.remote.Create(ctx, existing)
	require.NoError(t, err)
	f.writer.Codes = func() reservation.Code { return "VM-9" }

	_, err = f.writer.Handle(ctx, CreateReservationCommand{Draft: draft4D(2)})
	assert.ErrorIs(t, err, ErrNoFreeCode)
	local, _ := f.fallback.List(ctx)
	assert.Empty(t, local)
}

func TestWriter_RejectsPastCheckIn(t *testing.T) {
	f := newFixture(t)
	d := draft4D(2)
	d.CheckIn, d.CheckOut = "2026-01-04", "2026-01-06"

	_, err := f.writer.Handle(context.Background(), CreateReservationCommand{Draft: d})
	var verr *reservation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("checkIn"))
	assert.Zero(t, f.payments.calls.Load())

	d.CheckIn = "2026-01-05"
	_, err = f.writer.Handle(context.Background(), CreateReservationCommand{Draft: d})
	assert.NoError(t, err, "today is still bookable")
}

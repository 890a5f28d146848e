package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
)

func entry(code, key string, created time.Time) *reservation.Reservation {
	return &reservation.Reservation{
		ID:            reservation.Code(code),
		LocalKey:      key,
		UnitID:        "3C",
		GuestName:     "Rosa",
		GuestEmail:    "rosa@example.com",
		Range:         daterange.DateRange{CheckIn: "2026-08-01", CheckOut: "2026-08-03"},
		NumGuests:     2,
		Total:         money.USD(110),
		Status:        reservation.StatusConfirmed,
		PaymentMethod: reservation.PaymentCard,
		Origin:        reservation.OriginLocalFallback,
		Sync:          reservation.SyncLocalFallback,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestFallbackStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "fallback.json")
	store, err := NewFallbackStore(path)
	require.NoError(t, err)

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, entry("VM-2", "local_b", base.Add(time.Hour))))
	require.NoError(t, store.Put(ctx, entry("VM-1", "local_a", base)))

	reopened, err := NewFallbackStore(path)
	require.NoError(t, err)
	list, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, reservation.Code("VM-1"), list[0].ID)
	assert.True(t, list[0].Offline())
	assert.Equal(t, "$110.00", list[0].Total.String())

	got, err := reopened.Get(ctx, "local_b")
	require.NoError(t, err)
	assert.Equal(t, reservation.Code("VM-2"), got.ID)

	require.NoError(t, reopened.Delete(ctx, "local_a"))
	assert.True(t, errors.Is(reopened.Delete(ctx, "local_a"), reservation.ErrNotFound))
	_, err = reopened.Get(ctx, "local_a")
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestFallbackStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	store, err := NewFallbackStore(path)
	require.NoError(t, err)
	_, err = store.List(context.Background())
	assert.Error(t, err)
	assert.Error(t, store.Put(context.Background(), entry("VM-1", "", time.Now())))
}

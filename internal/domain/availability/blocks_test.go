package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

func TestNewBlock_InclusiveBothEnds(t *testing.T) {
	b, err := NewBlock(BlockParams{ID: "b1", Start: "2026-03-01", End: "2026-03-03", UnitID: "2B", Now: time.Now()})
	require.NoError(t, err)

	assert.True(t, b.Blocks("2B", "2026-03-01"))
	assert.True(t, b.Blocks("2B", "2026-03-03"))
	assert.False(t, b.Blocks("2B", "2026-03-04"))
	assert.False(t, b.Blocks("3C", "2026-03-02"))
	assert.Equal(t, 3, b.Range.Len())
	assert.Equal(t, "Bloqueado por administrador", b.Reason)
	require.Len(t, b.PendingEvents(), 1)
	assert.Equal(t, EventBlocked, b.PendingEvents()[0].EventName())
}

func TestNewBlock_EmptyUnitBlocksAll(t *testing.T) {
	b, err := NewBlock(BlockParams{ID: "b2", Start: "2026-03-05", End: "2026-03-05", Reason: "Mantenimiento", Now: time.Now()})
	require.NoError(t, err)
	for _, unit := range []string{"1A", "4D", "6F"} {
		assert.True(t, b.Blocks(units.UnitID(unit), "2026-03-05"), unit)
	}
}

func TestNewBlock_Rejects(t *testing.T) {
	_, err := NewBlock(BlockParams{ID: "b3", Start: "2026-03-05", End: "2026-03-04"})
	assert.ErrorIs(t, err, ErrInvalidBlock)
	assert.ErrorIs(t, err, daterange.ErrInvalidBlock)

	_, err = NewBlock(BlockParams{ID: "b3", Start: "05/03/2026", End: "2026-03-04"})
	assert.ErrorIs(t, err, ErrInvalidBlock)

	_, err = NewBlock(BlockParams{Start: "2026-03-04", End: "2026-03-04"})
	assert.ErrorIs(t, err, ErrInvalidBlock)
}

func TestSeedReservation_NoUnitBlocksAllWithExclusiveCheckout(t *testing.T) {
	seed := DefaultSeed()[0]
	assert.True(t, seed.Blocks("1A", "2025-01-10"))
	assert.True(t, seed.Blocks("6F", "2025-01-14"))
	assert.False(t, seed.Blocks("6F", "2025-01-15"))
}

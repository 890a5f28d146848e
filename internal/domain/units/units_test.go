package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	all := c.All()
	require.Len(t, all, 6)
	assert.Equal(t, UnitID("1A"), all[0].ID)

	u, err := c.ByID("4D")
	require.NoError(t, err)
	assert.Equal(t, 4, u.MaxGuests)
	assert.Equal(t, "Villa #4D", u.Name)
	assert.Equal(t, money.USD(85), u.NightlyRate)

	_, err = c.ByID("7G")
	assert.ErrorIs(t, err, ErrUnitNotFound)
}

func TestQuote_NightsTimesRate(t *testing.T) {
	u, _ := DefaultCatalog().ByID("4D")
	dr, err := daterange.Parse("2026-01-10", "2026-01-13")
	require.NoError(t, err)

	q := u.Quote(dr)
	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, "$255.00", q.Total.String())
}

func TestNewCatalog_Validation(t *testing.T) {
	_, err := NewCatalog([]Unit{{ID: "7-G", NightlyRate: money.USD(10), MaxGuests: 1}})
	assert.ErrorIs(t, err, ErrInvalidUnit)

	_, err = NewCatalog([]Unit{{ID: "7G", MaxGuests: 1}})
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = NewCatalog([]Unit{{ID: "7G", NightlyRate: money.USD(10)}})
	assert.ErrorIs(t, err, ErrInvalidGuests)

	_, err = NewCatalog([]Unit{
		{ID: "7G", NightlyRate: money.USD(10), MaxGuests: 1},
		{ID: "7G", NightlyRate: money.USD(10), MaxGuests: 1},
	})
	assert.ErrorIs(t, err, ErrDuplicatedUnit)
}

func TestMatches_LegacyNumericIdentifiers(t *testing.T) {
	assert.True(t, Matches("4D", "4D"))
	assert.False(t, Matches("4", "4D"))
	assert.False(t, Matches("5E", "4D"))

	assert.True(t, Matches("1", "1"))
	assert.True(t, Matches("01", "1"))
	assert.False(t, Matches("2", "1"))
	assert.False(t, Matches("", "1"))
}

func TestCanonical_PairsLegacyNumbers(t *testing.T) {
	for _, stored := range []string{"1", "01", " 1 ", "001"} {
		assert.Equal(t, UnitID("1"), Canonical(stored), stored)
		assert.True(t, Matches(stored, Canonical(stored)), stored)
	}
	assert.Equal(t, UnitID("4D"), Canonical("4D"))
	assert.Equal(t, UnitID("12"), Canonical("12"))
	assert.Equal(t, UnitID(""), Canonical(" "))
}

package units

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
)

var (
	ErrUnitNotFound   = errors.New("units: unit not configured")
	ErrInvalidUnit    = errors.New("units: unit id must be alphanumeric")
	ErrInvalidRate    = errors.New("units: nightly rate must be positive")
	ErrInvalidGuests  = errors.New("units: max guests must be positive")
	ErrDuplicatedUnit = errors.New("units: duplicated unit id")
)

type UnitID string

// Unit is a rentable villa with its own rate and capacity.
type Unit struct {
	ID          UnitID
	Name        string
	NightlyRate money.Money
	MaxGuests   int
}

func (u Unit) Validate() error {
	if !isAlphanumeric(string(u.ID)) {
		return ErrInvalidUnit
	}
	if u.NightlyRate.Cents <= 0 {
		return ErrInvalidRate
	}
	if u.MaxGuests <= 0 {
		return ErrInvalidGuests
	}
	return nil
}

// Quote is the derived total of a stay: nights × nightly rate.
type Quote struct {
	UnitID  UnitID
	Nights  int
	Nightly money.Money
	Total   money.Money
}

func (u Unit) Quote(dr daterange.DateRange) Quote {
	nights := dr.Nights()
	return Quote{
		UnitID:  u.ID,
		Nights:  nights,
		Nightly: u.NightlyRate,
		Total:   u.NightlyRate.Multiply(int64(nights)),
	}
}

// Catalog is the static, read-only unit configuration.
type Catalog struct {
	units map[UnitID]Unit
}

func NewCatalog(list []Unit) (*Catalog, error) {
	c := &Catalog{units: make(map[UnitID]Unit, len(list))}
	for _, u := range list {
		if u.Name == "" {
			u.Name = "Villa #" + string(u.ID)
		}
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.units[u.ID]; exists {
			return nil, ErrDuplicatedUnit
		}
		c.units[u.ID] = u
	}
	return c, nil
}

// DefaultCatalog returns the six villas on the property.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Unit{
		{ID: "1A", NightlyRate: money.USD(55), MaxGuests: 2},
		{ID: "2B", NightlyRate: money.USD(55), MaxGuests: 2},
		{ID: "3C", NightlyRate: money.USD(55), MaxGuests: 2},
		{ID: "4D", NightlyRate: money.USD(85), MaxGuests: 4},
		{ID: "5E", NightlyRate: money.USD(85), MaxGuests: 4},
		{ID: "6F", NightlyRate: money.USD(85), MaxGuests: 4},
	})
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) ByID(id UnitID) (Unit, error) {
	u, ok := c.units[id]
	if !ok {
		return Unit{}, ErrUnitNotFound
	}
	return u, nil
}

// All returns units ordered by id.
func (c *Catalog) All() []Unit {
	out := make([]Unit, 0, len(c.units))
	for _, u := range c.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Matches reports whether a stored unit identifier refers to unit. Early
// records used bare villa numbers, so a numeric value matches a one-character
// id with the same numeric value.
func Matches(stored string, unit UnitID) bool {
	stored = strings.TrimSpace(stored)
	if stored == string(unit) {
		return true
	}
	if len(unit) != 1 {
		return false
	}
	storedNum, err := strconv.Atoi(stored)
	if err != nil {
		return false
	}
	unitNum, err := strconv.Atoi(string(unit))
	if err != nil {
		return false
	}
	return storedNum == unitNum
}

// Canonical maps a stored identifier to the id Matches would pair it with,
// so a legacy villa number and its one-character twin share one key.
func Canonical(stored string) UnitID {
	stored = strings.TrimSpace(stored)
	n, err := strconv.Atoi(stored)
	if err != nil {
		return UnitID(stored)
	}
	if short := strconv.Itoa(n); len(short) == 1 {
		return UnitID(short)
	}
	return UnitID(stored)
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

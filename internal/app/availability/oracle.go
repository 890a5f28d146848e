package availability

import (
	"context"
	"log/slog"
	"sync"

	domain "villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

// ReservationSource exposes the latest remote snapshot.
type ReservationSource interface {
	Reservations() ([]*reservation.Reservation, bool)
}

type ConflictKind string

const (
	ConflictSeed        ConflictKind = "seed"
	ConflictReservation ConflictKind = "reservation"
	ConflictFallback    ConflictKind = "fallback"
	ConflictBlock       ConflictKind = "block"
)

// Conflict explains why a day is not bookable.
type Conflict struct {
	Kind ConflictKind  `json:"kind"`
	Day  daterange.Day `json:"day"`
	Ref  string        `json:"ref,omitempty"`
}

// Oracle answers whether a unit can be booked on a day. Every call reads
// the sources afresh; nothing is indexed.
type Oracle struct {
	Remote   ReservationSource
	Fallback reservation.FallbackStore
	Blocks   domain.BlockStore
	Seed     []domain.SeedReservation
	Logger   *slog.Logger

	mu         sync.Mutex
	lastBlocks []*domain.BlockedRange
}

// View is a point-in-time read of every source, used to answer many days
// against the same data.
type View struct {
	seed         []domain.SeedReservation
	reservations []*reservation.Reservation
	fallback     []*reservation.Reservation
	blocks       []*domain.BlockedRange
	RemoteLoaded bool
}

// Snapshot reads all sources once. Source failures degrade to what is left:
// a missing remote snapshot leaves seed and blocks, an unreadable block
// store falls back to the last list read.
func (o *Oracle) Snapshot(ctx context.Context) (*View, error) {
	v := &View{seed: o.Seed}
	if o.Remote != nil {
		v.reservations, v.RemoteLoaded = o.Remote.Reservations()
	}
	if o.Fallback != nil {
		local, err := o.Fallback.List(ctx)
		if err != nil {
			o.warn("fallback store read failed", err)
		} else {
			v.fallback = local
		}
	}
	if o.Blocks != nil {
		blocks, err := o.Blocks.List(ctx)
		o.mu.Lock()
		if err != nil {
			o.warn("blocked ranges read failed", err)
			blocks = o.lastBlocks
		} else {
			o.lastBlocks = blocks
		}
		o.mu.Unlock()
		v.blocks = blocks
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

func (o *Oracle) IsAvailable(ctx context.Context, unit units.UnitID, day daterange.Day) (bool, error) {
	v, err := o.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return v.IsAvailable(unit, day), nil
}

// IsRangeAvailable reports whether every night of dr is free on unit.
func (o *Oracle) IsRangeAvailable(ctx context.Context, unit units.UnitID, dr daterange.DateRange) (bool, error) {
	c, err := o.RangeConflict(ctx, unit, dr, "")
	if err != nil {
		return false, err
	}
	return c == nil, nil
}

// RangeConflict returns the first conflicting night of dr, ignoring the
// reservation with code exclude.
func (o *Oracle) RangeConflict(ctx context.Context, unit units.UnitID, dr daterange.DateRange, exclude reservation.Code) (*Conflict, error) {
	v, err := o.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return v.RangeConflict(unit, dr, exclude), nil
}

func (o *Oracle) warn(msg string, err error) {
	if o.Logger != nil {
		o.Logger.Warn(msg, "error", err)
	}
}

func (v *View) IsAvailable(unit units.UnitID, day daterange.Day) bool {
	return v.ConflictOn(unit, day, "") == nil
}

// ConflictOn: a day is taken when it falls in [checkIn, checkOut) of an
// active reservation on the unit, or in [start, end] of a matching block.
func (v *View) ConflictOn(unit units.UnitID, day daterange.Day, exclude reservation.Code) *Conflict {
	for _, s := range v.seed {
		if s.Blocks(unit, day) {
			return &Conflict{Kind: ConflictSeed, Day: day}
		}
	}
	if c := reservationConflict(v.reservations, ConflictReservation, unit, day, exclude); c != nil {
		return c
	}
	if c := reservationConflict(v.fallback, ConflictFallback, unit, day, exclude); c != nil {
		return c
	}
	for _, b := range v.blocks {
		if b.Blocks(unit, day) {
			return &Conflict{Kind: ConflictBlock, Day: day, Ref: string(b.ID)}
		}
	}
	return nil
}

func (v *View) RangeConflict(unit units.UnitID, dr daterange.DateRange, exclude reservation.Code) *Conflict {
	for _, day := range dr.Days() {
		if c := v.ConflictOn(unit, day, exclude); c != nil {
			return c
		}
	}
	return nil
}

// Blocks returns the blocked ranges the view was built from.
func (v *View) Blocks() []*domain.BlockedRange {
	return v.blocks
}

func reservationConflict(list []*reservation.Reservation, kind ConflictKind, unit units.UnitID, day daterange.Day, exclude reservation.Code) *Conflict {
	for _, r := range list {
		if exclude != "" && r.ID == exclude {
			continue
		}
		if r.Active() && r.OnUnit(unit) && r.Range.ContainsDay(day) {
			return &Conflict{Kind: kind, Day: day, Ref: string(r.ID)}
		}
	}
	return nil
}

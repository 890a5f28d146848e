package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/events"
	"villabook/internal/domain/units"
)

var (
	ErrBlockNotFound = errors.New("availability: blocked range not found")
	ErrInvalidBlock  = errors.New("availability: invalid blocked range")
)

type BlockID string

// BlockedRange closes an inclusive span of days to booking. An empty UnitID
// blocks every unit.
type BlockedRange struct {
	ID        BlockID
	Range     daterange.ClosedRange
	Reason    string
	UnitID    units.UnitID
	CreatedAt time.Time
	events.EventRecorder
}

type BlockParams struct {
	ID     BlockID
	Start  string
	End    string
	Reason string
	UnitID units.UnitID
	Now    time.Time
}

func NewBlock(params BlockParams) (*BlockedRange, error) {
	if params.ID == "" {
		return nil, ErrInvalidBlock
	}
	start, err := daterange.ParseDay(params.Start)
	if err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	}
	end, err := daterange.ParseDay(params.End)
	if err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	}
	cr, err := daterange.NewClosed(start, end)
	if err != nil {
		return nil, errors.Join(ErrInvalidBlock, err)
	}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		reason = "Bloqueado por administrador"
	}
	b := &BlockedRange{
		ID:        params.ID,
		Range:     cr,
		Reason:    reason,
		UnitID:    units.UnitID(strings.TrimSpace(string(params.UnitID))),
		CreatedAt: params.Now.UTC(),
	}
	b.Record(Blocked{BlockID: b.ID, UnitID: b.UnitID, Range: b.Range, Reason: b.Reason, At: b.CreatedAt})
	return b, nil
}

// AppliesTo reports whether the block covers unit.
func (b *BlockedRange) AppliesTo(unit units.UnitID) bool {
	return b.UnitID == "" || units.Matches(string(b.UnitID), unit)
}

// Blocks reports whether day is closed for unit. Both ends are inclusive.
func (b *BlockedRange) Blocks(unit units.UnitID, day daterange.Day) bool {
	return b.AppliesTo(unit) && b.Range.Contains(day)
}

func (b *BlockedRange) MarkRemoved(now time.Time) {
	b.Record(Unblocked{BlockID: b.ID, UnitID: b.UnitID, Range: b.Range, At: now.UTC()})
}

// BlockStore keeps blocked ranges as keyed records.
type BlockStore interface {
	List(ctx context.Context) ([]*BlockedRange, error)
	Add(ctx context.Context, block *BlockedRange) error
	Delete(ctx context.Context, id BlockID) error
}

// SeedReservation is a static booking kept outside the remote collection.
// An empty UnitID blocks every unit.
type SeedReservation struct {
	UnitID units.UnitID
	Range  daterange.DateRange
}

func (s SeedReservation) Blocks(unit units.UnitID, day daterange.Day) bool {
	matches := s.UnitID == "" || units.Matches(string(s.UnitID), unit)
	return matches && s.Range.ContainsDay(day)
}

// DefaultSeed is the set of historical stays shipped with the property.
func DefaultSeed() []SeedReservation {
	return []SeedReservation{
		{Range: daterange.DateRange{CheckIn: "2025-01-10", CheckOut: "2025-01-15"}},
		{Range: daterange.DateRange{CheckIn: "2025-01-22", CheckOut: "2025-01-25"}},
		{Range: daterange.DateRange{CheckIn: "2025-02-05", CheckOut: "2025-02-08"}},
	}
}

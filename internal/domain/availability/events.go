package availability

import (
	"time"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/units"
)

const (
	EventBlocked   = "availability.blocked"
	EventUnblocked = "availability.unblocked"
)

type Blocked struct {
	BlockID BlockID
	UnitID  units.UnitID
	Range   daterange.ClosedRange
	Reason  string
	At      time.Time
}

func (e Blocked) EventName() string     { return EventBlocked }
func (e Blocked) AggregateID() string   { return string(e.BlockID) }
func (e Blocked) OccurredAt() time.Time { return e.At }
func (e Blocked) EventUnit() string     { return string(e.UnitID) }

type Unblocked struct {
	BlockID BlockID
	UnitID  units.UnitID
	Range   daterange.ClosedRange
	At      time.Time
}

func (e Unblocked) EventName() string     { return EventUnblocked }
func (e Unblocked) AggregateID() string   { return string(e.BlockID) }
func (e Unblocked) OccurredAt() time.Time { return e.At }
func (e Unblocked) EventUnit() string     { return string(e.UnitID) }

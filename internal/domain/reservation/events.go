package reservation

import (
	"time"

	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
)

const (
	EventCreated        = "reservation.created"
	EventFallbackStored = "reservation.fallback_stored"
	EventReconciled     = "reservation.reconciled"
	EventUpdated        = "reservation.updated"
	EventDeleted        = "reservation.deleted"
)

type Created struct {
	Code     Code
	RemoteID string
	UnitID   units.UnitID
	Range    daterange.DateRange
	Total    money.Money
	Status   Status
	At       time.Time
}

func (e Created) EventName() string     { return EventCreated }
func (e Created) AggregateID() string   { return string(e.Code) }
func (e Created) OccurredAt() time.Time { return e.At }
func (e Created) EventUnit() string     { return string(e.UnitID) }

type FallbackStored struct {
	Code     Code
	LocalKey string
	UnitID   units.UnitID
	Range    daterange.DateRange
	Reason   string
	At       time.Time
}

func (e FallbackStored) EventName() string     { return EventFallbackStored }
func (e FallbackStored) AggregateID() string   { return string(e.Code) }
func (e FallbackStored) OccurredAt() time.Time { return e.At }
func (e FallbackStored) EventUnit() string     { return string(e.UnitID) }

type Reconciled struct {
	Code     Code
	RemoteID string
	LocalKey string
	At       time.Time
}

func (e Reconciled) EventName() string     { return EventReconciled }
func (e Reconciled) AggregateID() string   { return string(e.Code) }
func (e Reconciled) OccurredAt() time.Time { return e.At }

type Updated struct {
	Code     Code
	RemoteID string
	UnitID   units.UnitID
	Range    daterange.DateRange
	Status   Status
	At       time.Time
}

func (e Updated) EventName() string     { return EventUpdated }
func (e Updated) AggregateID() string   { return string(e.Code) }
func (e Updated) OccurredAt() time.Time { return e.At }
func (e Updated) EventUnit() string     { return string(e.UnitID) }

type Deleted struct {
	Code     Code
	RemoteID string
	UnitID   units.UnitID
	Range    daterange.DateRange
	At       time.Time
}

func (e Deleted) EventName() string     { return EventDeleted }
func (e Deleted) AggregateID() string   { return string(e.Code) }
func (e Deleted) OccurredAt() time.Time { return e.At }
func (e Deleted) EventUnit() string     { return string(e.UnitID) }

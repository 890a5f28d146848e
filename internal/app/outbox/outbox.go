package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"villabook/internal/domain/shared/events"
)

const (
	HeaderEventName = "event-name"
	HeaderUnitID    = "unit-id"
)

// EventRecord is one encoded event as the relay worker will see it.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// JSONEventEncoder stores the event struct as its JSON payload. Events that
// belong to one unit carry it in the unit-id header so consumers can route
// without decoding the body.
type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	rec := EventRecord{
		ID:         e.nextID(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{HeaderEventName: ev.EventName()},
	}
	if scoped, ok := ev.(events.UnitScoped); ok && scoped.EventUnit() != "" {
		rec.Headers[HeaderUnitID] = scoped.EventUnit()
	}
	return rec, nil
}

func (e JSONEventEncoder) nextID() string {
	if e.IDGenerator != nil {
		return e.IDGenerator()
	}
	return uuid.NewString()
}

// RecordDomainEvents encodes evs and adds them to box in order. It stops at
// the first failure; earlier records stay added.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err = box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

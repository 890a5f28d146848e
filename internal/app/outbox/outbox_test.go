package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"villabook/internal/domain/shared/events"
)

type sampleEvent struct {
	Code string
	Unit string
	At   time.Time
}

func (e sampleEvent) EventName() string     { return "reservation.created" }
func (e sampleEvent) AggregateID() string   { return e.Code }
func (e sampleEvent) OccurredAt() time.Time { return e.At }
func (e sampleEvent) EventUnit() string     { return e.Unit }

type sliceBox struct{ records []EventRecord }

func (b *sliceBox) Add(_ context.Context, rec EventRecord) error {
	b.records = append(b.records, rec)
	return nil
}
func (b *sliceBox) Flush(context.Context) error { return nil }

func TestRecordDomainEvents_EncodesInOrder(t *testing.T) {
	box := &sliceBox{}
	at := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	evs := []events.DomainEvent{sampleEvent{Code: "VM-1", Unit: "3C", At: at}, sampleEvent{Code: "VM-2", At: at}}

	enc := JSONEventEncoder{IDGenerator: func() string { return "evt" }}
	require.NoError(t, RecordDomainEvents(context.Background(), box, enc, evs))
	require.Len(t, box.records, 2)
	assert.Equal(t, "VM-1", box.records[0].Aggregate)
	assert.Equal(t, "reservation.created", box.records[1].Name)
	assert.Equal(t, "evt", box.records[0].ID)
	assert.Equal(t, "3C", box.records[0].Headers[HeaderUnitID])
	assert.NotContains(t, box.records[1].Headers, HeaderUnitID)

	var decoded sampleEvent
	require.NoError(t, json.Unmarshal(box.records[1].Payload, &decoded))
	assert.Equal(t, "VM-2", decoded.Code)
}

func TestRecordDomainEvents_NilBoxIsNoop(t *testing.T) {
	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{sampleEvent{}}))
}

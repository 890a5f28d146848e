package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "villabook/internal/app/outbox"
	infraoutbox "villabook/internal/infra/outbox"
)

// Outbox is a process-local queue that satisfies both the write side used by
// handlers and the relay side used by the outbox worker.
type Outbox struct {
	mu   sync.Mutex
	docs map[string]*infraoutbox.EventDocument
}

func NewOutbox() *Outbox {
	return &Outbox{docs: make(map[string]*infraoutbox.EventDocument)}
}

func (o *Outbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.docs[record.ID] = &infraoutbox.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: time.Now().UTC(),
	}
	return nil
}

func (o *Outbox) Flush(context.Context) error { return nil }

func (o *Outbox) Claim(_ context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	due := make([]*infraoutbox.EventDocument, 0)
	for _, d := range o.docs {
		if (d.State == infraoutbox.StateNew || d.State == infraoutbox.StateFailed) && !d.NextAttempt.After(now) {
			due = append(due, d)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].OccurredAt.Before(due[j].OccurredAt) })
	d := due[0]
	d.State = infraoutbox.StateClaimed
	d.ClaimedBy = workerID
	d.ClaimedAt = now
	cp := *d
	return &cp, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d, ok := o.docs[id]; ok {
		d.State = infraoutbox.StateSent
		d.SentAt = time.Now().UTC()
	}
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d, ok := o.docs[id]; ok {
		d.State = infraoutbox.StateFailed
		d.NextAttempt = next
		d.LastError = errMsg
		d.Attempts++
	}
	return nil
}

// Pending counts records not yet sent.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, d := range o.docs {
		if d.State != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)

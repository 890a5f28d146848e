package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"time"

	"villabook/internal/app/commands"
)

// IdempotentCommand must be implemented by commands that want duplicate
// submissions collapsed into one execution.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of a key that already succeeded.
// Failed attempts are not recorded so the guest can retry with the same key.
// Concurrent submissions sharing a key run one at a time.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	g := &idempotencyGuard{store: store, codec: codec, locks: &keyedMutex{locks: make(map[string]*keyedEntry)}}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			defer g.locks.lock(key)()

			if result, found, err := g.replay(ctx, key, idCmd); found || err != nil {
				return result, err
			}
			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := g.remember(ctx, key, result); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

type idempotencyGuard struct {
	store IdempotencyStore
	codec ResultCodec
	locks *keyedMutex
}

func (g *idempotencyGuard) replay(ctx context.Context, key string, cmd IdempotentCommand) (any, bool, error) {
	rec, found, err := g.store.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, true, errMissingPrototype
	}
	if err := g.codec.Decode(rec.Payload, proto); err != nil {
		return nil, true, err
	}
	return normalizePrototype(proto), true, nil
}

func (g *idempotencyGuard) remember(ctx context.Context, key string, result any) error {
	rec := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
	if result != nil {
		payload, err := g.codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return g.store.Save(ctx, rec)
}

// normalizePrototype dereferences the decoded prototype so callers receive
// the handler's value type.
func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return proto
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

package reservation

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("reservation: invalid sync transition")

// SyncState tracks where a reservation is in the remote/fallback dual write.
type SyncState string

const (
	SyncSubmitted       SyncState = "submitted"
	SyncRemotePending   SyncState = "remote_pending"
	SyncRemoteConfirmed SyncState = "remote_confirmed"
	SyncRemoteFailed    SyncState = "remote_failed"
	SyncLocalFallback   SyncState = "local_fallback"
	SyncReconciled      SyncState = "reconciled"
)

var syncTransitions = map[SyncState][]SyncState{
	SyncSubmitted:     {SyncRemotePending},
	SyncRemotePending: {SyncRemoteConfirmed, SyncRemoteFailed},
	SyncRemoteFailed:  {SyncLocalFallback},
	SyncLocalFallback: {SyncReconciled},
}

func (s SyncState) CanTransition(to SyncState) bool {
	for _, next := range syncTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal states never move again.
func (s SyncState) Terminal() bool {
	return s == SyncRemoteConfirmed || s == SyncReconciled
}

// BeginRemote marks the remote write as in flight.
func (r *Reservation) BeginRemote() error {
	return r.advance(SyncRemotePending)
}

func (r *Reservation) advance(to SyncState) error {
	if !r.Sync.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Sync, to)
	}
	r.Sync = to
	return nil
}

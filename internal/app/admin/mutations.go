package admin

import (
	"context"
	"errors"
	"fmt"

	appavailability "villabook/internal/app/availability"
	"villabook/internal/app/outbox"
	"villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/events"
	"villabook/internal/domain/units"
)

// Update applies an admin edit to the remote document remoteID and
// recomputes its total. Concurrent edits are last-write-wins.
func (s *Service) Update(ctx context.Context, remoteID string, patch reservation.Patch) (Row, error) {
	r, err := s.remote(ctx, remoteID)
	if err != nil {
		return Row{}, err
	}
	unit, err := s.unitFor(r.UnitID)
	if err != nil {
		return Row{}, err
	}
	before := r.Clone()
	if err := r.Apply(patch, unit, s.now()); err != nil {
		return Row{}, err
	}
	if err := s.checkDates(ctx, before, r); err != nil {
		return Row{}, err
	}
	if err := s.Remote.Update(ctx, r); err != nil {
		return Row{}, err
	}
	row := rowFor(r)
	s.changed(ctx, r, r.Drain())
	if s.Logger != nil {
		s.Logger.Info("reservation updated by admin", "code", r.ID, "remote_id", r.RemoteID, "status", r.Status)
	}
	return row, nil
}

// checkDates rejects an edit that leaves the stay active on nights another
// reservation or block already holds. Edits that keep the dates and the
// status are not rechecked.
func (s *Service) checkDates(ctx context.Context, before, after *reservation.Reservation) error {
	if s.Availability == nil || !after.Active() {
		return nil
	}
	if before.Range == after.Range && before.Active() {
		return nil
	}
	conflict, err := s.Availability.RangeConflict(ctx, after.UnitID, after.Range, after.ID)
	if err != nil {
		return err
	}
	if conflict != nil {
		return fmt.Errorf("%w: %s taken on %s", reservation.ErrAvailabilityConflict, conflict.Kind, conflict.Day)
	}
	return nil
}

// SetStatus is Update restricted to the status field.
func (s *Service) SetStatus(ctx context.Context, remoteID string, status reservation.Status) (Row, error) {
	parsed, err := reservation.ParseStatus(string(status))
	if err != nil {
		return Row{}, err
	}
	return s.Update(ctx, remoteID, reservation.Patch{Status: &parsed})
}

func (s *Service) Delete(ctx context.Context, remoteID string) error {
	r, err := s.remote(ctx, remoteID)
	if err != nil {
		return err
	}
	if err := s.Remote.Delete(ctx, r.RemoteID); err != nil {
		return err
	}
	r.MarkDeleted(s.now())
	if s.Cache != nil {
		s.Cache.Remove(r.ID)
	}
	s.changed(ctx, nil, r.Drain())
	if s.Broadcaster != nil {
		s.Broadcaster.Publish(appavailability.Change{Kind: appavailability.ChangeReservations, UnitID: r.UnitID, At: s.now()})
	}
	if s.Logger != nil {
		s.Logger.Info("reservation deleted by admin", "code", r.ID, "remote_id", r.RemoteID)
	}
	return nil
}

// remote fetches the document by its store id. A reference that only
// matches a fallback entry fails with ErrLocalOnly.
func (s *Service) remote(ctx context.Context, remoteID string) (*reservation.Reservation, error) {
	if remoteID == "" {
		return nil, reservation.ErrNotFound
	}
	r, err := s.Remote.Get(ctx, remoteID)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, reservation.ErrNotFound) || s.Fallback == nil {
		return nil, err
	}
	local, listErr := s.Fallback.List(ctx)
	if listErr != nil {
		return nil, err
	}
	for _, entry := range local {
		if string(entry.ID) == remoteID || entry.LocalKey == remoteID {
			return nil, fmt.Errorf("%w: %s", reservation.ErrLocalOnly, entry.ID)
		}
	}
	return nil, err
}

func (s *Service) unitFor(id units.UnitID) (units.Unit, error) {
	if unit, err := s.Catalog.ByID(id); err == nil {
		return unit, nil
	}
	for _, unit := range s.Catalog.All() {
		if units.Matches(string(id), unit.ID) {
			return unit, nil
		}
	}
	return units.Unit{}, fmt.Errorf("%w: %s", units.ErrUnitNotFound, id)
}

type BlockRequest struct {
	Start  string
	End    string
	Reason string
	UnitID units.UnitID
}

// Block closes an inclusive range to booking, for one unit or all of them.
func (s *Service) Block(ctx context.Context, req BlockRequest) (*availability.BlockedRange, error) {
	if req.UnitID != "" {
		if _, err := s.unitFor(req.UnitID); err != nil {
			return nil, err
		}
	}
	b, err := availability.NewBlock(availability.BlockParams{
		ID:     s.blockID(),
		Start:  req.Start,
		End:    req.End,
		Reason: req.Reason,
		UnitID: req.UnitID,
		Now:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Blocks.Add(ctx, b); err != nil {
		return nil, err
	}
	s.blocksChanged(ctx, b)
	if s.Logger != nil {
		s.Logger.Info("dates blocked", "block_id", b.ID, "unit_id", b.UnitID, "start", b.Range.Start, "end", b.Range.End)
	}
	return b, nil
}

func (s *Service) Unblock(ctx context.Context, id availability.BlockID) error {
	blocks, err := s.Blocks.List(ctx)
	if err != nil {
		return err
	}
	var target *availability.BlockedRange
	for _, b := range blocks {
		if b.ID == id {
			target = b
			break
		}
	}
	if target == nil {
		return availability.ErrBlockNotFound
	}
	if err := s.Blocks.Delete(ctx, id); err != nil {
		return err
	}
	target.MarkRemoved(s.now())
	s.blocksChanged(ctx, target)
	if s.Logger != nil {
		s.Logger.Info("dates unblocked", "block_id", id)
	}
	return nil
}

func (s *Service) ListBlocks(ctx context.Context) ([]*availability.BlockedRange, error) {
	return s.Blocks.List(ctx)
}

func (s *Service) blocksChanged(ctx context.Context, b *availability.BlockedRange) {
	s.record(ctx, b.Drain())
	if s.Broadcaster != nil {
		s.Broadcaster.Publish(appavailability.Change{Kind: appavailability.ChangeBlocks, UnitID: b.UnitID, At: s.now()})
	}
}

// changed refreshes the local snapshot and relays evs. r is nil for deletes.
func (s *Service) changed(ctx context.Context, r *reservation.Reservation, evs []events.DomainEvent) {
	if r != nil {
		if s.Cache != nil {
			s.Cache.Put(r)
		}
		if s.Broadcaster != nil {
			s.Broadcaster.Publish(appavailability.Change{Kind: appavailability.ChangeReservations, UnitID: r.UnitID, At: s.now()})
		}
	}
	s.record(ctx, evs)
}

func (s *Service) record(ctx context.Context, evs []events.DomainEvent) {
	if err := outbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, evs); err != nil && s.Logger != nil {
		s.Logger.Warn("admin events not recorded", "error", err)
	}
}

package admin

import (
	"context"
	"errors"

	"villabook/internal/app/commands"
	"villabook/internal/app/queries"
	"villabook/internal/app/reconcile"
	"villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
)

const (
	UpdateReservationKey = "admin.update_reservation"
	SetStatusKey         = "admin.set_status"
	DeleteReservationKey = "admin.delete_reservation"
	BlockDatesKey        = "admin.block_dates"
	UnblockDatesKey      = "admin.unblock_dates"
	ExportKey            = "admin.export"
	ReconcileKey         = "admin.reconcile"

	ListReservationsKey = "admin.list_reservations"
	StatsKey            = "admin.stats"
	ListBlocksKey       = "admin.list_blocks"
)

// adminOnly is embedded in every message of this package so the
// authorization middleware demands an admin session.
type adminOnly struct{}

func (adminOnly) AdminOnly() {}

type UpdateReservationCommand struct {
	adminOnly
	RemoteID string
	Patch    reservation.Patch
}

func (UpdateReservationCommand) Key() string { return UpdateReservationKey }

func (c UpdateReservationCommand) Validate() error {
	if c.RemoteID == "" {
		return reservation.ErrNotFound
	}
	return nil
}

type SetStatusCommand struct {
	adminOnly
	RemoteID string
	Status   reservation.Status
}

func (SetStatusCommand) Key() string { return SetStatusKey }

type DeleteReservationCommand struct {
	adminOnly
	RemoteID string
}

func (DeleteReservationCommand) Key() string { return DeleteReservationKey }

type BlockDatesCommand struct {
	adminOnly
	Request BlockRequest
}

func (BlockDatesCommand) Key() string { return BlockDatesKey }

type UnblockDatesCommand struct {
	adminOnly
	ID availability.BlockID
}

func (UnblockDatesCommand) Key() string { return UnblockDatesKey }

func (c UnblockDatesCommand) Validate() error {
	if c.ID == "" {
		return availability.ErrBlockNotFound
	}
	return nil
}

type ExportCommand struct {
	adminOnly
	Month string
}

func (ExportCommand) Key() string { return ExportKey }

type ReconcileCommand struct {
	adminOnly
}

func (ReconcileCommand) Key() string { return ReconcileKey }

type ListReservationsQuery struct {
	adminOnly
	Month string
}

func (ListReservationsQuery) Key() string { return ListReservationsKey }

type StatsQuery struct {
	adminOnly
}

func (StatsQuery) Key() string { return StatsKey }

type ListBlocksQuery struct {
	adminOnly
}

func (ListBlocksQuery) Key() string { return ListBlocksKey }

// ReconcileRunner runs one reconciliation pass on demand.
type ReconcileRunner interface {
	RunOnce(ctx context.Context) (reconcile.Report, error)
}

var ErrReconcileUnavailable = errors.New("admin: reconciler is not configured")

// Register attaches every admin handler to the buses.
func Register(cmds *commands.InMemoryBus, qs *queries.InMemoryBus, svc *Service, rec ReconcileRunner) {
	commands.RegisterHandler[UpdateReservationCommand, Row](cmds, UpdateReservationKey,
		commands.HandlerFunc[UpdateReservationCommand, Row](func(ctx context.Context, c UpdateReservationCommand) (Row, error) {
			return svc.Update(ctx, c.RemoteID, c.Patch)
		}))
	commands.RegisterHandler[SetStatusCommand, Row](cmds, SetStatusKey,
		commands.HandlerFunc[SetStatusCommand, Row](func(ctx context.Context, c SetStatusCommand) (Row, error) {
			return svc.SetStatus(ctx, c.RemoteID, c.Status)
		}))
	commands.RegisterHandler[DeleteReservationCommand, struct{}](cmds, DeleteReservationKey,
		commands.HandlerFunc[DeleteReservationCommand, struct{}](func(ctx context.Context, c DeleteReservationCommand) (struct{}, error) {
			return struct{}{}, svc.Delete(ctx, c.RemoteID)
		}))
	commands.RegisterHandler[BlockDatesCommand, *availability.BlockedRange](cmds, BlockDatesKey,
		commands.HandlerFunc[BlockDatesCommand, *availability.BlockedRange](func(ctx context.Context, c BlockDatesCommand) (*availability.BlockedRange, error) {
			return svc.Block(ctx, c.Request)
		}))
	commands.RegisterHandler[UnblockDatesCommand, struct{}](cmds, UnblockDatesKey,
		commands.HandlerFunc[UnblockDatesCommand, struct{}](func(ctx context.Context, c UnblockDatesCommand) (struct{}, error) {
			return struct{}{}, svc.Unblock(ctx, c.ID)
		}))
	commands.RegisterHandler[ExportCommand, ExportResult](cmds, ExportKey,
		commands.HandlerFunc[ExportCommand, ExportResult](func(ctx context.Context, c ExportCommand) (ExportResult, error) {
			return svc.Export(ctx, c.Month)
		}))
	commands.RegisterHandler[ReconcileCommand, reconcile.Report](cmds, ReconcileKey,
		commands.HandlerFunc[ReconcileCommand, reconcile.Report](func(ctx context.Context, _ ReconcileCommand) (reconcile.Report, error) {
			if rec == nil {
				return reconcile.Report{}, ErrReconcileUnavailable
			}
			return rec.RunOnce(ctx)
		}))

	queries.RegisterHandler[ListReservationsQuery, []Row](qs, ListReservationsKey,
		queries.HandlerFunc[ListReservationsQuery, []Row](func(ctx context.Context, q ListReservationsQuery) ([]Row, error) {
			return svc.List(ctx, q.Month)
		}))
	queries.RegisterHandler[StatsQuery, Stats](qs, StatsKey,
		queries.HandlerFunc[StatsQuery, Stats](func(ctx context.Context, _ StatsQuery) (Stats, error) {
			return svc.Stats(ctx)
		}))
	queries.RegisterHandler[ListBlocksQuery, []*availability.BlockedRange](qs, ListBlocksKey,
		queries.HandlerFunc[ListBlocksQuery, []*availability.BlockedRange](func(ctx context.Context, _ ListBlocksQuery) ([]*availability.BlockedRange, error) {
			return svc.ListBlocks(ctx)
		}))
}

package admin

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	appavailability "villabook/internal/app/availability"
	"villabook/internal/app/outbox"
	"villabook/internal/domain/availability"
	"villabook/internal/domain/reservation"
	"villabook/internal/domain/shared/daterange"
	"villabook/internal/domain/shared/money"
	"villabook/internal/domain/units"
)

var ErrInvalidMonth = errors.New("admin: month filter must be YYYY-MM")

// Cache is the process-local snapshot of the remote collection.
type Cache interface {
	Put(r *reservation.Reservation)
	Remove(code reservation.Code)
}

// RangeChecker finds the first night of dr already held on unit.
type RangeChecker interface {
	RangeConflict(ctx context.Context, unit units.UnitID, dr daterange.DateRange, exclude reservation.Code) (*appavailability.Conflict, error)
}

// Uploader stores an export and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Service is the admin surface over reservations and blocked ranges.
type Service struct {
	Catalog      *units.Catalog
	Remote       reservation.RemoteStore
	Fallback     reservation.FallbackStore
	Blocks       availability.BlockStore
	Cache        Cache
	Availability RangeChecker
	Broadcaster  *appavailability.Broadcaster
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Uploader     Uploader
	Logger       *slog.Logger
	Now          func() time.Time
	BlockIDs     func() string
}

// Row is one line of the merged admin listing.
type Row struct {
	ID            string    `json:"id"`
	RemoteID      string    `json:"remoteId,omitempty"`
	UnitID        string    `json:"unitId"`
	GuestName     string    `json:"guestName"`
	GuestEmail    string    `json:"guestEmail"`
	CheckIn       string    `json:"checkIn"`
	CheckOut      string    `json:"checkOut"`
	Nights        int       `json:"nights"`
	NumGuests     int       `json:"numGuests"`
	Total         string    `json:"total"`
	TotalCents    int64     `json:"totalCents"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	CreatedAt     time.Time `json:"createdAt"`
	Offline       bool      `json:"offline"`
}

func rowFor(r *reservation.Reservation) Row {
	return Row{
		ID:            string(r.ID),
		RemoteID:      r.RemoteID,
		UnitID:        string(r.UnitID),
		GuestName:     r.GuestName,
		GuestEmail:    r.GuestEmail,
		CheckIn:       string(r.Range.CheckIn),
		CheckOut:      string(r.Range.CheckOut),
		Nights:        r.Range.Nights(),
		NumGuests:     r.NumGuests,
		Total:         r.Total.String(),
		TotalCents:    r.Total.Cents,
		Status:        string(r.Status),
		PaymentMethod: string(r.PaymentMethod),
		CreatedAt:     r.CreatedAt,
		Offline:       r.Offline(),
	}
}

// List merges the remote collection with fallback entries. A confirmation
// code present in both is shown once, from the remote copy. month filters
// on the check-in month when set.
func (s *Service) List(ctx context.Context, month string) ([]Row, error) {
	month = strings.TrimSpace(month)
	if month != "" {
		if _, err := daterange.FirstOfMonth(month); err != nil {
			return nil, ErrInvalidMonth
		}
	}
	merged, err := s.merged(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(merged))
	for _, r := range merged {
		if month != "" && r.Range.CheckIn.Month() != month {
			continue
		}
		out = append(out, rowFor(r))
	}
	return out, nil
}

func (s *Service) merged(ctx context.Context) ([]*reservation.Reservation, error) {
	remote, err := s.Remote.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[reservation.Code]bool, len(remote))
	out := make([]*reservation.Reservation, 0, len(remote))
	for _, r := range remote {
		seen[r.ID] = true
		out = append(out, r)
	}
	if s.Fallback != nil {
		local, err := s.Fallback.List(ctx)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("fallback store unreadable, listing remote only", "error", err)
			}
		} else {
			for _, r := range local {
				if seen[r.ID] {
					continue
				}
				seen[r.ID] = true
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Range.CheckIn != out[j].Range.CheckIn {
			return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type Stats struct {
	TotalReservations int    `json:"totalReservations"`
	Revenue           string `json:"revenue"`
	RevenueCents      int64  `json:"revenueCents"`
	OccupancyPercent  int    `json:"occupancyPercent"`
	BlockedDays       int    `json:"blockedDays"`
	OfflineCount      int    `json:"offlineCount"`
}

// Stats summarizes the merged listing. Occupancy is booked nights over a
// 365 night year, capped at 100. Blocked days count both range ends.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	merged, err := s.merged(ctx)
	if err != nil {
		return Stats{}, err
	}
	var (
		stats   Stats
		nights  int
		revenue int64
	)
	currency := money.DefaultCurrency
	for _, r := range merged {
		stats.TotalReservations++
		nights += r.Range.Nights()
		revenue += r.Total.Cents
		if r.Total.Currency != "" {
			currency = r.Total.Currency
		}
		if r.Offline() {
			stats.OfflineCount++
		}
	}
	stats.OccupancyPercent = min(100, int(math.Round(float64(nights)/365*100)))
	total := money.Money{Cents: revenue, Currency: currency}
	stats.Revenue = total.String()
	stats.RevenueCents = revenue

	if s.Blocks != nil {
		blocks, err := s.Blocks.List(ctx)
		if err != nil {
			return Stats{}, err
		}
		for _, b := range blocks {
			stats.BlockedDays += b.Range.Len()
		}
	}
	return stats, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) blockID() availability.BlockID {
	if s.BlockIDs != nil {
		return availability.BlockID(s.BlockIDs())
	}
	return availability.BlockID("blk_" + uuid.NewString())
}

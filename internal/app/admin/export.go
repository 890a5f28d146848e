package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
)

var ErrExportUnavailable = errors.New("admin: export storage is not configured")

type ExportResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

var exportHeader = []string{
	"id", "remote_id", "unit_id", "guest_name", "guest_email", "check_in", "check_out",
	"nights", "num_guests", "total", "status", "payment_method", "created_at", "offline",
}

// Export writes the merged listing as CSV and uploads it.
func (s *Service) Export(ctx context.Context, month string) (ExportResult, error) {
	if s.Uploader == nil {
		return ExportResult{}, ErrExportUnavailable
	}
	rows, err := s.List(ctx, month)
	if err != nil {
		return ExportResult{}, err
	}
	body, err := EncodeCSV(rows)
	if err != nil {
		return ExportResult{}, err
	}
	scope := month
	if scope == "" {
		scope = "all"
	}
	key := fmt.Sprintf("exports/reservations-%s-%s.csv", scope, s.now().UTC().Format("20060102T150405Z"))
	url, err := s.Uploader.Upload(ctx, key, body, "text/csv; charset=utf-8")
	if err != nil {
		return ExportResult{}, err
	}
	if s.Logger != nil {
		s.Logger.Info("reservations exported", "key", key, "rows", len(rows))
	}
	return ExportResult{Key: key, URL: url, Rows: len(rows)}, nil
}

func EncodeCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.ID, r.RemoteID, r.UnitID, r.GuestName, r.GuestEmail, r.CheckIn, r.CheckOut,
			strconv.Itoa(r.Nights), strconv.Itoa(r.NumGuests), r.Total, r.Status, r.PaymentMethod,
			r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"), strconv.FormatBool(r.Offline),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

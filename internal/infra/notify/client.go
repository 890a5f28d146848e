package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"villabook/internal/app/policies"
)

var ErrNotConfigured = errors.New("notify: relay url not configured")

// HTTPNotifier posts the reservation summary to the email relay.
type HTTPNotifier struct {
	Client *http.Client
	URL    string
}

func NewHTTPNotifier(url string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{Client: &http.Client{Timeout: timeout}, URL: url}
}

func (n *HTTPNotifier) NotifyReservation(ctx context.Context, msg policies.Notification) error {
	if n == nil || n.URL == "" {
		return ErrNotConfigured
	}
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: relay request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("notify: relay returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Disabled drops notifications; used when no relay is configured.
type Disabled struct{}

func (Disabled) NotifyReservation(context.Context, policies.Notification) error { return nil }

var (
	_ policies.Notifier = (*HTTPNotifier)(nil)
	_ policies.Notifier = Disabled{}
)

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultFrom     = "Villas Maribella <onboarding@resend.dev>"
	defaultEndpoint = "https://api.resend.com/emails"
)

var ErrNotConfigured = errors.New("email: mailer not configured")

type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sent is what the provider acknowledged.
type Sent struct {
	ID string `json:"id"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) (Sent, error)
}

// ProviderError is a rejection reported by the provider itself, as opposed
// to a transport failure.
type ProviderError struct {
	StatusCode int             `json:"statusCode"`
	Name       string          `json:"name,omitempty"`
	Message    string          `json:"message"`
	Raw        json.RawMessage `json:"-"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email: provider rejected message (%d): %s", e.StatusCode, e.Message)
}

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{
		APIKey:   apiKey,
		Endpoint: defaultEndpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (Sent, error) {
	if m == nil || m.APIKey == "" {
		return Sent{}, ErrNotConfigured
	}
	endpoint := m.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	if msg.From == "" {
		msg.From = DefaultFrom
	}
	payload, err := json.Marshal(resendRequest{From: msg.From, To: msg.To, Subject: msg.Subject, HTML: msg.HTML})
	if err != nil {
		return Sent{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Sent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Sent{}, fmt.Errorf("email: resend request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Sent{}, fmt.Errorf("email: read resend response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		perr := &ProviderError{StatusCode: resp.StatusCode, Raw: raw}
		if json.Unmarshal(raw, perr) != nil || perr.Message == "" {
			perr.Message = http.StatusText(resp.StatusCode)
		}
		perr.StatusCode = resp.StatusCode
		return Sent{}, perr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Sent{}, fmt.Errorf("email: resend returned %d", resp.StatusCode)
	}
	var sent Sent
	if err := json.Unmarshal(raw, &sent); err != nil {
		return Sent{}, fmt.Errorf("email: decode resend response: %w", err)
	}
	return sent, nil
}

// LogMailer only logs. Used in local runs without an API key.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) (Sent, error) {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := fmt.Sprintf("log-%d", time.Now().UnixNano())
	logger.Info("email not sent, logging only", "id", id, "to", msg.To, "subject", msg.Subject)
	return Sent{ID: id}, nil
}

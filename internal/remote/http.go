package remote

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/roach88/ledgerbook/internal/ledgererr"
)

// BackupPath is the slot server route for the caller's backup.
const BackupPath = "/v1/backup"

// HealthPath is the slot server liveness route.
const HealthPath = "/healthz"

// DefaultTimeout bounds each request made by an HTTPSlot.
const DefaultTimeout = 30 * time.Second

// HTTPSlot is a client for the slot server. The bearer token identifies the
// caller and selects its slot.
type HTTPSlot struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPSlot returns a client for the slot server at baseURL.
func NewHTTPSlot(baseURL, token string, timeout time.Duration) *HTTPSlot {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSlot{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Put uploads the blob. Transport failures and non-success statuses are
// NETWORK_OR_AUTH_UNAVAILABLE ledgererrs.
func (s *HTTPSlot) Put(ctx context.Context, blob string) error {
	const op = "remote put"

	resp, err := s.do(ctx, http.MethodPut, BackupPath, strings.NewReader(blob))
	if err != nil {
		return ledgererr.Wrap(ledgererr.CodeNetworkOrAuthUnavailable, op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return statusError(op, resp)
	}
}

// Get downloads the blob. A 204 response is an empty slot.
func (s *HTTPSlot) Get(ctx context.Context) (string, bool, error) {
	const op = "remote get"

	resp, err := s.do(ctx, http.MethodGet, BackupPath, nil)
	if err != nil {
		return "", false, ledgererr.Wrap(ledgererr.CodeNetworkOrAuthUnavailable, op, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return "", false, nil
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", false, ledgererr.Wrap(ledgererr.CodeNetworkOrAuthUnavailable, op, err)
		}
		return string(body), true, nil
	default:
		return "", false, statusError(op, resp)
	}
}

// Ping checks that the server is reachable.
func (s *HTTPSlot) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, HealthPath, nil)
	if err != nil {
		return ledgererr.Wrap(ledgererr.CodeNetworkOrAuthUnavailable, "remote ping", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("remote ping", resp)
	}
	return nil
}

func (s *HTTPSlot) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return client.Do(req)
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return ledgererr.Newf(ledgererr.CodeNetworkOrAuthUnavailable, op,
		"unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

var _ Slot = (*HTTPSlot)(nil)
var _ Slot = (*FileSlot)(nil)
var _ Slot = (*MemorySlot)(nil)

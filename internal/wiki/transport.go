package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 16 << 20

// Query describes one API request. The transport adds format, the
// correlation token and the action itself.
type Query struct {
	Action string
	Params url.Values
}

// Fetcher issues a single API call. Transport is the HTTP implementation;
// tests substitute their own.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*Response, error)
}

type Transport struct {
	apiRoot   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger

	// in-flight calls keyed by correlation token
	mu       sync.Mutex
	inflight map[string]string
}

var _ Fetcher = (*Transport)(nil)

func NewTransport(apiRoot, userAgent string, timeout time.Duration, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		apiRoot:   apiRoot,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: timeout,
		},
		logger:   logger,
		inflight: make(map[string]string),
	}
}

// InFlight returns the number of calls that have been dispatched and not
// yet settled.
func (t *Transport) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func (t *Transport) register(action string) string {
	token := uuid.NewString()
	t.mu.Lock()
	t.inflight[token] = action
	t.mu.Unlock()
	return token
}

func (t *Transport) release(token string) {
	t.mu.Lock()
	delete(t.inflight, token)
	t.mu.Unlock()
}

// Fetch dispatches q and settles with the decoded response or an error.
// The call's correlation token is released on every return path.
func (t *Transport) Fetch(ctx context.Context, q Query) (*Response, error) {
	if q.Action == "" {
		return nil, fmt.Errorf("wiki: query has no action")
	}
	token := t.register(q.Action)
	defer t.release(token)

	fail := func(status int, err error) (*Response, error) {
		t.logger.Debug("wiki request failed",
			zap.String("action", q.Action),
			zap.String("token", token),
			zap.Int("status", status),
			zap.Error(err))
		return nil, &TransportError{Action: q.Action, Token: token, Status: status, Err: err}
	}

	params := url.Values{}
	for k, vs := range q.Params {
		params[k] = append([]string(nil), vs...)
	}
	params.Set("action", q.Action)
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("requestid", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiRoot+"?"+params.Encode(), nil)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")

	t.logger.Debug("wiki request", zap.String("action", q.Action), zap.String("token", token))
	resp, err := t.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(resp.StatusCode, errors.New(resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}
	if out.RequestID != token {
		return fail(resp.StatusCode, fmt.Errorf("%w: got %q", ErrCorrelation, out.RequestID))
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return &out, nil
}

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	contractx "github.com/tanpawarit/Chative-Support-Router/agent/contract"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
)

const maxBodyBytes = 2 << 20

type ClientConfig struct {
	DataURL      string        `split_words:"true" default:"http://localhost:8001"`
	ActionURL    string        `split_words:"true" default:"http://localhost:8002"`
	Timeout      time.Duration `default:"10s"`
	MaxRetries   uint64        `split_words:"true" default:"2"`
	RetryBackoff time.Duration `split_words:"true" default:"200ms"`
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// Client reaches remote specialists. Network failures and 5xx answers are
// retried with the same idempotency key.
type Client struct {
	urls    map[contractx.Role]string
	http    *http.Client
	retries uint64
	backoff time.Duration
	logger  zerolog.Logger
}

var _ contractx.Invoker = (*Client)(nil)

func NewClient(cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	urls := map[contractx.Role]string{
		contractx.RoleData:   strings.TrimRight(strings.TrimSpace(cfg.DataURL), "/"),
		contractx.RoleAction: strings.TrimRight(strings.TrimSpace(cfg.ActionURL), "/"),
	}
	for role, u := range urls {
		if u == "" {
			return nil, fmt.Errorf("%w: url for role=%s is required", contractx.ErrValidation, role)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	c := &Client{
		urls:    urls,
		http:    &http.Client{Timeout: timeout},
		retries: cfg.MaxRetries,
		backoff: backoff,
		logger:  logx.Component("transport_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Invoke(ctx context.Context, role contractx.Role, req contractx.SpecialistRequest) (contractx.SpecialistResponse, error) {
	base, ok := c.urls[role]
	if !ok {
		return contractx.SpecialistResponse{}, fmt.Errorf("%w: no specialist registered for role=%s", contractx.ErrRemoteUnreachable, role)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	req.Role = role

	body, err := json.Marshal(req)
	if err != nil {
		return contractx.SpecialistResponse{}, fmt.Errorf("%w: encode request: %v", contractx.ErrInternal, err)
	}

	var (
		res      attempt
		attempts int
	)
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		var err error
		res, err = c.post(ctx, base+InvokePath, req.RequestID, body)
		if err != nil {
			c.logger.Warn().Err(err).
				Str("role", string(role)).
				Str("request_id", req.RequestID).
				Int("attempt", attempts).
				Msg("specialist call failed")
		}
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", contractx.ErrRemoteUnreachable, err)
		}
		return contractx.SpecialistResponse{}, err
	}
	return res.resp, res.refusal
}

// attempt separates a specialist's own refusal from transport failures.
type attempt struct {
	resp    contractx.SpecialistResponse
	refusal error
}

func (c *Client) post(ctx context.Context, url, key string, body []byte) (attempt, error) {
	var out attempt

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("%w: build request: %v", contractx.ErrRemoteUnreachable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(IdempotencyHeader, key)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("%w: %v", contractx.ErrRemoteUnreachable, err)
		if ctx.Err() != nil {
			return out, err
		}
		return out, retry.RetryableError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return out, retry.RetryableError(fmt.Errorf("%w: read response: %v", contractx.ErrRemoteUnreachable, err))
	}

	switch {
	case httpResp.StatusCode >= http.StatusInternalServerError:
		return out, retry.RetryableError(fmt.Errorf("%w: specialist status=%d body=%s",
			contractx.ErrRemoteUnreachable, httpResp.StatusCode, strings.TrimSpace(string(raw))))
	case httpResp.StatusCode == http.StatusBadRequest:
		return out, fmt.Errorf("%w: specialist rejected request body", contractx.ErrValidation)
	case httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusUnprocessableEntity:
		return out, fmt.Errorf("%w: unexpected specialist status=%d", contractx.ErrRemoteUnreachable, httpResp.StatusCode)
	}

	if err := json.Unmarshal(raw, &out.resp); err != nil {
		return out, fmt.Errorf("%w: decode response: %v", contractx.ErrRemoteUnreachable, err)
	}
	if httpResp.StatusCode == http.StatusUnprocessableEntity {
		out.refusal = out.resp.Fault.Err()
		if out.refusal == nil {
			out.refusal = fmt.Errorf("%w: specialist refused without detail", contractx.ErrInternal)
		}
	}
	return out, nil
}

func (c *Client) FetchCard(ctx context.Context, role contractx.Role) (AgentCard, error) {
	var card AgentCard
	base, ok := c.urls[role]
	if !ok {
		return card, fmt.Errorf("%w: no specialist registered for role=%s", contractx.ErrRemoteUnreachable, role)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+AgentCardPath, nil)
	if err != nil {
		return card, fmt.Errorf("build card request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return card, fmt.Errorf("%w: %v", contractx.ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return card, fmt.Errorf("%w: card status=%d", contractx.ErrRemoteUnreachable, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&card); err != nil {
		return card, fmt.Errorf("decode agent card: %w", err)
	}
	return card, nil
}

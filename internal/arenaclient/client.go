package arenaclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/chess-arena/arena-server/pkg/arenadto"
)

// Client is the HTTP side of an arena participant: enqueueing, moving,
// chatting and fetching state for one player identity.
type Client struct {
	baseURL  string
	playerID string
	http     *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL, playerID string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		playerID:       strings.TrimSpace(playerID),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) PlayerID() string { return c.playerID }

func (c *Client) Enqueue(ctx context.Context, ranked, vsSystem bool) (*arenadto.EnqueueResponse, error) {
	req := arenadto.EnqueueRequest{Ranked: ranked, VsSystem: vsSystem}
	var resp arenadto.EnqueueResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/queue", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CancelQueue(ctx context.Context) (bool, error) {
	var resp arenadto.CancelResponse
	if err := c.doJSON(ctx, fasthttp.MethodDelete, "/queue", nil, &resp, false); err != nil {
		return false, err
	}
	return resp.WasQueued, nil
}

func (c *Client) QueueStatus(ctx context.Context) (*arenadto.QueueStatusResponse, error) {
	var resp arenadto.QueueStatusResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/queue", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Game(ctx context.Context, gameID string) (*arenadto.GameView, error) {
	var resp arenadto.GameView
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/games/"+gameID, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Move(ctx context.Context, gameID, uci string) (*arenadto.GameView, error) {
	req := arenadto.MoveRequest{UCI: uci}
	var resp arenadto.GameView
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games/"+gameID+"/moves", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Chat(ctx context.Context, gameID, text string) error {
	req := arenadto.ChatRequest{Text: text}
	return c.doJSON(ctx, fasthttp.MethodPost, "/games/"+gameID+"/chat", req, nil, false)
}

func (c *Client) Resign(ctx context.Context, gameID string) (*arenadto.GameView, error) {
	var resp arenadto.GameView
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/games/"+gameID+"/resign", nil, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	if c.playerID != "" {
		req.Header.Set("X-Player-Id", c.playerID)
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			body := string(resp.Body())
			err := fmt.Errorf("arena api error: status=%d body=%s", status, truncate(body, 512))
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

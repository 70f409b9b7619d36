package kuro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinjinmory/wuwa-tracker-go/internal/config"
)

const (
	codeSuccess    = 0
	codeSuccessAlt = 200
	codeRetry      = 1005
)

// Client talks to the queryRole endpoint. One fetch performs a fire-and-forget
// preflight, then the primary request with a bounded retry on the upstream's
// transient status code.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration

	// sleep is swapped out in tests so retries do not wall-clock wait.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(endpoint string, settings config.RefreshSettings) *Client {
	return &Client{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: time.Duration(settings.RequestTimeout) * time.Second},
		maxAttempts: settings.MaxAttempts,
		retryDelay:  time.Duration(settings.RetryDelayMs) * time.Millisecond,
		sleep:       sleepCtx,
	}
}

// FetchProfile retrieves the current resource state for one account. Every
// failure mode maps to the typed errors in errors.go; it never returns a
// partial snapshot.
func (c *Client) FetchProfile(ctx context.Context, authKey, uid, region string) (*Snapshot, error) {
	requestTimestamp := time.Now().UnixMilli()

	c.preflight(ctx, requestTimestamp)

	body, err := json.Marshal(profileRequest{
		OAuthCode: authKey,
		PlayerID:  uid,
		Region:    region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var envelope *queryRoleResponse
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		envelope, err = c.queryRole(ctx, requestTimestamp, body)
		if err != nil {
			return nil, err
		}

		if envelope.Code != nil && *envelope.Code == codeRetry && attempt < c.maxAttempts-1 {
			slog.Debug("Upstream asked for retry", "attempt", attempt+1, "code", codeRetry)
			if err := c.sleep(ctx, c.retryDelay); err != nil {
				return nil, &TransportError{Err: err}
			}
			continue
		}
		break
	}

	if envelope.Code == nil {
		return nil, &MalformedResponseError{Reason: "envelope has no status code"}
	}
	if *envelope.Code != codeSuccess && *envelope.Code != codeSuccessAlt {
		return nil, &UpstreamError{Code: *envelope.Code, Message: envelope.displayMessage()}
	}

	payloadString := extractPayload(envelope.Data)
	if payloadString == "" {
		return nil, &MalformedResponseError{Reason: "missing payload data"}
	}

	var payload queryRolePayload
	if err := json.Unmarshal([]byte(payloadString), &payload); err != nil {
		return nil, &MalformedResponseError{Reason: "payload is not valid JSON"}
	}

	profile, ok := payload.toProfile()
	if !ok {
		return nil, &MalformedResponseError{Reason: "payload missing identity fields"}
	}

	return &Snapshot{
		Profile:    profile,
		RawPayload: payloadString,
		FetchedAt:  time.Now(),
	}, nil
}

// preflight mirrors the browser CORS probe the upstream expects. Its outcome
// never affects the primary request.
func (c *Client) preflight(ctx context.Context, timestamp int64) {
	url := fmt.Sprintf("%s?_t=%d", c.endpoint, timestamp)
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, url, nil)
	if err != nil {
		return
	}
	req.Header.Set("Origin", "null")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("Preflight request failed", "error", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (c *Client) queryRole(ctx context.Context, timestamp int64, body []byte) (*queryRoleResponse, error) {
	url := fmt.Sprintf("%s?_t=%d", c.endpoint, timestamp)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Origin", "null")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var envelope queryRoleResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &MalformedResponseError{Reason: "envelope is not valid JSON"}
	}

	return &envelope, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

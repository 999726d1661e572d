package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// Client posts commands to a show server's control endpoint
type Client struct {
	BaseURL  string
	ShowID   string
	HTTP     *http.Client
	Attempts uint
	Delay    time.Duration
}

// NewClient creates a client for showID on the server at baseURL
func NewClient(baseURL, showID string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		ShowID:   showID,
		HTTP:     &http.Client{Timeout: 5 * time.Second},
		Attempts: 3,
		Delay:    200 * time.Millisecond,
	}
}

// rejectedError marks responses that retrying cannot fix
type rejectedError struct {
	status int
	body   string
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("server rejected command (%d): %s", e.status, e.body)
}

// Send posts req and returns the server's result. Network failures and 5xx
// responses are retried; 4xx responses are returned immediately.
func (c *Client) Send(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal command: %w", err)
	}
	endpoint := c.BaseURL + "/api/shows/" + url.PathEscape(c.ShowID) + "/control"

	return retry.DoWithData(
		func() (Result, error) {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
			if err != nil {
				return Result{}, retry.Unrecoverable(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.HTTP.Do(httpReq)
			if err != nil {
				return Result{}, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				rerr := &rejectedError{status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
				if resp.StatusCode < 500 {
					return Result{}, retry.Unrecoverable(rerr)
				}
				return Result{}, rerr
			}

			var res Result
			if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
				return Result{}, fmt.Errorf("failed to decode result: %w", err)
			}
			return res, nil
		},
		retry.Context(ctx),
		retry.Attempts(c.Attempts),
		retry.Delay(c.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

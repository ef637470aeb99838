package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/apimonitor/internal/domain"
)

// apiError is a non-2xx answer from the service.
type apiError struct {
	Status int
	Detail json.RawMessage
}

func (e *apiError) Error() string {
	var msg string
	if err := json.Unmarshal(e.Detail, &msg); err == nil {
		return fmt.Sprintf("api returned %d: %s", e.Status, msg)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, string(e.Detail))
}

type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		// the server probes for up to 10s before answering
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) Check(ctx context.Context, target string) (*domain.ProbeResult, error) {
	body, err := json.Marshal(map[string]string{"url": target})
	if err != nil {
		return nil, err
	}
	var out domain.ProbeResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/monitor", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type listOptions struct {
	Page      int
	PageSize  int
	Healthy   bool
	Unhealthy bool
	Search    string
}

func (o listOptions) path() string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(o.Page))
	q.Set("page_size", strconv.Itoa(o.PageSize))

	p := "/api/v1/results"
	switch {
	case o.Search != "":
		p += "/search"
		q.Set("url", o.Search)
	case o.Healthy:
		p += "/filter/healthy"
	case o.Unhealthy:
		p += "/filter/unhealthy"
	}
	return p + "?" + q.Encode()
}

func (c *client) Results(ctx context.Context, o listOptions) (*domain.Page, error) {
	var out domain.Page
	if err := c.do(ctx, http.MethodGet, o.path(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Result(ctx context.Context, id int64) (*domain.ProbeResult, error) {
	var out domain.ProbeResult
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/results/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Stats(ctx context.Context) (*domain.Stats, error) {
	var out domain.Stats
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Detail json.RawMessage `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &apiError{Status: resp.StatusCode, Detail: e.Detail}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

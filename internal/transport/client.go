// Package transport implements the remote boundary over HTTP with JSON
// request/response bodies and Bearer token authentication.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/wayfarerhq/wayfarer/pkg/errors"
	"github.com/wayfarerhq/wayfarer/pkg/remote"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = 30 * time.Second

// Client implements remote.Remote over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// Compile-time interface check to ensure proper implementation.
var _ remote.Remote = (*Client)(nil)

// New creates a new HTTP remote client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		http:    &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// CreateRecord atomically creates an entity association and its detail record.
func (c *Client) CreateRecord(ctx context.Context, entity remote.EntityPayload, detail remote.DetailPayload) (int64, error) {
	body := map[string]any{
		"entity": entity,
		"detail": detail,
	}
	var resp struct {
		RecordID int64 `json:"record_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/records", body, &resp); err != nil {
		return 0, err
	}
	return resp.RecordID, nil
}

// UpdateRecord applies a patch to an existing record.
func (c *Client) UpdateRecord(ctx context.Context, recordID int64, patch remote.Patch) (map[string]any, error) {
	var updated map[string]any
	path := fmt.Sprintf("/records/%d", recordID)
	if err := c.do(ctx, http.MethodPatch, path, patch, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRecord removes a record server-side.
func (c *Client) DeleteRecord(ctx context.Context, recordID int64) error {
	path := fmt.Sprintf("/records/%d", recordID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// FetchSummaries returns lightweight summaries for the scope.
func (c *Client) FetchSummaries(ctx context.Context, scope remote.Scope) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("min_lat", fmt.Sprintf("%f", scope.MinLat))
	query.Set("min_lng", fmt.Sprintf("%f", scope.MinLng))
	query.Set("max_lat", fmt.Sprintf("%f", scope.MaxLat))
	query.Set("max_lng", fmt.Sprintf("%f", scope.MaxLng))

	var summaries []map[string]any
	if err := c.do(ctx, http.MethodGet, "/summaries?"+query.Encode(), nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// FetchDetail returns the fully-detailed record for a place.
func (c *Client) FetchDetail(ctx context.Context, externalID string) (map[string]any, error) {
	var detail map[string]any
	path := "/places/" + url.PathEscape(externalID)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// SetFlag sets one relationship flag on the entity server-side.
func (c *Client) SetFlag(ctx context.Context, entity remote.EntityPayload, flag string, value bool) error {
	body := map[string]any{
		"entity": entity,
		"flag":   flag,
		"value":  value,
	}
	return c.do(ctx, http.MethodPut, "/flags", body, nil)
}

// do performs one JSON request/response cycle, mapping transport failures
// into the error taxonomy: connection and timeout failures are transient
// network errors, 4xx/5xx responses are server errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.WrapValidation("body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.WrapValidation("request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewServerError(method+" "+path, resp.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewServerError(method+" "+path, resp.StatusCode, "malformed response body")
	}
	return nil
}

// classifyTransportError decides whether a request failure is transient.
func classifyTransportError(op string, err error) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return &errors.NetworkError{Op: op, Message: "request timed out", Err: errors.ErrTimeout}
	}
	return errors.NewNetworkError(op, err)
}

// Package sdk provides the client-side library for the realtrack REST backend.
// It issues JSON requests against a base URL and normalizes every failure into an
// *APIError so that callers can render a consistent message.
package sdk

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

	"github.com/celerix-dev/realtrack/pkg/schema"
	"github.com/google/uuid"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// RequestIDHeader carries the per-request id generated by the client.
const RequestIDHeader = "X-Request-ID"

// Client is a REST client for the realtrack backend.
// It implements the API interface.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the timeout of the underlying *http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client for the backend at baseURL. An empty baseURL means
// DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends a request and decodes a JSON response into out (which may be nil).
// Every returned error is an *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return requestError(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return requestError(err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	c.log.Debugf("[%s] %s %s", reqID, method, u.String())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Errorf("[%s] %s %s: %v", reqID, method, u.Path, err)
		return networkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(resp.StatusCode, respBody)
		c.log.Errorf("[%s] %s %s: HTTP-%d %s", reqID, method, u.Path, resp.StatusCode, apiErr.Message)
		return apiErr
	}
	c.log.Tracef("[%s] %s %s: HTTP-%d", reqID, method, u.Path, resp.StatusCode)

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return requestError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// GetAll returns every record of a resource.
func (c *Client) GetAll(ctx context.Context, resource string) ([]schema.Record, error) {
	var list []schema.Record
	err := c.Do(ctx, http.MethodGet, resource, nil, nil, &list)
	return nonNil(list), err
}

// GetByID fetches a single record via GET /{resource}?id={id}. The backend may
// answer with the record or with a one-element list.
func (c *Client) GetByID(ctx context.Context, resource string, id any) (schema.Record, error) {
	var raw json.RawMessage
	q := url.Values{"id": {schema.IDKey(id)}}
	if err := c.Do(ctx, http.MethodGet, resource, q, nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []schema.Record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, requestError(fmt.Errorf("decode response: %w", err))
		}
		if len(list) == 0 {
			return nil, &APIError{Kind: KindNotFound, Message: "Resource not found", Status: http.StatusOK}
		}
		return list[0], nil
	}

	var rec schema.Record
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, requestError(fmt.Errorf("decode response: %w", err))
	}
	return rec, nil
}

// Query returns the records of a resource matching the given parameters.
func (c *Client) Query(ctx context.Context, resource string, params url.Values) ([]schema.Record, error) {
	var list []schema.Record
	err := c.Do(ctx, http.MethodGet, resource, params, nil, &list)
	return nonNil(list), err
}

// Create posts a new record and returns the record as stored by the backend.
func (c *Client) Create(ctx context.Context, resource string, data schema.Record) (schema.Record, error) {
	var rec schema.Record
	if data == nil {
		data = schema.Record{}
	}
	err := c.Do(ctx, http.MethodPost, resource, nil, data, &rec)
	return rec, err
}

// Update sends data as a PUT to /{resource}/{id}.
func (c *Client) Update(ctx context.Context, resource string, id any, data schema.Record) (schema.Record, error) {
	var rec schema.Record
	err := c.Do(ctx, http.MethodPut, resourcePath(resource, id), nil, data, &rec)
	return rec, err
}

// Delete removes /{resource}/{id}.
func (c *Client) Delete(ctx context.Context, resource string, id any) error {
	return c.Do(ctx, http.MethodDelete, resourcePath(resource, id), nil, nil, nil)
}

// GetRelated lists /{resource}/{id}/{relation}.
func (c *Client) GetRelated(ctx context.Context, resource string, id any, relation string) ([]schema.Record, error) {
	var list []schema.Record
	err := c.Do(ctx, http.MethodGet, resourcePath(resource, id, relation), nil, nil, &list)
	return nonNil(list), err
}

// CreateRelated posts to /{resource}/{id}/{relation}.
func (c *Client) CreateRelated(ctx context.Context, resource string, id any, relation string, data schema.Record) (schema.Record, error) {
	var rec schema.Record
	err := c.Do(ctx, http.MethodPost, resourcePath(resource, id, relation), nil, data, &rec)
	return rec, err
}

// DeleteRelated removes /{resource}/{id}/{relation}/{relatedID}.
func (c *Client) DeleteRelated(ctx context.Context, resource string, id any, relation string, relatedID any) error {
	return c.Do(ctx, http.MethodDelete, resourcePath(resource, id, relation, relatedID), nil, nil, nil)
}

// CreateLink posts a row to a link table, keyed by primaryKey and relatedKey.
func (c *Client) CreateLink(ctx context.Context, linkResource string, primaryID, relatedID any, primaryKey, relatedKey string) (schema.Record, error) {
	if primaryKey == "" {
		primaryKey = "transaction_id"
	}
	if relatedKey == "" {
		relatedKey = "building_id"
	}
	payload := schema.Record{primaryKey: primaryID, relatedKey: relatedID}
	c.log.Debugf("creating link on %s: %s=%v %s=%v", linkResource, primaryKey, primaryID, relatedKey, relatedID)

	var rec schema.Record
	err := c.Do(ctx, http.MethodPost, linkResource, nil, payload, &rec)
	return rec, err
}

// DeleteLink removes a link by its (primary, related) id pair.
func (c *Client) DeleteLink(ctx context.Context, primaryID, relatedID any) error {
	return c.Do(ctx, http.MethodDelete, resourcePath("links", primaryID, relatedID), nil, nil, nil)
}

func resourcePath(resource string, parts ...any) string {
	segs := make([]string, 0, len(parts)+1)
	segs = append(segs, resource)
	for _, p := range parts {
		segs = append(segs, url.PathEscape(schema.IDKey(p)))
	}
	return strings.Join(segs, "/")
}

func nonNil(list []schema.Record) []schema.Record {
	if list == nil {
		return []schema.Record{}
	}
	return list
}

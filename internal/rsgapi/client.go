// Package rsgapi is a small client for the RSG-Admin REST API.
package rsgapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/rsg-workblocks/internal/model"
)

// API endpoint paths.
const (
	PathGetToken   = "/api/get-token/"
	PathRSEs       = "/api/rses/"
	PathProjects   = "/api/projects/"
	PathWorkblocks = "/api/workblocks/"
)

const userAgent = "submit-workblocks/1.0"

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Client talks to one API deployment.
type Client struct {
	baseURL string
	base    *http.Client
	// authed carries the Authorization header once Authenticate is called.
	authed *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		base:    httpClient,
		authed:  httpClient,
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Authenticate makes every later List and Create call send
// "Authorization: Token <token>".
func (c *Client) Authenticate(token string) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Token"})
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	c.authed = oauth2.NewClient(ctx, ts)
	c.authed.Timeout = c.base.Timeout
}

// List fetches the collection at path filtered by query parameters.
func (c *Client) List(ctx context.Context, path string, filters url.Values) ([]model.Record, error) {
	endpoint := c.baseURL + path
	if len(filters) > 0 {
		endpoint += "?" + filters.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var records []model.Record
	if err := c.do(c.authed, req, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Create POSTs form-encoded fields to the collection at path and returns the
// created object.
func (c *Client) Create(ctx context.Context, path string, fields url.Values) (model.Record, error) {
	req, err := newFormRequest(ctx, c.baseURL+path, fields)
	if err != nil {
		return nil, err
	}

	var record model.Record
	if err := c.do(c.authed, req, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func newFormRequest(ctx context.Context, endpoint string, fields url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// do sends req and decodes a 2xx JSON body into result.
func (c *Client) do(hc *http.Client, req *http.Request, result any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(result); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}

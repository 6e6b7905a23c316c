// Package provider talks to the remote comics metadata API.
//
// Every lookup is gated on cardinality: the engine only ever receives a
// record when the provider reports code 200 and exactly one result. All
// other outcomes come back as *LookupError.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
)

// DefaultBaseURL is the public gateway of the provider.
const DefaultBaseURL = "https://gateway.marvel.com/v1/public"

// maxBody caps how much of a response is read.
const maxBody = 16 << 20

// Client looks records up by retail code or by id.
type Client struct {
	baseURL string
	signer  Signer
	http    *http.Client
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces the wall clock used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, signer Signer, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		http:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LookupByCode finds the single issue carrying the retail code.
func (c *Client) LookupByCode(ctx context.Context, code string) (json.RawMessage, error) {
	q := url.Values{"upc": {code}}
	return c.lookup(ctx, "comics", q, "comics?upc="+code)
}

// LookupByID fetches the record of the given kind and id.
func (c *Client) LookupByID(ctx context.Context, kind catalog.Kind, id int64) (json.RawMessage, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("lookup by id: unknown kind %q", kind)
	}
	path := kind.Endpoint() + "/" + strconv.FormatInt(id, 10)
	return c.lookup(ctx, path, url.Values{}, path)
}

// envelope is the wrapper around every provider response. Code is numeric
// on success but a string on some authentication failures.
type envelope struct {
	Code   json.RawMessage `json:"code"`
	Status string          `json:"status"`
	Data   struct {
		Count   int               `json:"count"`
		Results []json.RawMessage `json:"results"`
	} `json:"data"`
}

func (e *envelope) code() string {
	return strings.Trim(string(e.Code), `"`)
}

func (c *Client) lookup(ctx context.Context, path string, q url.Values, target string) (json.RawMessage, error) {
	for k, v := range c.signer.Sign(c.now()) {
		q[k] = v
	}
	reqURL := c.baseURL + "/" + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &LookupError{Code: ErrCodeTransport, Target: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &LookupError{Code: ErrCodeTransport, Target: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &LookupError{Code: ErrCodeTransport, Target: target, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &LookupError{Code: ErrCodeNotFound, Target: target, Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &LookupError{
			Code:   ErrCodeTransport,
			Target: target,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status %q", resp.Status),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &LookupError{Code: ErrCodeTransport, Target: target, Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if env.code() == "404" {
		return nil, &LookupError{Code: ErrCodeNotFound, Target: target, Status: http.StatusNotFound}
	}
	if env.code() != "200" {
		return nil, &LookupError{
			Code:   ErrCodeTransport,
			Target: target,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("provider code %s: %s", env.code(), env.Status),
		}
	}

	slog.Debug("provider lookup", "target", target, "count", env.Data.Count)

	switch {
	case env.Data.Count == 0 || len(env.Data.Results) == 0:
		return nil, &LookupError{Code: ErrCodeEmpty, Target: target, Status: resp.StatusCode}
	case env.Data.Count > 1 || len(env.Data.Results) > 1:
		return nil, &LookupError{Code: ErrCodeAmbiguous, Target: target, Status: resp.StatusCode, Count: max(env.Data.Count, len(env.Data.Results))}
	}
	return env.Data.Results[0], nil
}

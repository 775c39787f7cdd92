// Package bankapi is a small client for ParaBank's JSON REST services.
package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/golang/glog"
)

// TransactionsByAmountPath searches the transactions of the logged-in
// customer by amount.
const TransactionsByAmountPath = "/parabank/services/bank/findtransbyamount"

// ErrNotList is returned by DecodeList when the body is not a JSON array.
var ErrNotList = errors.New("response body is not a JSON list")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("unexpected HTTP status %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Transaction is a ParaBank account transaction.
type Transaction struct {
	ID          int64   `json:"id"`
	AccountID   int64   `json:"accountId"`
	Type        string  `json:"type"`
	Date        int64   `json:"date"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// Response is a buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a *StatusError unless the status is 2xx.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	body := r.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{Code: r.StatusCode, Body: string(bytes.TrimSpace(body))}
}

// DecodeList decodes a JSON array body into v, which must point to a slice.
// An empty array is valid; anything else that is not an array is ErrNotList.
func (r *Response) DecodeList(v interface{}) error {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%w: %.64q", ErrNotList, trimmed)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("decoding list: %w", err)
	}
	return nil
}

// Client issues requests against one ParaBank host.
type Client struct {
	base *url.URL
	hc   *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar, if any, is
// used by SetCookies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// New returns a Client for the host of baseURL.
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base: base,
		hc:   &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetCookies stores cookies for the base host, e.g. the browser's session
// cookie so requests run as the logged-in customer.
func (c *Client) SetCookies(cookies []*http.Cookie) error {
	if c.hc.Jar == nil {
		return errors.New("http client has no cookie jar")
	}
	// Browsers report host-only cookies with an explicit domain that the jar
	// would reject for IP hosts; scope them to the base URL instead.
	scoped := make([]*http.Cookie, len(cookies))
	for i, ck := range cookies {
		cp := *ck
		cp.Domain = ""
		scoped[i] = &cp
	}
	c.hc.Jar.SetCookies(c.base, scoped)
	return nil
}

// Get issues GET path?query against the base host and buffers the reply. Only
// transport failures are errors; use Response.Err for the status.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	glog.V(1).Infof("GET %s", u)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response of GET %s: %w", u, err)
	}
	glog.V(2).Infof("<- %s %d bytes", resp.Status, len(body))
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// TransactionsByAmount finds the transactions of the given amount.
func (c *Client) TransactionsByAmount(ctx context.Context, amount string) ([]Transaction, error) {
	resp, err := c.Get(ctx, TransactionsByAmountPath, url.Values{"amount": {amount}})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var txns []Transaction
	if err := resp.DecodeList(&txns); err != nil {
		return nil, err
	}
	return txns, nil
}

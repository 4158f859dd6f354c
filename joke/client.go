// Package joke is a client for the api.chucknorris.io joke service.
package joke

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultBaseURL is the root of the public joke endpoints
const DefaultBaseURL = "https://api.chucknorris.io/jokes"

// Client issues calls against the joke service.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures a Client
type Option func(*Client) error

// WithBaseURL points the client at a different service root
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return errors.Wrapf(err, "invalid base URL %q", baseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Newf("base URL must be http or https, got %q", baseURL)
		}
		if u.Host == "" {
			return errors.Newf("base URL has no host: %q", baseURL)
		}
		c.baseURL = strings.TrimSuffix(baseURL, "/")
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for outbound calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		c.client = client
		return nil
	}
}

// NewClient creates a Client. Without options it targets DefaultBaseURL
// through http.DefaultClient.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: DefaultBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL returns the service root the client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Random fetches a random joke
func (c *Client) Random(ctx context.Context) (*Joke, error) {
	return c.joke(ctx, "")
}

// RandomByCategory fetches a random joke from category.
// Unknown categories are rejected by the service, not here.
func (c *Client) RandomByCategory(ctx context.Context, category string) (*Joke, error) {
	return c.joke(ctx, "category="+Escape(category))
}

// joke fetches from /random. A body without an id or text, such as null,
// is a decode failure.
func (c *Client) joke(ctx context.Context, rawQuery string) (*Joke, error) {
	var joke Joke
	if err := c.get(ctx, "/random", rawQuery, &joke); err != nil {
		return nil, err
	}
	if joke.ID == "" && joke.Value == "" {
		return nil, decodeError(errors.New("joke has no id or value"))
	}
	return &joke, nil
}

// Categories lists the category names in the order the service returns them
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, "/categories", "", &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		return nil, decodeError(errors.New("category list is missing"))
	}
	return categories, nil
}

// Search runs a full-text search for query
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	var result SearchResult
	if err := c.get(ctx, "/search", "query="+Escape(query), &result); err != nil {
		return nil, err
	}
	if result.Result == nil {
		return nil, decodeError(errors.New("search response has no result list"))
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path, rawQuery string, v interface{}) error {
	u := c.baseURL + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return transportError(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return upstreamError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return decodeError(err)
	}
	return nil
}

// Escape percent-encodes s for use as a query value. Spaces become %20
// rather than '+', and only letters, digits and -_.~ pass through unescaped.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

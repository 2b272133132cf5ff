// Package assembla is a thin client for the Assembla REST API. The
// conversion pipeline works off an export file; this client only fills
// the gaps the export leaves open, such as resolving user ids to real
// names and emails.
package assembla

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Assembla API endpoint.
	DefaultBaseURL = "https://api.assembla.com/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// requestsPerSecond throttles outgoing calls; Assembla rejects bursty
	// clients with 429s well below its documented limits.
	requestsPerSecond = 10

	// versionsPerPage is the page size for wiki page version listings.
	versionsPerPage = 40
)

// User is an Assembla user profile.
type User struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// WikiPageVersion is one revision of a wiki page as returned by the API.
type WikiPageVersion struct {
	ID         string    `json:"id"`
	WikiPageID string    `json:"wiki_page_id"`
	UserID     string    `json:"user_id"`
	Version    int       `json:"version"`
	Contents   string    `json:"contents"`
	ChangeCmt  string    `json:"change_comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Client talks to the Assembla REST API using key/secret header auth.
type Client struct {
	baseURL string
	key     string
	secret  string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates an Assembla API client authenticating with the given
// key and secret.
func NewClient(key, secret string, opts ...Option) (*Client, error) {
	if key == "" || secret == "" {
		return nil, ErrMissingCredentials
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		key:     key,
		secret:  secret,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetUser fetches a user profile by id or login.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.get(ctx, fmt.Sprintf("/users/%s.json", id), &user); err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &user, nil
}

// ListWikiPageVersions fetches all revisions of a wiki page, walking the
// paginated listing until an empty page is returned.
func (c *Client) ListWikiPageVersions(ctx context.Context, space, pageID string) ([]WikiPageVersion, error) {
	var all []WikiPageVersion
	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		path := fmt.Sprintf("/spaces/%s/wiki_pages/%s/versions.json?per_page=%d&page=%d",
			space, pageID, versionsPerPage, page)
		var batch []WikiPageVersion
		if err := c.get(ctx, path, &batch); err != nil {
			return nil, fmt.Errorf("list wiki page versions %s: %w", pageID, err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < versionsPerPage {
			break
		}
	}
	return all, nil
}

// get performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.key)
	req.Header.Set("X-Api-Secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			URL:        url,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

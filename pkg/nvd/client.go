package nvd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/disruptiq/depscan/pkg/errors"
)

const (
	defaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	httpTimeout    = 10 * time.Second

	// resultsPerPage bounds each keyword query. Matches on a bare package
	// name are noisy past the first few entries, so deeper pages add cost
	// without signal.
	resultsPerPage = 5
)

// Client performs keyword searches against the CVE API 2.0.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey attaches an NVD API key, which raises the service's rate limit.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = base }
}

// NewClient creates a Client with the standard request timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one keyword query and returns the matching CVEs. A 429
// response is reported as *errors.RateLimitedError so the session can back
// off, an expired request deadline as ErrCodeTimeout; every other failure
// is a structured network error.
func (c *Client) Search(ctx context.Context, keyword string) ([]CVE, error) {
	query := url.Values{
		"keywordSearch":  {keyword},
		"resultsPerPage": {strconv.Itoa(resultsPerPage)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "building NVD request")
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "NVD request timed out")
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "querying NVD")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return nil, &errors.RateLimitedError{RetryAfter: retryAfter}
	default:
		return nil, errors.New(errors.ErrCodeNetwork, "NVD returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "decoding NVD response")
	}

	cves := make([]CVE, 0, len(body.Vulnerabilities))
	for _, v := range body.Vulnerabilities {
		cves = append(cves, v.CVE.toCVE())
	}
	return cves, nil
}

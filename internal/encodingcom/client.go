package encodingcom

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"encodeflow/internal/logging"
	"encodeflow/internal/services"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 1 << 20
)

// HTTPDoer describes the HTTP client used to reach the provider.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client submits AddMedia requests to the provider.
type Client struct {
	endpoint string
	http     HTTPDoer
	timeout  time.Duration
	logger   *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout bounds each submission. Values <= 0 keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a logger for request and response tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a provider client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimSpace(endpoint),
		http:     http.DefaultClient,
		timeout:  defaultTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "encodingcom")
	return c
}

type addMediaResponse struct {
	XMLName xml.Name
	MediaID *string  `xml:"MediaID"`
	Errors  []string `xml:"errors>error"`
}

// Submit posts doc as the form field "xml" and returns the provider's MediaID.
// Transport problems and non-2xx replies yield ErrTransport; an unparseable
// body or one without MediaID yields ErrMalformedProviderResponse. There are
// no retries.
func (c *Client) Submit(ctx context.Context, doc []byte) (string, error) {
	if c == nil || c.http == nil {
		return "", services.Wrap(services.ErrConfiguration, "encodingcom", "submit", "client is not configured", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{"xml": {string(doc)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "encodingcom", "submit", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/xml")

	c.logger.Debug("sending request to provider",
		logging.String("endpoint", c.endpoint),
		logging.String("request", RedactCredentials(string(doc))),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "encodingcom", "submit", "post request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "encodingcom", "submit", "read response", err)
	}
	c.logger.Debug("provider response",
		logging.Int("status_code", resp.StatusCode),
		logging.String("response", string(body)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrTransport, "encodingcom", "submit",
			fmt.Sprintf("provider returned %d: %s", resp.StatusCode, snippet(body)), nil)
	}

	return parseMediaID(body)
}

func parseMediaID(body []byte) (string, error) {
	var parsed addMediaResponse
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&parsed); err != nil {
		return "", services.Wrap(services.ErrMalformedProviderResponse, "encodingcom", "submit",
			fmt.Sprintf("unparseable response: %s", snippet(body)), err)
	}
	if parsed.MediaID == nil || strings.TrimSpace(*parsed.MediaID) == "" {
		message := "response has no MediaID"
		if len(parsed.Errors) > 0 {
			message = fmt.Sprintf("%s (provider errors: %s)", message, strings.Join(parsed.Errors, "; "))
		}
		return "", services.Wrap(services.ErrMalformedProviderResponse, "encodingcom", "submit", message, nil)
	}
	return strings.TrimSpace(*parsed.MediaID), nil
}

var credentialElements = regexp.MustCompile(`(<(userid|userkey)>)[^<]*(</(userid|userkey)>)`)

// RedactCredentials masks the userid and userkey elements of a request document.
func RedactCredentials(doc string) string {
	return credentialElements.ReplaceAllString(doc, "${1}[redacted]${3}")
}

func snippet(body []byte) string {
	const limit = 200
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

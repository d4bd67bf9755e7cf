package flipside

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/draup/assetexplorer/nft/pkg/query"
	"github.com/draup/assetexplorer/nft/pkg/transfer"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultBaseURL      = "https://node-api.flipsidecrypto.com"
	DefaultPollInterval = time.Second

	statusFinished = "finished"
	statusRunning  = "running"
	statusError    = "error"
)

var (
	ErrMissingAPIKey = errors.New("flipside api key is not configured")
	ErrQueryFailed   = errors.New("flipside query failed")
	ErrQueryTimeout  = errors.New("flipside query timed out")
)

type Config struct {
	Logger       *slog.Logger
	Clock        clockwork.Clock
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	HTTPClient   *retryablehttp.Client
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(cfg.Logger)
	}
	return nil
}

// NewHTTPClient returns a retrying client suitable for the query API.
func NewHTTPClient(log *slog.Logger) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.Logger = log
	return c
}

// Client runs SQL on the Flipside query API.
type Client struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{log: cfg.Logger, cfg: cfg}, nil
}

func (c *Client) Backend() string { return "flipside" }

type createQueryRequest struct {
	SQL        string `json:"sql"`
	TTLMinutes int    `json:"ttlMinutes"`
	Cached     bool   `json:"cached"`
}

type createQueryResponse struct {
	Token  string `json:"token"`
	Errors any    `json:"errors"`
}

type queryResultResponse struct {
	Results      [][]any  `json:"results"`
	ColumnLabels []string `json:"columnLabels"`
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	Errors       any      `json:"errors"`
}

// Run submits the query and polls until it finishes, fails, or exceeds the
// request timeout.
func (c *Client) Run(ctx context.Context, req query.Request) ([]transfer.Row, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	req = req.WithDefaults()

	token, err := c.createQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	c.log.Debug("flipside: query submitted", "token", token)

	timeout := c.cfg.Clock.NewTimer(req.Timeout)
	defer timeout.Stop()
	ticker := c.cfg.Clock.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		res, err := c.getResult(ctx, token, req.PageSize)
		if err != nil {
			return nil, err
		}
		switch res.Status {
		case statusFinished:
			rows := zipRows(res.ColumnLabels, res.Results)
			c.log.Debug("flipside: query finished", "token", token, "rows", len(rows))
			return rows, nil
		case statusError:
			return nil, fmt.Errorf("%w: %s", ErrQueryFailed, describeErrors(res.Message, res.Errors))
		case statusRunning, "":
		default:
			c.log.Debug("flipside: unexpected query status", "token", token, "status", res.Status)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout.Chan():
			return nil, fmt.Errorf("%w after %s", ErrQueryTimeout, req.Timeout)
		case <-ticker.Chan():
		}
	}
}

func (c *Client) createQuery(ctx context.Context, req query.Request) (string, error) {
	body, err := json.Marshal(createQueryRequest{
		SQL:        req.SQL,
		TTLMinutes: int(req.TTL / time.Minute),
		Cached:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}

	var out createQueryResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("queries"), body, &out); err != nil {
		return "", fmt.Errorf("failed to create query: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: %s", ErrQueryFailed, describeErrors("no query token returned", out.Errors))
	}
	return out.Token, nil
}

func (c *Client) getResult(ctx context.Context, token string, pageSize int) (*queryResultResponse, error) {
	u := c.endpoint("queries", url.PathEscape(token)) + "?" + url.Values{
		"pageNumber": []string{"1"},
		"pageSize":   []string{strconv.Itoa(pageSize)},
	}.Encode()

	var out queryResultResponse
	if err := c.do(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get query result: %w", err)
	}
	return &out, nil
}

func (c *Client) endpoint(parts ...string) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// zipRows pairs each result row with lower-cased column labels.
func zipRows(labels []string, results [][]any) []transfer.Row {
	keys := make([]string, len(labels))
	for i, l := range labels {
		keys[i] = strings.ToLower(l)
	}
	rows := make([]transfer.Row, 0, len(results))
	for _, values := range results {
		row := make(transfer.Row, len(keys))
		for i, k := range keys {
			if i < len(values) {
				row[k] = values[i]
			} else {
				row[k] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func describeErrors(msg string, errs any) string {
	if errs == nil {
		return msg
	}
	b, err := json.Marshal(errs)
	if err != nil || string(b) == "null" {
		return msg
	}
	if msg == "" {
		return string(b)
	}
	return msg + ": " + string(b)
}

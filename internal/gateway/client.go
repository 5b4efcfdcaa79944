// Package gateway implements domain.MetricSource against the health
// gateway REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"example.com/snapshot/internal/domain"
)

const timeFormat = time.RFC3339

// Config holds connection parameters for the gateway client.
type Config struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client is a rate-limited HTTP client for the health gateway.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
}

// NewClient constructs a Client from config, applying conservative
// defaults for the rate limit and request timeout.
func NewClient(cfg Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 10),
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
	}
}

// RequestAccess asks the gateway to grant read access to the given scopes.
func (c *Client) RequestAccess(ctx context.Context, scopes []domain.MetricID) error {
	body, err := json.Marshal(map[string][]domain.MetricID{"scopes": scopes})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/v1/authorize", nil, body, nil)
}

// BiologicalSex fetches the static profile characteristic.
func (c *Client) BiologicalSex(ctx context.Context) (domain.BiologicalSex, error) {
	var resp struct {
		BiologicalSex string `json:"biological_sex"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/profile/biological-sex", nil, nil, &resp); err != nil {
		return domain.SexUnknown, err
	}
	switch sex := domain.BiologicalSex(resp.BiologicalSex); sex {
	case domain.SexFemale, domain.SexMale, domain.SexOther, domain.SexNotSet:
		return sex, nil
	default:
		return domain.SexUnknown, nil
	}
}

// ScalarPerDay fetches one aggregate value per day bucket.
func (c *Client) ScalarPerDay(ctx context.Context, q domain.ScalarQuery) ([]float64, error) {
	params := url.Values{}
	params.Set("start", q.Start.Format(timeFormat))
	params.Set("end", q.End.Format(timeFormat))
	params.Set("unit", q.Unit)
	params.Set("mode", string(q.Mode))
	params.Set("bucket_seconds", fmt.Sprintf("%d", int64(q.Bucket.Seconds())))

	var resp struct {
		Values []float64 `json:"values"`
	}
	endpoint := "/v1/metrics/" + url.PathEscape(string(q.Metric)) + "/daily"
	if err := c.do(ctx, http.MethodGet, endpoint, params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Samples fetches raw samples intersecting the query interval.
func (c *Client) Samples(ctx context.Context, q domain.SampleQuery) ([]domain.Sample, error) {
	params := url.Values{}
	params.Set("start", q.Start.Format(timeFormat))
	params.Set("end", q.End.Format(timeFormat))

	var resp struct {
		Samples []struct {
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
			Value float64   `json:"value"`
		} `json:"samples"`
	}
	endpoint := "/v1/metrics/" + url.PathEscape(string(q.Metric)) + "/samples"
	if err := c.do(ctx, http.MethodGet, endpoint, params, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Sample, 0, len(resp.Samples))
	for _, s := range resp.Samples {
		end := s.End
		if end.IsZero() {
			end = s.Start
		}
		out = append(out, domain.Sample{Start: s.Start, End: end, Value: s.Value})
	}
	return out, nil
}

// Correlations fetches correlated sample bundles.
func (c *Client) Correlations(ctx context.Context, q domain.CorrelationQuery) ([]domain.Correlation, error) {
	params := url.Values{}
	params.Set("start", q.Start.Format(timeFormat))
	params.Set("end", q.End.Format(timeFormat))
	for _, comp := range q.Components {
		params.Add("component", string(comp))
	}

	var resp struct {
		Samples []struct {
			Timestamp  time.Time          `json:"timestamp"`
			Components map[string]float64 `json:"components"`
		} `json:"samples"`
	}
	endpoint := "/v1/correlations/" + url.PathEscape(string(q.Correlation))
	if err := c.do(ctx, http.MethodGet, endpoint, params, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Correlation, 0, len(resp.Samples))
	for _, s := range resp.Samples {
		comps := make(map[domain.MetricID]float64, len(s.Components))
		for id, v := range s.Components {
			comps[domain.MetricID(id)] = v
		}
		out = append(out, domain.Correlation{Timestamp: s.Timestamp, Components: comps})
	}
	return out, nil
}

// do performs one authenticated request against the gateway, decoding the
// response into out when it is non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError maps gateway status codes onto the aggregation error taxonomy.
func apiError(statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return &domain.AuthorizationError{Reason: "invalid or expired gateway token"}
	case http.StatusForbidden:
		return &domain.AuthorizationError{Reason: "read access denied"}
	case http.StatusServiceUnavailable:
		return &domain.AuthorizationError{Reason: "health store unavailable"}
	case http.StatusNotFound:
		return fmt.Errorf("%w: not known to gateway", domain.ErrUnsupportedMetric)
	default:
		return fmt.Errorf("gateway error (status %d): %s", statusCode, string(body))
	}
}

package personio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/engine"
)

var (
	// ErrRateLimited is returned while the upstream cooldown after a 429 is active.
	ErrRateLimited = errors.New("personio: rate limited")
	// ErrUnauthorized is returned when Personio rejects the credentials or the token.
	ErrUnauthorized = errors.New("personio: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist upstream.
	ErrNotFound = errors.New("personio: not found")
)

const (
	tokenLifetime = 55 * time.Minute
	cooldownKey   = "cooldown"
)

var upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orgchart",
	Subsystem: "personio",
	Name:      "requests_total",
	Help:      "Requests sent to the Personio API broken down by endpoint and status.",
}, []string{"endpoint", "status"})

// Client talks to the Personio v1 API and normalizes its records.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	pageSize     int
	cooldown     time.Duration
	http         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	negative *cache.Cache
	now      func() time.Time
}

// NewClient creates a Personio client from its configuration section.
func NewClient(cfg *config.PersonioConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logrus.WithError(err).Warnf("invalid proxy URL %q; personio client will not use a proxy", cfg.HTTPProxy)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		pageSize:     pageSize,
		cooldown:     cooldown,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		negative: cache.New(cooldown, 10*time.Minute),
		now:      time.Now,
	}
}

// Employees fetches every employee page. On a mid-way failure the records fetched so far are
// returned together with the error.
func (c *Client) Employees(ctx context.Context) ([]engine.Employee, error) {
	var out []engine.Employee
	err := c.paginate(ctx, "/company/employees", nil, func(raw json.RawMessage) {
		e, err := normalizeEmployee(raw)
		if err != nil {
			logrus.WithError(err).Warn("skipping malformed employee record")
			return
		}
		out = append(out, e)
	})
	return out, err
}

// Absences fetches every time-off period overlapping [from, to].
func (c *Client) Absences(ctx context.Context, from, to time.Time) ([]engine.AbsenceRecord, error) {
	params := url.Values{}
	params.Set("start_date", engine.FormatDate(from))
	params.Set("end_date", engine.FormatDate(to))

	var out []engine.AbsenceRecord
	err := c.paginate(ctx, "/company/time-offs", params, func(raw json.RawMessage) {
		rec, ok, err := normalizeAbsence(raw)
		if err != nil {
			logrus.WithError(err).Warn("skipping malformed time-off record")
			return
		}
		if ok {
			out = append(out, rec)
		}
	})
	return out, err
}

// ProfilePicture returns the image bytes and content type of an employee's picture.
func (c *Client) ProfilePicture(ctx context.Context, employeeID int64, width int) ([]byte, string, error) {
	path := fmt.Sprintf("/company/employees/%d/profile-picture/%d", employeeID, width)
	resp, err := c.do(ctx, "profile-picture", path, nil, "image/png")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return body, contentType, nil
}

func (c *Client) paginate(ctx context.Context, path string, params url.Values, each func(json.RawMessage)) error {
	total := 1
	fetched := 0
	for page := 0; fetched < total; page++ {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(page*c.pageSize))

		resp, err := c.fetchPage(ctx, path, q)
		if err != nil {
			return fmt.Errorf("page %d of %s: %w", page, path, err)
		}
		if len(resp.Data) == 0 {
			break
		}
		for _, raw := range resp.Data {
			each(raw)
		}
		fetched += len(resp.Data)
		total = resp.Metadata.TotalElements
		if total == 0 && len(resp.Data) == c.pageSize {
			// No metadata: keep going until a short page.
			total = fetched + 1
		}
		logrus.WithFields(logrus.Fields{"path": path, "page": page, "fetched": fetched, "total": total}).Debug("fetched personio page")
	}
	return nil
}

func (c *Client) fetchPage(ctx context.Context, path string, q url.Values) (*listResponse, error) {
	resp, err := c.do(ctx, strings.TrimPrefix(path, "/company/"), path, q, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp listResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if !apiResp.Success {
		if apiResp.Error != nil {
			return nil, fmt.Errorf("personio returned error %d: %s", apiResp.Error.Code, apiResp.Error.Message)
		}
		return nil, errors.New("personio returned success=false")
	}
	return &apiResp, nil
}

// do sends an authenticated GET and maps upstream failures to the package errors.
// The caller owns the body of a successful response.
func (c *Client) do(ctx context.Context, endpoint, path string, q url.Values, accept string) (*http.Response, error) {
	if _, limited := c.negative.Get(cooldownKey); limited {
		return nil, ErrRateLimited
	}

	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		upstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		c.startCooldown(resp.Header.Get("Retry-After"))
		return nil, ErrRateLimited
	case http.StatusUnauthorized:
		c.dropToken()
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("received non-200 status code %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		upstreamRequests.WithLabelValues("auth", "error").Inc()
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()
	upstreamRequests.WithLabelValues("auth", strconv.Itoa(resp.StatusCode)).Inc()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		c.startCooldown(resp.Header.Get("Retry-After"))
		return "", ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized
	default:
		return "", fmt.Errorf("auth returned status code %d", resp.StatusCode)
	}

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal auth response: %w", err)
	}
	if !authResp.Success || authResp.Data.Token == "" {
		return "", fmt.Errorf("%w: authentication failed", ErrUnauthorized)
	}

	c.token = authResp.Data.Token
	c.tokenExpiry = c.now().Add(tokenLifetime)
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

func (c *Client) startCooldown(retryAfter string) {
	d := c.cooldown
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		d = time.Duration(secs) * time.Second
	}
	logrus.WithField("cooldown", d).Warn("personio rate limit hit; pausing upstream calls")
	c.negative.Set(cooldownKey, struct{}{}, d)
}

package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/config"
	"absence-visualizer-backend/internal/engine"
)

// ErrRateLimited is returned when the holiday API answers 429.
var ErrRateLimited = errors.New("holidays: rate limited")

const (
	successTTL = 24 * time.Hour
	failureTTL = 5 * time.Minute
)

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "orgchart",
	Subsystem: "holidays",
	Name:      "requests_total",
	Help:      "Requests sent to the public holiday API broken down by status.",
}, []string{"status"})

// nagerHoliday is one entry of the Nager.Date PublicHolidays response.
type nagerHoliday struct {
	Date      string   `json:"date"`
	LocalName string   `json:"localName"`
	Name      string   `json:"name"`
	Global    bool     `json:"global"`
	Counties  []string `json:"counties"`
}

type failure struct{ err error }

// Client fetches public holidays from a Nager.Date compatible API and caches them per year.
type Client struct {
	baseURL string
	country string
	http    *http.Client
	cache   *cache.Cache
}

// NewClient creates a holiday client from its configuration section.
func NewClient(cfg *config.HolidaysConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		country: cfg.Country,
		http:    &http.Client{Timeout: 15 * time.Second},
		cache:   cache.New(successTTL, time.Hour),
	}
}

// Year returns the holidays of one calendar year.
func (c *Client) Year(ctx context.Context, year int) ([]engine.PublicHoliday, error) {
	key := strconv.Itoa(year)
	if v, found := c.cache.Get(key); found {
		switch v := v.(type) {
		case []engine.PublicHoliday:
			return v, nil
		case failure:
			return nil, v.err
		}
	}

	holidays, err := c.fetch(ctx, year)
	if err != nil {
		if ctx.Err() == nil {
			c.cache.Set(key, failure{err: err}, failureTTL)
		}
		return nil, err
	}
	c.cache.Set(key, holidays, successTTL)
	return holidays, nil
}

// Range returns the holidays of every year touched by [from, to].
func (c *Client) Range(ctx context.Context, from, to time.Time) ([]engine.PublicHoliday, error) {
	var out []engine.PublicHoliday
	for year := from.Year(); year <= to.Year(); year++ {
		hs, err := c.Year(ctx, year)
		if err != nil {
			return out, fmt.Errorf("holidays for %d: %w", year, err)
		}
		out = append(out, hs...)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, year int) ([]engine.PublicHoliday, error) {
	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.baseURL, year, c.country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		requests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	requests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	var raw []nagerHoliday
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holidays: %w", err)
	}

	out := make([]engine.PublicHoliday, 0, len(raw))
	for _, h := range raw {
		if _, err := engine.ParseDate(h.Date); err != nil {
			logrus.WithField("date", h.Date).Warn("skipping holiday with malformed date")
			continue
		}
		name := h.Name
		if name == "" {
			name = h.LocalName
		}
		out = append(out, engine.PublicHoliday{
			Date:     h.Date,
			Name:     name,
			Global:   h.Global,
			Counties: h.Counties,
		})
	}
	logrus.WithFields(logrus.Fields{"year": year, "country": c.country, "count": len(out)}).Info("loaded public holidays")
	return out, nil
}

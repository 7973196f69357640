package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/internal/engine"
	"absence-visualizer-backend/internal/holidays"
	"absence-visualizer-backend/internal/personio"
	"absence-visualizer-backend/internal/store"
)

// PictureSource proxies employee profile pictures.
type PictureSource interface {
	ProfilePicture(ctx context.Context, employeeID int64, width int) ([]byte, string, error)
}

// HolidaySource returns the public holidays of a calendar year.
type HolidaySource interface {
	Year(ctx context.Context, year int) ([]engine.PublicHoliday, error)
}

// Options carries the optional collaborators of a Handler.
type Options struct {
	Pictures         PictureSource
	Holidays         HolidaySource
	OrganizationName string
	Location         *time.Location
	WebPush          *webpush.Options
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	pictures PictureSource
	holidays HolidaySource
	orgName  string
	loc      *time.Location
	webpush  *webpush.Options
	now      func() time.Time

	// treeMu guards memo and the nodes it hands out until they are serialized.
	treeMu sync.Mutex
	memo   *engine.Memo
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, opts Options) *Handler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:    s,
		pictures: opts.Pictures,
		holidays: opts.Holidays,
		orgName:  opts.OrganizationName,
		loc:      loc,
		webpush:  opts.WebPush,
		now:      time.Now,
		memo:     engine.NewMemo(),
	}
}

// today is the current calendar date in the organization's timezone.
func (h *Handler) today() time.Time {
	y, m, d := h.now().In(h.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dateQuery reads an optional YYYY-MM-DD query parameter, defaulting to today.
func (h *Handler) dateQuery(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return h.today(), nil
	}
	d, err := engine.ParseDate(raw)
	if err != nil {
		var verr *engine.ValidationError
		if errors.As(err, &verr) {
			verr.Field = key
		}
		return time.Time{}, err
	}
	return d, nil
}

// respondError maps domain and upstream errors to a JSON error response.
func respondError(c *gin.Context, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, engine.ErrEmployeeNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "employee not found"})
	case errors.Is(err, personio.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, personio.ErrRateLimited), errors.Is(err, holidays.ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "upstream rate limit reached, try again later"})
	case errors.Is(err, personio.ErrUnauthorized):
		logrus.WithError(err).Error("upstream rejected credentials")
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "upstream unavailable"})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

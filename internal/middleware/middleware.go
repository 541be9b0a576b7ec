package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/DocAssist/internal/config"
	"github.com/akolanti/DocAssist/internal/metrics"
	"github.com/akolanti/DocAssist/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
	limited    bool
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

// Options configures authentication. With neither a token nor a JWT
// secret every request is let through.
type Options struct {
	Token     string
	JWTSecret string
}

// Chain runs trace injection, authentication and, for the expensive
// routes, per-IP rate limiting before a handler.
type Chain struct {
	opts    Options
	limiter *IPRateLimiter
	logger  *logger_i.Logger
}

func New(opts Options) *Chain {
	c := &Chain{
		opts:    opts,
		limiter: NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND),
		logger:  logger_i.NewLogger("middleware"),
	}
	if opts.Token == "" && opts.JWTSecret == "" {
		c.logger.Warn("no auth token or JWT secret configured, requests are not authenticated")
	}
	return c
}

func (c *Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return c.wrap(next, false)
}

// WrapLimited also applies the per-IP rate limit.
func (c *Chain) WrapLimited(next http.HandlerFunc) http.HandlerFunc {
	return c.wrap(next, true)
}

func (c *Chain) wrap(next http.HandlerFunc, limited bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := c.processRequest(requestResponseStruct{req: r, writer: rec, limited: limited})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routeLabel(re.req), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func (c *Chain) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = c.logger
	re = injectTrace(re)
	if !handleBadRequest(re) {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = c.authenticate(re)
	if !handleBadRequest(re) {
		return re //stop if auth fails
	}
	if re.limited {
		re = c.rateLimiter(re)
		if !handleBadRequest(re) {
			return re //stop here if rate limit fails
		}
	}
	return re
}

// routeLabel keeps ids out of the metric labels.
func routeLabel(r *http.Request) string {
	if r == nil {
		return "unknown"
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

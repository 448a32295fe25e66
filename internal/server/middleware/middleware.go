package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/information-sharing-networks/sri-gateway/internal/api"
	"github.com/information-sharing-networks/sri-gateway/internal/logger"
)

// RequestSizeLimit rejects submissions whose body is larger than maxBytes.
//
// A declared Content-Length over the limit is answered with 413 before the handler runs.
// Otherwise the body is wrapped in a MaxBytesReader and the emit handler reports the
// overflow when it reads past the limit.
//
// Every response carries an X-Max-Request-Size header with the limit.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Max-Request-Size", strconv.FormatInt(maxBytes, 10))

			if r.ContentLength > maxBytes {
				err := api.NewRequestTooLargeError(
					fmt.Sprintf("Request body size (%d bytes) exceeds maximum allowed size (%d bytes)", r.ContentLength, maxBytes),
				)
				api.RespondWithError(w, r, err)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets the response headers for a JSON-only API.
// Results carry signed documents, so nothing is cacheable by intermediaries.
// HSTS is only sent in prod and staging.
func SecurityHeaders(environment string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")

			if environment == "prod" || environment == "staging" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIdleTimeout is how long a client's limiter is kept after its last request.
const clientIdleTimeout = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client address.
type clientLimiters struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastPrune time.Time
}

func (c *clientLimiters) allow(client string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastPrune) > clientIdleTimeout {
		for addr, cl := range c.clients {
			if now.Sub(cl.lastSeen) > clientIdleTimeout {
				delete(c.clients, addr)
			}
		}
		c.lastPrune = now
	}

	cl, ok := c.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(c.rps, c.burst)}
		c.clients[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// clientAddress returns the host part of RemoteAddr (already rewritten by chi's RealIP).
func clientAddress(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimit limits each client address to requestsPerSecond with the given burst.
// If requestsPerSecond <= 0, rate limiting is disabled.
func RateLimit(requestsPerSecond int32, burst int32) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	limiters := &clientLimiters{
		rps:     rate.Limit(requestsPerSecond),
		burst:   int(burst),
		clients: make(map[string]*clientLimiter),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddress(r)
			if !limiters.allow(client, time.Now()) {
				reqLogger := logger.ContextRequestLogger(r.Context())

				reqLogger.Warn("rate limit exceeded",
					slog.String("component", "RateLimit"),
					slog.String("client", client),
				)

				logger.ContextWithLogAttrs(r.Context(),
					slog.String("client", client),
				)

				err := api.NewRateLimitError("Too many requests. Please try again later.")
				api.RespondWithError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

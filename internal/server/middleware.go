// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/sciqa/internal/logging"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxClientRequestID = 128
)

// RequestID injects a request ID into the context and response header. A
// client-supplied X-Request-ID is kept when it is short enough.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > maxClientRequestID {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// CORS adds CORS headers and answers preflight requests.
func CORS(allowOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
			w.Header().Set("Access-Control-Expose-Headers", requestIDHeader)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Recovery catches panics and returns 500.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("error", fmt.Sprintf("%v", rec)),
						zap.String("request_id", logging.RequestID(r.Context())),
					)
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error: "internal server error",
						Code:  string(ErrCatUnknown),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs request method, path, status, and duration.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				zap.String("request_id", logging.RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter implements per-IP token bucket rate limiting. Buckets idle
// for longer than limiterIdleTTL are dropped.
type IPRateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientLimiter
	rps        rate.Limit
	burst      int
	trustProxy bool
	now        func() time.Time
	lastSweep  time.Time
}

// NewIPRateLimiter returns a limiter allowing rps requests per second per
// client IP with the given burst. X-Forwarded-For is consulted only when
// trustProxy is set, i.e. when a reverse proxy in front of the server
// overwrites or appends it.
func NewIPRateLimiter(rps float64, burst int, trustProxy bool) *IPRateLimiter {
	return &IPRateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rps:        rate.Limit(rps),
		burst:      burst,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.lastSweep.IsZero() {
		l.lastSweep = now
	}
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		for key, cl := range l.limiters {
			if now.Sub(cl.lastSeen) >= limiterIdleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	cl, ok := l.limiters[ip]
	if !ok {
		cl = &clientLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.lim
}

// Middleware enforces the limit. Requests over it get 429.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.getLimiter(clientIP(r, l.trustProxy)).Allow() {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
				Code:  string(ErrCatRateLimit),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address. Behind a trusted proxy it returns the
// last X-Forwarded-For hop, the one the proxy itself appended; earlier hops
// are client-controlled.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

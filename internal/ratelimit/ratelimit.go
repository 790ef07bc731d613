// Package ratelimit enforces per-client fixed-window request quotas.
//
// Counters live in the shared store when it is reachable, so concurrent
// instances enforce one combined quota; when it is not, each instance falls
// back to an in-process counter. The fallback is a documented degradation
// (quota becomes per-instance), never a request failure: a broken store
// must not turn a rate-limit check into a 500.
package ratelimit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nchanko/countrystate/internal/api"
	"github.com/nchanko/countrystate/internal/cache"
	"github.com/nchanko/countrystate/internal/health"
)

// KeyFunc extracts a rate limiting key from a request. Returning an empty
// string skips rate limiting for that request.
type KeyFunc func(*http.Request) string

// Limiter is fixed-window rate limiting middleware.
type Limiter struct {
	shared  cache.Store // nil when no shared store is configured
	local   *cache.Memory
	monitor *health.Monitor
	limit   int64
	window  time.Duration
	timeout time.Duration
	keyFn   KeyFunc
}

// Config holds limiter settings.
type Config struct {
	// Limit is the maximum number of requests per window.
	Limit int

	// Window is the fixed window length. Counter TTLs equal the window, so
	// storage never grows unbounded.
	Window time.Duration

	// Timeout bounds shared-store increments.
	Timeout time.Duration

	// Name is prepended to every key so stacked limiters do not collide.
	Name string

	// TrustProxyHeaders honors X-Forwarded-For / X-Real-IP when extracting
	// the client IP. Enable only behind a trusted proxy.
	TrustProxyHeaders bool
}

// New creates a limiter keyed by client IP. shared may be nil; local is the
// in-process fallback counter and is shared between limiters so closing it
// is the caller's job.
func New(shared cache.Store, local *cache.Memory, monitor *health.Monitor, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 150 * time.Millisecond
	}
	return &Limiter{
		shared:  shared,
		local:   local,
		monitor: monitor,
		limit:   int64(cfg.Limit),
		window:  cfg.Window,
		timeout: cfg.Timeout,
		keyFn:   byIP(cfg.Name, cfg.TrustProxyHeaders),
	}
}

// check admits or rejects one request. retryAfter is only meaningful on
// reject.
func (l *Limiter) check(ctx context.Context, key string) (allowed bool, remaining int64, retryAfter time.Duration) {
	count, ttl := l.increment(ctx, key)
	remaining = max(0, l.limit-count)
	if count > l.limit {
		return false, remaining, ttl
	}
	return true, remaining, ttl
}

// increment prefers the shared store and falls back to the local counter on
// any shared-store error. A timeout degrades this request only; a
// connection-level error flips the monitor so later requests skip the
// shared attempt until the supervisor restores it.
func (l *Limiter) increment(ctx context.Context, key string) (int64, time.Duration) {
	if l.shared != nil && l.monitor.Mode() == health.ModeShared {
		cctx, cancel := context.WithTimeout(ctx, l.timeout)
		count, ttl, err := l.shared.Increment(cctx, key, l.window)
		cancel()
		if err == nil {
			l.monitor.MarkContact()
			return count, ttl
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			l.monitor.MarkFailure(err)
		}
	}

	count, ttl, err := l.local.Increment(ctx, key, l.window)
	if err != nil {
		// The memory counter cannot fail; admit rather than block traffic.
		return 1, l.window
	}
	return count, ttl
}

// Handler returns the middleware. Responses carry RateLimit-Limit,
// RateLimit-Remaining, and RateLimit-Reset; rejections add Retry-After with
// the seconds until the window resets and a structured 429 body.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.keyFn(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, ttl := l.check(r.Context(), key)

		resetTime := time.Now().Add(ttl).Unix()
		w.Header().Set("RateLimit-Limit", strconv.FormatInt(l.limit, 10))
		w.Header().Set("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("RateLimit-Reset", strconv.FormatInt(resetTime, 10))

		if !allowed {
			retryAfter := int(ttl.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			api.WriteJSON(w, api.ErrRateLimited.Status, api.ErrorBody(api.ErrRateLimited))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// byIP builds a key function using the client IP. With proxy headers
// trusted, the first X-Forwarded-For hop or X-Real-IP wins; otherwise the
// connection's RemoteAddr is authoritative.
func byIP(name string, trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		ip := clientIP(r, trustProxy)
		if ip == "" {
			return ""
		}
		var b strings.Builder
		b.Grow(len(name) + 4 + len(ip))
		if name != "" {
			b.WriteString(name)
			b.WriteByte(':')
		}
		b.WriteString("ip:")
		b.WriteString(ip)
		return b.String()
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			if i := strings.IndexByte(fwd, ','); i >= 0 {
				fwd = fwd[:i]
			}
			return strings.TrimSpace(fwd)
		}
		if real := r.Header.Get("X-Real-IP"); real != "" {
			return strings.TrimSpace(real)
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

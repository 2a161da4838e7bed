package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SecurityHeaders wraps a handler with security headers for the arena
// surface: the JSON API plus the static rating page. media-src admits the
// external track previews the rating page streams; everything else stays
// same-origin.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; media-src 'self' https:; connect-src 'self'")
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		next.ServeHTTP(w, r)
	})
}

// NoCacheStatic disables caching for the rating page assets so raters pick
// up redeployed pages without a hard refresh.
func NoCacheStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter allows at most limit requests per client within a rolling
// window. Guards the open registration endpoint, so the client table is
// pruned as windows lapse rather than growing with every IP ever seen.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
}

type rateWindow struct {
	count    int
	expireAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
	}
}

// Allow records a request from the client and reports whether it is within
// the limit.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[client]
	if !ok || now.After(w.expireAt) {
		rl.prune(now)
		rl.windows[client] = &rateWindow{count: 1, expireAt: now.Add(rl.window)}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

// prune drops lapsed windows. Called with the mutex held.
func (rl *RateLimiter) prune(now time.Time) {
	for client, w := range rl.windows {
		if now.After(w.expireAt) {
			delete(rl.windows, client)
		}
	}
}

// clientIP resolves the requesting client: the first hop of
// X-Forwarded-For when present, otherwise RemoteAddr without its port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware rejects over-limit requests with 429.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			jsonError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

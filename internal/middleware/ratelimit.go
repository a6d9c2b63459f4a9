package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimit enforces a fixed-window request budget per client IP.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	l := &ipLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*requestWindow),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(limiterKey(r), time.Now()) {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type requestWindow struct {
	seen    int
	resetAt time.Time
}

type ipLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*requestWindow
}

func (l *ipLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	win := l.windows[key]
	if win == nil || now.After(win.resetAt) {
		l.prune(now)
		win = &requestWindow{resetAt: now.Add(l.window)}
		l.windows[key] = win
	}
	if win.seen >= l.limit {
		return false
	}
	win.seen++
	return true
}

// prune drops expired windows so one-off clients do not accumulate forever.
func (l *ipLimiter) prune(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for key, win := range l.windows {
		if now.After(win.resetAt) {
			delete(l.windows, key)
		}
	}
}

// limiterKey picks the first parseable forwarded address, falling back to the
// socket peer.
func limiterKey(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		candidate := strings.TrimSpace(part)
		if candidate != "" && net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}

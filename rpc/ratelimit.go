package rpc

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	visitorTTL       = 5 * time.Minute
	maxTrackedPeers  = 10_000
	pruneCheckPeriod = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client.
type rateLimiter struct {
	perSecond rate.Limit
	burst     int

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastPrune time.Time
	now       func() time.Time
}

func newRateLimiter(perSecond float64, burst int) *rateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		visitors:  make(map[string]*visitor),
		now:       time.Now,
	}
}

func (l *rateLimiter) allow(id string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)
	entry, ok := l.visitors[id]
	if !ok {
		entry = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[id] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *rateLimiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < pruneCheckPeriod && len(l.visitors) < maxTrackedPeers {
		return
	}
	l.lastPrune = now
	for id, entry := range l.visitors {
		if now.Sub(entry.lastSeen) > visitorTTL {
			delete(l.visitors, id)
		}
	}
}

// clientID identifies the caller by its remote host. Forwarded headers are
// ignored so clients cannot pick their own bucket.
func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

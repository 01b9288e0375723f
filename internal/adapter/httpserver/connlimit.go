package httpserver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	apperrors "github.com/pscheid92/coachpulse/internal/platform/errors"
	"golang.org/x/time/rate"
)

const (
	relayMaxConnections = 200
	relayMaxPerIP       = 3
	relayConnectRate    = 1.0 // new relay connections per second per IP
	relayConnectBurst   = 5

	connRateCleanupEvery = 5 * time.Minute
	connRateIdleAfter    = 10 * time.Minute
)

// limitReason describes why a connection was rejected.
type limitReason string

const (
	limitReasonGlobal limitReason = "global_limit"
	limitReasonPerIP  limitReason = "per_ip_limit"
	limitReasonRate   limitReason = "rate_limit"
)

// connectionLimits caps long-lived connections (voice relay websockets) by
// instance total, concurrent per IP, and new connections per second per IP.
type connectionLimits struct {
	current atomic.Int64
	max     int64

	mu        sync.Mutex
	perIP     map[string]int
	maxPerIP  int
	limiters  map[string]*connRateEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
	now       func() time.Time
}

type connRateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newConnectionLimits(maxTotal int64, maxPerIP int, perSecond float64, burst int) *connectionLimits {
	return &connectionLimits{
		max:       maxTotal,
		perIP:     make(map[string]int),
		maxPerIP:  maxPerIP,
		limiters:  make(map[string]*connRateEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		now:       time.Now,
	}
}

// Acquire reserves a slot for ip. On success the caller must Release.
func (l *connectionLimits) Acquire(ip string) (bool, limitReason) {
	if !l.allow(ip) {
		return false, limitReasonRate
	}
	if !l.acquireGlobal() {
		return false, limitReasonGlobal
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perIP[ip] >= l.maxPerIP {
		l.current.Add(-1)
		return false, limitReasonPerIP
	}
	l.perIP[ip]++
	return true, ""
}

func (l *connectionLimits) Release(ip string) {
	l.mu.Lock()
	if n := l.perIP[ip]; n > 1 {
		l.perIP[ip] = n - 1
	} else {
		delete(l.perIP, ip)
	}
	l.mu.Unlock()
	l.current.Add(-1)
}

func (l *connectionLimits) Current() int64 {
	return l.current.Load()
}

func (l *connectionLimits) CountIP(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

func (l *connectionLimits) acquireGlobal() bool {
	for {
		cur := l.current.Load()
		if cur >= l.max {
			return false
		}
		if l.current.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (l *connectionLimits) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	switch {
	case l.cleanupAt.IsZero():
		l.cleanupAt = now.Add(connRateCleanupEvery)
	case now.After(l.cleanupAt):
		cutoff := now.Add(-connRateIdleAfter)
		for k, e := range l.limiters {
			if e.lastSeen.Before(cutoff) {
				delete(l.limiters, k)
			}
		}
		l.cleanupAt = now.Add(connRateCleanupEvery)
	}

	e, ok := l.limiters[ip]
	if !ok {
		e = &connRateEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// limitConnections holds a slot for the lifetime of the handler.
func limitConnections(l *connectionLimits, m *metrics.RelayMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			ok, reason := l.Acquire(ip)
			if !ok {
				if m != nil {
					m.Rejected.WithLabelValues(string(reason)).Inc()
				}
				return apperrors.RateLimitedError("too many voice connections").WithField("reason", string(reason))
			}
			defer l.Release(ip)

			if m != nil {
				m.Active.Inc()
				defer m.Active.Dec()
			}
			return next(c)
		}
	}
}

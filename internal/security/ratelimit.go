package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aquatrace/aquatrace-go/internal/conf"
)

const limiterIdleEviction = 15 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter throttles login attempts per client address so credential
// guessing cannot run at line rate.
type LoginLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

// NewLoginLimiter builds a limiter from the security settings. A
// non-positive rate disables throttling.
func NewLoginLimiter(settings *conf.Settings) *LoginLimiter {
	return &LoginLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(settings.Security.LoginRateLimit),
		burst:   settings.Security.LoginRateBurst,
	}
}

// Allow reports whether the client identified by addr may attempt a login
// right now.
func (l *LoginLimiter) Allow(addr string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	client, ok := l.clients[addr]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[addr] = client
	}
	client.lastSeen = now

	// Opportunistic eviction of idle clients keeps the map bounded without
	// a background goroutine.
	if len(l.clients) > 1024 {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdleEviction {
				delete(l.clients, key)
			}
		}
	}

	return client.limiter.Allow()
}

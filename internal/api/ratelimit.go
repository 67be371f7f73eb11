package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/stocksim/pkg/config"
	"github.com/wonny/stocksim/pkg/logger"
	"github.com/wonny/stocksim/pkg/redis"
)

// Limiter decides whether a client may issue another request
type Limiter interface {
	Allow(r *http.Request, client string) (bool, error)
}

// NewLimiter shares limits through Redis when it is enabled and falls back to
// one token bucket per client inside this process otherwise.
func NewLimiter(rl *redis.RateLimiter, cfg config.APIConfig) Limiter {
	if rl != nil && rl.Enabled() {
		// burst requests per the time the bucket needs to refill
		window := time.Duration(float64(cfg.SimulateBurst) / cfg.SimulateRate * float64(time.Second))
		return &redisLimiter{rl: rl, limit: cfg.SimulateBurst, window: window}
	}
	return newLocalLimiter(rate.Limit(cfg.SimulateRate), cfg.SimulateBurst)
}

type redisLimiter struct {
	rl     *redis.RateLimiter
	limit  int
	window time.Duration
}

func (l *redisLimiter) Allow(r *http.Request, client string) (bool, error) {
	allowed, _, err := l.rl.Allow(r.Context(), redis.SimulateRateLimit(client, l.limit, l.window))
	return allowed, err
}

// limiterIdleTTL is how long an unused client bucket is kept
const limiterIdleTTL = 10 * time.Minute

type clientBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type localLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	clients   map[string]*clientBucket
	lastSweep time.Time
	now       func() time.Time
}

func newLocalLimiter(limit rate.Limit, burst int) *localLimiter {
	return &localLimiter{
		limit:   limit,
		burst:   burst,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (l *localLimiter) Allow(_ *http.Request, client string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.clients[client]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = b
	}
	b.seen = now

	return b.lim.AllowN(now, 1), nil
}

// sweep drops buckets idle for longer than limiterIdleTTL. Callers hold mu.
func (l *localLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < limiterIdleTTL {
		return
	}
	for client, b := range l.clients {
		if now.Sub(b.seen) >= limiterIdleTTL {
			delete(l.clients, client)
		}
	}
	l.lastSweep = now
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// rateLimitMiddleware rejects clients over their limit with 429.
// A failing limiter lets the request through.
func rateLimitMiddleware(limiter Limiter, clients *ClientResolver, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clients.Key(r)

			allowed, err := limiter.Allow(r, client)
			if err != nil {
				log.WithError(err).WithField("client", client).Warn("Rate limiter unavailable")
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientResolver names the caller of a request for rate limiting
type ClientResolver struct {
	trusted map[string]struct{}
}

// NewClientResolver believes X-Forwarded-For only when the peer is one of trusted
func NewClientResolver(trusted []string) *ClientResolver {
	c := &ClientResolver{trusted: make(map[string]struct{}, len(trusted))}
	for _, addr := range trusted {
		c.trusted[addr] = struct{}{}
	}
	return c
}

// Key returns the peer address, or behind a trusted proxy the nearest
// forwarded address that is not itself a trusted proxy.
func (c *ClientResolver) Key(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		client = hop
		if !c.isTrusted(hop) {
			break
		}
	}
	return client
}

func (c *ClientResolver) isTrusted(addr string) bool {
	_, ok := c.trusted[addr]
	return ok
}

package middleware

import (
	"context"
	"sync"
	"time"

	"minimail/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter tracks one token bucket per client IP
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateClient
	every   rate.Limit
	burst   int
	idleTTL time.Duration
	nowFunc func() time.Time
}

func newClientLimiter(requests int, duration time.Duration) *clientLimiter {
	if requests <= 0 {
		requests = 1
	}
	return &clientLimiter{
		clients: make(map[string]*rateClient),
		every:   rate.Every(duration / time.Duration(requests)),
		burst:   requests,
		idleTTL: 10 * time.Minute,
		nowFunc: time.Now,
	}
}

func (l *clientLimiter) allow(ip string) bool {
	l.mu.Lock()
	cl, exists := l.clients[ip]
	if !exists {
		cl = &rateClient{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = l.nowFunc()
	l.mu.Unlock()

	return cl.limiter.Allow()
}

// sweep forgets clients idle for longer than idleTTL
func (l *clientLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFunc()
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, ip)
		}
	}
}

// RateLimiter allows each client IP `requests` per `duration` with an
// equal burst. Idle clients are forgotten until ctx is done.
func RateLimiter(ctx context.Context, requests int, duration time.Duration) fiber.Handler {
	limiter := newClientLimiter(requests, duration)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.sweep()
			}
		}
	}()

	return func(c *fiber.Ctx) error {
		if !limiter.allow(c.IP()) {
			return utils.TooManyRequestsError(utils.T(localizerFrom(c), "TooManyRequests"), nil)
		}
		return c.Next()
	}
}

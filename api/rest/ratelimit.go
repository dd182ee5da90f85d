package rest

import (
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/agorascan/agorascan-node/common/logger"
)

// RateLimitConfig rate limiting configuration
type RateLimitConfig struct {
	MaxRequestsPerSecond int           // Default: 50 requests/sec per client
	BurstSize            int           // Burst allowance: 100
	BanDuration          time.Duration // Ban duration when exceeded: 60 seconds
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MaxRequestsPerSecond: 50,
		BurstSize:            100,
		BanDuration:          60 * time.Second,
	}
}

// clientLimiter tracks the token bucket for a single client
type clientLimiter struct {
	mu sync.Mutex

	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	bannedUntil time.Time
}

// RateLimiter manages rate limiting for all clients of the public API
type RateLimiter struct {
	mu sync.RWMutex

	config  *RateLimitConfig
	clients map[string]*clientLimiter // key: client IP

	cleanupInterval time.Duration
	stopCh          chan struct{}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	rl := &RateLimiter{
		config:          config,
		clients:         make(map[string]*clientLimiter),
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes clients that refilled completely (idle long enough)
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, client := range rl.clients {
		client.mu.Lock()
		idle := now.Sub(client.lastRefill) > rl.cleanupInterval && now.After(client.bannedUntil)
		client.mu.Unlock()
		if idle {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) limiterFor(key string) *clientLimiter {
	rl.mu.RLock()
	client, ok := rl.clients[key]
	rl.mu.RUnlock()
	if ok {
		return client
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if client, ok = rl.clients[key]; ok {
		return client
	}
	client = &clientLimiter{
		tokens:     float64(rl.config.BurstSize),
		maxTokens:  float64(rl.config.BurstSize),
		refillRate: float64(rl.config.MaxRequestsPerSecond),
		lastRefill: time.Now(),
	}
	rl.clients[key] = client
	return client
}

// Allow consumes one token; exceeding the bucket bans the client
func (rl *RateLimiter) Allow(key string) bool {
	client := rl.limiterFor(key)

	client.mu.Lock()
	defer client.mu.Unlock()

	now := time.Now()
	if now.Before(client.bannedUntil) {
		return false
	}

	// refill the token bucket
	elapsed := now.Sub(client.lastRefill).Seconds()
	client.tokens += elapsed * client.refillRate
	if client.tokens > client.maxTokens {
		client.tokens = client.maxTokens
	}
	client.lastRefill = now

	if client.tokens < 1 {
		client.bannedUntil = now.Add(rl.config.BanDuration)
		log.Warn("Rate limit exceeded, client banned: ", key)
		return false
	}

	client.tokens--
	return true
}

// Middleware applies the limiter per client IP
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}

		if !rl.Allow(host) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

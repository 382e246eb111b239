package middleware

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/djgianterkancelik-svg/xentix/utils"

	redis "github.com/redis/go-redis/v9"
)

// IPRateLimiter applies per-IP fixed-window limits with trusted-proxy
// X-Forwarded-For parsing. Counters live in memory; when REDIS_ADDR is set
// they move to Redis so limits hold across replicas. A Redis outage degrades
// to allow rather than blocking traffic.
type IPRateLimiter struct {
	max         int
	window      time.Duration
	trustedCIDR []string

	mu    sync.Mutex
	state map[string][]int64 // unix nanos per IP

	rdb    *redis.Client
	prefix string
}

func NewIPRateLimiter(maxReq int, window time.Duration) *IPRateLimiter {
	l := &IPRateLimiter{
		max:    maxReq,
		window: window,
		state:  make(map[string][]int64),
		prefix: "xentix:rl:",
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		l.trustedCIDR = strings.Split(v, ",")
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Printf("[ratelimit] redis ping failed, using in-memory counters: %v", err)
		} else {
			l.rdb = rc
		}
	}
	go l.cleanupLoop()
	return l
}

// allow counts the request and reports whether it is within the limit,
// along with how many slots remain in the current window.
func (l *IPRateLimiter) allow(ctx context.Context, ip string) (bool, int) {
	if l.rdb != nil {
		key := l.prefix + ip
		n, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			return true, l.max
		}
		if n == 1 {
			l.rdb.Expire(ctx, key, l.window)
		}
		remaining := l.max - int(n)
		if remaining < 0 {
			remaining = 0
		}
		return n <= int64(l.max), remaining
	}

	now := time.Now().UnixNano()
	cutoff := now - int64(l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.state[ip][:0]
	for _, ts := range l.state[ip] {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.state[ip] = kept
	remaining := l.max - len(kept)
	if remaining < 0 {
		remaining = 0
	}
	return len(kept) <= l.max, remaining
}

// Middleware applies the limit and sets rate-limit headers.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPGeneric(r, l.trustedCIDR)
		ok, remaining := l.allow(r.Context(), ip)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", l.max))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		if !ok {
			retryAfter := int(l.window.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: "Too many requests, try again later",
				Data:    map[string]interface{}{"retry_after_seconds": retryAfter},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().UnixNano() - int64(l.window)
		l.mu.Lock()
		for ip, arr := range l.state {
			kept := arr[:0]
			for _, ts := range arr {
				if ts >= cutoff {
					kept = append(kept, ts)
				}
			}
			if len(kept) == 0 {
				delete(l.state, ip)
			} else {
				l.state[ip] = kept
			}
		}
		l.mu.Unlock()
	}
}

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when remote addr is inside
// one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package lotteryhandlers

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lotterydomain "github.com/Black-And-White-Club/numbers-lottery/app/modules/lottery/domain"
	"github.com/Black-And-White-Club/numbers-lottery/pkg/jwt"
	"golang.org/x/time/rate"
)

const (
	cleanupThreshold = 500
	maxIdleAge       = 10 * time.Minute
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	ips map[string]*ipEntry
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

// NewIPRateLimiter creates a limiter allowing r requests per second with
// burst b for each IP.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*ipEntry),
		r:   r,
		b:   b,
	}
}

// GetLimiter returns the limiter for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	if entry, ok := i.ips[ip]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	if len(i.ips) >= cleanupThreshold {
		for k, e := range i.ips {
			if now.Sub(e.lastSeen) > maxIdleAge {
				delete(i.ips, k)
			}
		}
	}

	limiter := rate.NewLimiter(i.r, i.b)
	i.ips[ip] = &ipEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// RateLimitMiddleware rejects requests over the per-IP budget with 429.
func RateLimitMiddleware(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiter.GetLimiter(ip).Allow() {
				writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware allows the configured browser origins. A "*" entry opens
// the API to any origin but never with credentials.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case origin == "":
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
				setCORSMethods(w)
			case allowed["*"]:
				w.Header().Set("Access-Control-Allow-Origin", "*")
				setCORSMethods(w)
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setCORSMethods(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

type (
	callerKey struct{}
	roleKey   struct{}
)

// WithCaller stores the authenticated caller address in ctx.
func WithCaller(ctx context.Context, caller lotterydomain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the authenticated caller stored by CallerMiddleware.
func CallerFrom(ctx context.Context) (lotterydomain.Address, bool) {
	caller, ok := ctx.Value(callerKey{}).(lotterydomain.Address)
	return caller, ok
}

// WithRole stores the authenticated caller's role in ctx.
func WithRole(ctx context.Context, role jwt.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFrom returns the role stored by CallerMiddleware.
func RoleFrom(ctx context.Context) (jwt.Role, bool) {
	role, ok := ctx.Value(roleKey{}).(jwt.Role)
	return role, ok
}

// RequireRole rejects callers whose token does not carry role. It must run
// after CallerMiddleware.
func RequireRole(role jwt.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got, ok := RoleFrom(r.Context()); !ok || got != role {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "requires role "+string(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerMiddleware authenticates the bearer token and attaches its subject
// address and role to the request context.
func CallerMiddleware(tokens jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
				return
			}
			claims, err := tokens.ValidateToken(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
				return
			}
			caller, err := lotterydomain.ParseAddress(claims.Subject)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token subject is not an address")
				return
			}
			ctx := WithRole(WithCaller(r.Context(), caller), jwt.Role(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

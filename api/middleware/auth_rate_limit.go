package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dollmart/dollmart-backend/api/responses"
	pkgerrors "github.com/dollmart/dollmart-backend/pkg/errors"
	"github.com/dollmart/dollmart-backend/pkg/logger"
)

// RateLimiter is the counter surface the auth limiter needs.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy bounds login and registration attempts per client.
type AuthRateLimitPolicy struct {
	PerIPLimit     int
	PerEmailLimit  int
	Window         time.Duration
	TrustProxyAddr bool
}

func DefaultAuthRateLimitPolicy() AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		PerIPLimit:    30,
		PerEmailLimit: 10,
		Window:        time.Minute,
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			parts := strings.Split(fwd, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func extractEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBody))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func hashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:8])
}

// AuthRateLimit applies a fixed window limit per source IP and, when the
// body carries one, per submitted email. The email is hashed before it is
// used as a key so addresses never land in Redis verbatim.
func AuthRateLimit(limiter RateLimiter, policy AuthRateLimitPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()

			ip := clientIP(r, policy.TrustProxyAddr)
			if ip != "" && policy.PerIPLimit > 0 {
				allowed, _, err := limiter.FixedWindowAllow(ctx, "auth_ip:"+hashValue(ip), int64(policy.PerIPLimit), policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(ctx, "rate_limit.store_unavailable")
					}
				} else if !allowed {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, slow down"))
					return
				}
			}

			if email := extractEmail(r); email != "" && policy.PerEmailLimit > 0 {
				allowed, _, err := limiter.FixedWindowAllow(ctx, "auth_email:"+hashValue(email), int64(policy.PerEmailLimit), policy.Window)
				if err != nil {
					if logg != nil {
						logg.Warn(ctx, "rate_limit.store_unavailable")
					}
				} else if !allowed {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, slow down"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dollmart/dollmart-backend/api/responses"
	"github.com/dollmart/dollmart-backend/pkg/config"
	pkgerrors "github.com/dollmart/dollmart-backend/pkg/errors"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/dollmart/dollmart-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	maxIdempotencyBody     = 1 << 20
)

type idempotencyRecord struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
	RequestHash string `json:"request_hash"`
}

type idempotencyRule struct {
	method  string
	matcher func(path string) bool
	ttl     time.Duration
}

func matchExact(path string) func(string) bool {
	return func(p string) bool { return p == path }
}

func matchPrefixSuffix(prefix, suffix string) func(string) bool {
	return func(p string) bool {
		return strings.HasPrefix(p, prefix) && strings.HasSuffix(p, suffix) && len(p) > len(prefix)+len(suffix)
	}
}

// Checkout and delivery confirmation are the money paths, so replays of
// those are remembered for longer than ordinary writes. The money-path TTL
// is tunable through the checkout config.
func idempotencyRulesFor(cfg config.CheckoutConfig) []idempotencyRule {
	moneyTTL := cfg.IdempotencyTTL
	if moneyTTL <= 0 {
		moneyTTL = criticalIdempotencyTTL
	}
	return []idempotencyRule{
		{method: http.MethodPost, matcher: matchExact("/api/v1/checkout"), ttl: moneyTTL},
		{method: http.MethodPost, matcher: matchPrefixSuffix("/api/manager/v1/orders/", "/confirm-delivery"), ttl: moneyTTL},
		{method: http.MethodPost, matcher: matchExact("/api/v1/auth/register"), ttl: defaultIdempotencyTTL},
	}
}

func idempotencyTTLFor(rules []idempotencyRule, r *http.Request) (time.Duration, bool) {
	for _, rule := range rules {
		if rule.method == r.Method && rule.matcher(r.URL.Path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

type responseCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotency replays the stored response when a request carries an
// Idempotency-Key seen before. A reused key with a different payload is
// rejected rather than replayed.
func Idempotency(store redis.IdempotencyStore, cfg config.CheckoutConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	rules := idempotencyRulesFor(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := idempotencyTTLFor(rules, r)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scope := UserIDFromContext(ctx)
			if scope == "" {
				scope = "anonymous"
			}
			storeKey := store.IdempotencyKey(scope, key)

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(append([]byte(r.Method+" "+r.URL.Path+"\n"), body...))
			reqHash := hex.EncodeToString(sum[:])

			if stored, err := store.Get(ctx, storeKey); err == nil && stored != "" {
				var rec idempotencyRecord
				if jsonErr := json.Unmarshal([]byte(stored), &rec); jsonErr == nil {
					if rec.RequestHash != reqHash {
						responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request"))
						return
					}
					if rec.Status == 0 {
						// Another request with this key is still in flight.
						responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still processing"))
						return
					}
					if rec.ContentType != "" {
						w.Header().Set("Content-Type", rec.ContentType)
					}
					w.Header().Set("Idempotency-Replayed", "true")
					w.WriteHeader(rec.Status)
					_, _ = w.Write([]byte(rec.Body))
					return
				}
			}

			pending, _ := json.Marshal(idempotencyRecord{RequestHash: reqHash})
			acquired, err := store.SetNX(ctx, storeKey, string(pending), ttl)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "idempotency_key", key), "idempotency.store_unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still processing"))
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.status == 0 {
				capture.status = http.StatusOK
			}

			// Failed attempts must not pin the key, the client should be
			// able to retry with the same key.
			if capture.status >= http.StatusInternalServerError {
				_ = store.Del(ctx, storeKey)
				return
			}

			rec := idempotencyRecord{
				Status:      capture.status,
				Body:        capture.buf.String(),
				ContentType: capture.Header().Get("Content-Type"),
				RequestHash: reqHash,
			}
			encoded, err := json.Marshal(rec)
			if err != nil {
				_ = store.Del(ctx, storeKey)
				return
			}
			if err := store.Set(ctx, storeKey, string(encoded), ttl); err != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "idempotency_key", key), "idempotency.record_failed")
			}
		})
	}
}

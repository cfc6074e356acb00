package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/config"
)

// cachedResponse is what one cache entry holds.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

// hopHeaders are not replayed from the cache.
var hopHeaders = map[string]bool{
	"Content-Length":        true,
	"X-Cache":               true,
	CorrelationIDHeader:     true,
	"X-Ratelimit-Limit":     true,
	"X-Ratelimit-Remaining": true,
}

// recorder tees the response body into a bounded buffer.
type recorder struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.truncated {
		if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
			r.truncated = true
			r.buf.Reset()
		} else {
			r.buf.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// storeIfCurrent writes a cache entry only while the purge generation
// still matches the one read before the handler ran.
var storeIfCurrent = redis.NewScript(`
	local gen = redis.call('GET', KEYS[2])
	if not gen then gen = '0' end
	if gen ~= ARGV[1] then return 0 end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// generationKey sits outside the prefix:* namespace so Purge keeps it.
func generationKey(prefix string) string { return prefix + ".gen" }

// cacheKey hashes the parts selected by cfg.KeyStrategy under cfg.Prefix.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	default: // "route_query"
		parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
	}
	// c.Path() is the pattern, so path params must be part of the key
	for _, v := range c.ParamValues() {
		parts = append(parts, "p", v)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

func encodeResponse(status int, header http.Header, body []byte) ([]byte, error) {
	h := make(http.Header, len(header))
	for k, vals := range header {
		if hopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		h[k] = append([]string(nil), vals...)
	}
	return json.Marshal(cachedResponse{Status: status, Header: h, Body: body})
}

func decodeResponse(bs []byte) (cachedResponse, bool) {
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return cachedResponse{}, false
	}
	return cr, true
}

// NewRedisCache caches successful public responses (status, headers and
// body) in Redis.  Requests carrying an Authorization header bypass the
// cache because their bodies are personalised.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			// Responses for a signed-in caller carry booked flags.
			if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if cr, ok := decodeResponse(bs); ok {
					for k, vals := range cr.Header {
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(cr.Status)
					_, _ = c.Response().Write(cr.Body)
					return nil
				}
			} else if err != redis.Nil {
				log.Printf("cache: get %s: %v", key, err)
			}

			// read before the handler so a purge during it invalidates the
			// response it produces
			gen, err := rdb.Get(ctx, generationKey(cfg.Prefix)).Result()
			if err == redis.Nil {
				gen = "0"
			} else if err != nil {
				log.Printf("cache: generation: %v", err)
				return next(c)
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.truncated {
				return nil
			}
			payload, err := encodeResponse(rec.status, c.Response().Header(), rec.buf.Bytes())
			if err != nil {
				return nil
			}
			// the request may already be cancelled once the body is written
			keys := []string{key, generationKey(cfg.Prefix)}
			if err := storeIfCurrent.Run(context.Background(), rdb, keys, gen, payload, ttl.Milliseconds()).Err(); err != nil {
				log.Printf("cache: set %s: %v", key, err)
			}
			return nil
		}
	}
}

// CachePurger drops every cached response under a prefix.  Bookings call
// it so the next read shows the new availability.
type CachePurger struct {
	rdb    *redis.Client
	prefix string
}

// NewCachePurger returns a purger, or nil when caching is off.
func NewCachePurger(cfg config.CacheConfig, rdb *redis.Client) *CachePurger {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &CachePurger{rdb: rdb, prefix: cfg.Prefix}
}

// Purge deletes the cached entries.  A nil purger does nothing.  The
// generation is bumped first so responses still being rendered are not
// stored afterwards.
func (p *CachePurger) Purge(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.rdb.Incr(ctx, generationKey(p.prefix)).Err(); err != nil {
		return err
	}
	iter := p.rdb.Scan(ctx, 0, p.prefix+":*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return p.rdb.Del(ctx, keys...).Err()
}

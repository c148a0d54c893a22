package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/wild-series/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain := cw.limit - cw.size; remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// ResponseCache stores successful browse responses in Redis and drops them
// all when the catalog changes.  A nil client or a disabled config turns
// both the middleware and Purge into no-ops.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
    log *logrus.Entry
}

const purgeBatch = 200

func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Entry) *ResponseCache {
    if cfg.TTL <= 0 {
        cfg.TTL = 5 * time.Minute
    }
    return &ResponseCache{cfg: cfg, rdb: rdb, log: log.WithField("component", "cache")}
}

func (rc *ResponseCache) enabled() bool { return rc.cfg.Enabled && rc.rdb != nil }

// cacheKey builds a stable key honoring prefix/strategy.  The concrete URL
// path is used rather than the route pattern: /show/:slug must not share an
// entry across slugs.  gen is the purge generation the entry belongs to.
func (rc *ResponseCache) cacheKey(c echo.Context, gen int64) string {
    r := c.Request()
    path := r.URL.Path
    query := r.URL.RawQuery

    parts := []string{"g", strconv.FormatInt(gen, 10)}
    switch strings.ToLower(rc.cfg.KeyStrategy) {
    case "path":
        parts = append(parts, "path", path)
    case "method_path":
        parts = append(parts, "method", r.Method, "path", path)
    case "method_path_query":
        parts = append(parts, "method", r.Method, "path", path, "q", query)
    default: // "path_query"
        parts = append(parts, "path", path, "q", query)
    }

    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", rc.cfg.Prefix, sum[:])
}

func (rc *ResponseCache) genKey() string { return rc.cfg.Prefix + ":gen" }

// generation returns the current purge generation; a missing counter is 0.
func (rc *ResponseCache) generation(ctx context.Context) (int64, error) {
    gen, err := rc.rdb.Get(ctx, rc.genKey()).Int64()
    if err == redis.Nil {
        return 0, nil
    }
    return gen, err
}

// perRequestHeader reports headers that describe one exchange rather than
// the resource and so must never be stored or replayed.
func perRequestHeader(k string) bool {
    k = http.CanonicalHeaderKey(k)
    switch k {
    case echo.HeaderContentLength, echo.HeaderXRequestID, echo.HeaderSetCookie, "X-Cache", "Retry-After":
        return true
    }
    return strings.HasPrefix(k, "X-Ratelimit-")
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    hdr := make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, hdr, bs[8+hlen:], true
}

// Middleware serves cached 200 responses and records fresh ones.  Other
// statuses (the browse 404s included) are never stored.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    if !rc.enabled() {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    maxBody := int64(rc.cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            gen, err := rc.generation(ctx)
            if err != nil {
                rc.log.WithError(err).Warn("cache generation read failed")
                return next(c)
            }
            key := rc.cacheKey(c, gen)

            if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if perRequestHeader(k) {
                            continue
                        }
                        c.Response().Header()[http.CanonicalHeaderKey(k)] = vals
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, _ = c.Response().Write(body)
                    return nil
                }
            } else if err != redis.Nil {
                rc.log.WithError(err).Warn("cache read failed")
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
                return nil
            }

            hdr := make(http.Header)
            for k, vals := range c.Response().Header() {
                if !perRequestHeader(k) {
                    hdr[k] = vals
                }
            }
            payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
            if err != nil {
                return nil
            }
            // The key carries the generation read before the handler ran, so
            // a body rendered before a concurrent Purge lands in a retired
            // generation that no later request reads.
            if err := rc.rdb.SetEx(context.Background(), key, payload, rc.cfg.TTL).Err(); err != nil {
                rc.log.WithError(err).Warn("cache write failed")
            }
            return nil
        }
    }
}

// Purge retires every cached entry.  It bumps the generation first, which
// makes old entries unreachable at once, then deletes them in batches.
func (rc *ResponseCache) Purge(ctx context.Context) error {
    if !rc.enabled() {
        return nil
    }
    if err := rc.rdb.Incr(ctx, rc.genKey()).Err(); err != nil {
        return fmt.Errorf("bump cache generation: %w", err)
    }

    iter := rc.rdb.Scan(ctx, 0, rc.cfg.Prefix+":*", purgeBatch).Iterator()
    batch := make([]string, 0, purgeBatch)
    for iter.Next(ctx) {
        if iter.Val() == rc.genKey() {
            continue
        }
        batch = append(batch, iter.Val())
        if len(batch) == purgeBatch {
            if err := rc.rdb.Del(ctx, batch...).Err(); err != nil {
                return fmt.Errorf("purge cache: %w", err)
            }
            batch = batch[:0]
        }
    }
    if err := iter.Err(); err != nil {
        return fmt.Errorf("scan cache: %w", err)
    }
    if len(batch) > 0 {
        if err := rc.rdb.Del(ctx, batch...).Err(); err != nil {
            return fmt.Errorf("purge cache: %w", err)
        }
    }
    return nil
}

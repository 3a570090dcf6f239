package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/metrics"
	"github.com/noticias/core/internal/pkg/redis"
)

const (
	CacheStatusHeader       = "x-noticias-cache"
	APICachePrefix          = "noticias:api-cache:"
	defaultHTTPCacheTTL     = 30 * time.Second
	defaultHTTPCacheMaxBody = 1 << 20
)

type HTTPCacheOptions struct {
	TTL          time.Duration
	SkipPaths    []string
	MaxBodyBytes int
}

type cachedHTTPResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	if len(w.body)+len(data) > w.maxBodyBytes {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache stores successful anonymous GET responses in Redis, keyed by
// site and request URI. Paths ending in "*" in SkipPaths match by prefix.
func HTTPCache(client *redis.Client, opts HTTPCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultHTTPCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultHTTPCacheMaxBody
	}
	maxAge := strconv.Itoa(int(opts.TTL / time.Second))

	return func(c *gin.Context) {
		if client == nil || c.Request.Method != http.MethodGet || IsAuthenticated(c) ||
			shouldSkipCachePath(c.Request.URL.Path, opts.SkipPaths) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := APICachePrefix + CurrentSite(c) + ":" + c.Request.URL.RequestURI()
		if payload, body, ok := readCachedResponse(ctx, client, key); ok {
			metrics.HTTPCacheResults.WithLabelValues("hit").Inc()
			c.Header(CacheStatusHeader, "hit")
			c.Header("Cache-Control", "public, max-age="+maxAge)
			c.Data(payload.Status, payload.ContentType, body)
			c.Abort()
			return
		}

		metrics.HTTPCacheResults.WithLabelValues("miss").Inc()
		c.Header(CacheStatusHeader, "miss")
		buffer := &cacheBodyWriter{ResponseWriter: c.Writer, maxBodyBytes: opts.MaxBodyBytes}
		c.Writer = buffer
		c.Next()

		if c.Writer.Status() != http.StatusOK || buffer.overflow || len(buffer.body) == 0 {
			return
		}
		raw, err := json.Marshal(cachedHTTPResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		})
		if err != nil {
			return
		}
		_ = client.Set(ctx, key, raw, opts.TTL)
	}
}

// PurgeHTTPCache drops cached responses of site, or of every site when empty.
func PurgeHTTPCache(ctx context.Context, client *redis.Client, site string) (int64, error) {
	if client == nil {
		return 0, nil
	}
	pattern := APICachePrefix + "*"
	if site != "" {
		pattern = APICachePrefix + site + ":*"
	}
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := client.Raw().Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := client.Raw().Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		if cursor = next; cursor == 0 {
			return deleted, nil
		}
	}
}

func readCachedResponse(ctx context.Context, client *redis.Client, key string) (cachedHTTPResponse, []byte, bool) {
	raw, err := client.Get(ctx, key)
	if err != nil || raw == "" {
		return cachedHTTPResponse{}, nil, false
	}
	var payload cachedHTTPResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return cachedHTTPResponse{}, nil, false
	}
	body, err := base64.StdEncoding.DecodeString(payload.BodyBase64)
	if err != nil {
		return cachedHTTPResponse{}, nil, false
	}
	if payload.ContentType == "" {
		payload.ContentType = "application/json; charset=utf-8"
	}
	return payload, body, true
}

func shouldSkipCachePath(path string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

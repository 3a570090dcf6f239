package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/redis"
	"github.com/noticias/core/internal/pkg/response"
	goredis "github.com/redis/go-redis/v9"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
)

// Idempotence rejects a repeated form submission (same site, body, client)
// for a minute after the first one. A key is "0" while in flight and "1" once
// it succeeded; failures release it so the client can retry. skipPaths use
// the same matching as HTTPCacheOptions.SkipPaths.
func Idempotence(client *redis.Client, skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || c.Request.Method != http.MethodPost ||
			shouldSkipCachePath(c.Request.URL.Path, skipPaths) {
			c.Next()
			return
		}
		key, err := idempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := "noticias:idempotence:" + key
		ok, err := client.Raw().SetNX(ctx, redisKey, "0", idempotenceTTL).Result()
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			msg := "Esta solicitud ya fue recibida, espera un minuto antes de repetirla"
			if v, _ := client.Get(ctx, redisKey); v == "0" {
				msg = "Tu solicitud se está procesando"
			}
			response.Conflict(c, msg)
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= 200 && status < 300 {
			client.Raw().Set(ctx, redisKey, "1", goredis.KeepTTL)
		} else {
			_ = client.Del(ctx, redisKey)
		}
	}
}

func idempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}
	raw := fmt.Sprintf("%s|%s|%s|%s|%s|%s", CurrentSite(c), c.Request.Method, c.Request.URL.Path, body, c.Request.UserAgent(), c.ClientIP())
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}

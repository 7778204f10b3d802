/*
 * @module api/middleware/rate_limit
 * @description 请求限流中间件，基于Redis做全局和API Key两层限流
 * @architecture 中间件层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 请求进入 -> 限流检查 -> 放行或返回429
 * @rules RATE_LIMIT=enabled 且Redis可用时生效；健康检查等路径不限流
 * @dependencies dataset-ingestion-service/service/rate_limiter, github.com/spf13/cast
 * @refs service/rate_limiter/redis_rate_limiter.go, api/middleware/api_key_auth.go
 */

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"dataset-ingestion-service/service/rate_limiter"

	"github.com/go-chi/render"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
)

// 限流默认值
const (
	defaultGlobalMaxRequests = 300
	defaultApiKeyMaxRequests = 100
	defaultWindowSeconds     = 60
)

// RateLimitMiddleware 请求限流中间件
type RateLimitMiddleware struct {
	limiter        *rate_limiter.RedisRateLimiter
	enabled        bool
	globalMax      int
	apiKeyMax      int
	windowSeconds  int
	whitelistPaths []string
}

// NewRateLimitMiddleware 创建限流中间件，client为nil或未启用时直接放行
func NewRateLimitMiddleware(client *redis.Client) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		enabled:       os.Getenv("RATE_LIMIT") == "enabled" && client != nil,
		globalMax:     envInt("RATE_LIMIT_GLOBAL_MAX", defaultGlobalMaxRequests),
		apiKeyMax:     envInt("RATE_LIMIT_API_KEY_MAX", defaultApiKeyMaxRequests),
		windowSeconds: envInt("RATE_LIMIT_WINDOW_SECONDS", defaultWindowSeconds),
		whitelistPaths: []string{
			"/health",
			"/ready",
			"/metrics",
			"/swagger",
			"/sse",
		},
	}
	if m.enabled {
		m.limiter = rate_limiter.NewRedisRateLimiter(client)
		slog.Info("请求限流已启用",
			"global_max", m.globalMax,
			"api_key_max", m.apiKeyMax,
			"window_seconds", m.windowSeconds)
	}
	return m
}

// Middleware 限流处理
func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled || m.isWhitelisted(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		rules := []rate_limiter.RateLimitRule{
			{
				Type:        rate_limiter.LimitTypeGlobal,
				TimeWindow:  m.windowSeconds,
				MaxRequests: m.globalMax,
			},
		}
		if keyName, ok := GetApiKeyNameFromContext(r.Context()); ok {
			rules = append(rules, rate_limiter.RateLimitRule{
				Type:        rate_limiter.LimitTypeApiKey,
				TargetID:    keyName,
				TimeWindow:  m.windowSeconds,
				MaxRequests: m.apiKeyMax,
			})
		}

		result, err := m.limiter.CheckRateLimit(r.Context(), rules)
		if err != nil {
			// 限流服务故障时放行，不拦截正常请求
			slog.Warn("限流检查失败，放行请求", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt))

		if !result.Allowed {
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusTooManyRequests,
				"msg":    result.Message,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) isWhitelisted(path string) bool {
	for _, p := range m.whitelistPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func envInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if n := cast.ToInt(val); n > 0 {
			return n
		}
	}
	return defaultValue
}

/*
 * @module api/middleware/api_key_auth
 * @description API密钥鉴权中间件，按前缀查找密钥记录并用bcrypt比对哈希
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 密钥提取 -> 前缀查找 -> 哈希比对 -> 上下文注入 -> 下一个处理器
 * @rules 鉴权默认关闭，设置 API_KEY_AUTH=enabled 后启用；白名单路径跳过鉴权
 * @dependencies golang.org/x/crypto/bcrypt, gorm.io/gorm
 * @refs service/models/api_key.go, api/routes.go
 */

package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"dataset-ingestion-service/service/models"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ContextKey 上下文键类型
type ContextKey string

// ApiKeyNameKey API密钥名称在上下文中的键
const ApiKeyNameKey ContextKey = "api_key_name"

// 密钥前缀长度，密钥格式为 {prefix}.{secret}
const keyPrefixLength = 8

// ApiKeyAuthMiddleware API密钥鉴权中间件
type ApiKeyAuthMiddleware struct {
	db      *gorm.DB
	enabled bool
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// NewApiKeyAuthMiddleware 创建API密钥鉴权中间件实例
func NewApiKeyAuthMiddleware(db *gorm.DB) *ApiKeyAuthMiddleware {
	return &ApiKeyAuthMiddleware{
		db:      db,
		enabled: os.Getenv("API_KEY_AUTH") == "enabled",
		whitelistPaths: []string{
			"/health",
			"/ready",
			"/metrics",
			"/swagger",
			"/sse",
		},
	}
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *ApiKeyAuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		// 支持前缀匹配
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 鉴权中间件处理函数
func (m *ApiKeyAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled || m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		rawKey := extractKey(r)
		if rawKey == "" {
			m.respondUnauthorized(w, r, "缺少API密钥")
			return
		}
		if len(rawKey) <= keyPrefixLength {
			m.respondUnauthorized(w, r, "API密钥格式无效")
			return
		}

		var record models.ApiKey
		err := m.db.Where("prefix = ? AND is_active = ?", rawKey[:keyPrefixLength], true).
			First(&record).Error
		if err != nil {
			m.respondUnauthorized(w, r, "API密钥无效")
			return
		}

		if record.ExpiresAt != nil && record.ExpiresAt.Before(time.Now()) {
			m.respondUnauthorized(w, r, "API密钥已过期")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(record.KeyHash), []byte(rawKey)); err != nil {
			m.respondUnauthorized(w, r, "API密钥无效")
			return
		}

		// 更新最近使用时间，失败不阻断请求
		now := time.Now()
		m.db.Model(&models.ApiKey{}).Where("id = ?", record.ID).Update("last_used_at", &now)

		ctx := context.WithValue(r.Context(), ApiKeyNameKey, record.Name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractKey 从请求头中提取API密钥，支持 Authorization: Bearer 和 X-API-Key 两种方式
func extractKey(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// respondUnauthorized 返回401未授权响应
func (m *ApiKeyAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status":  http.StatusUnauthorized,
		"message": message,
		"error":   "Unauthorized",
	})
}

// GetApiKeyNameFromContext 从上下文中获取密钥名称
func GetApiKeyNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(ApiKeyNameKey).(string)
	return name, ok
}

/*
 * @module api/controllers/config_controller
 * @description 系统配置控制器，提供运行期配置的查询和修改API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow HTTP请求 -> 配置服务 -> 响应返回
 * @rules 配置修改即时生效，环境变量覆盖的配置项只读
 * @dependencies dataset-ingestion-service/service, github.com/go-chi/render
 * @refs service/config/config_service.go
 */

package controllers

import (
	"errors"
	"net/http"
	"time"

	"dataset-ingestion-service/service"
	"dataset-ingestion-service/service/config"
	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/service/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// apiKeyByteLength 生成的API密钥随机字节数，hex编码后为48字符
const apiKeyByteLength = 24

// ConfigController 系统配置控制器
type ConfigController struct {
	configService *config.ConfigService
	db            *gorm.DB
	crypto        *utils.CryptoUtils
}

// NewConfigController 创建配置控制器实例
func NewConfigController() *ConfigController {
	return &ConfigController{
		configService: service.GlobalConfigService,
		db:            service.DB,
		crypto:        utils.NewCryptoUtils(),
	}
}

// SetConfigRequest 配置修改请求
type SetConfigRequest struct {
	Key         string `json:"key" example:"ingestion.batch_size"`
	Value       string `json:"value" example:"1000"`
	Description string `json:"description,omitempty"`
}

// ListConfigs 获取配置列表
// @Summary 获取配置列表
// @Description 列出所有系统配置项，包含未显式配置的内置默认值
// @Tags 系统配置
// @Produce json
// @Success 200 {object} APIResponse
// @Router /config [get]
func (c *ConfigController) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := c.configService.ListConfigs()
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询配置失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", configs))
}

// SetConfig 修改配置
// @Summary 修改配置
// @Description 设置指定配置项的值，即时生效
// @Tags 系统配置
// @Accept json
// @Produce json
// @Param request body SetConfigRequest true "配置修改请求"
// @Success 200 {object} APIResponse
// @Router /config [put]
func (c *ConfigController) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req SetConfigRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if req.Key == "" || req.Value == "" {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "配置键和值不能为空", nil))
		return
	}

	if err := c.configService.SetConfig(req.Key, req.Value, req.Description); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "修改配置失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("配置修改成功", nil))
}

// CreateApiKeyRequest API密钥签发请求
type CreateApiKeyRequest struct {
	Name      string     `json:"name" example:"ingest-client"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateApiKey 签发API密钥
// @Summary 签发API密钥
// @Description 生成随机密钥并以bcrypt哈希入库，明文密钥只在本次响应中返回一次
// @Tags 系统配置
// @Accept json
// @Produce json
// @Param request body CreateApiKeyRequest true "密钥签发请求"
// @Success 200 {object} APIResponse
// @Router /config/api-keys [post]
func (c *ConfigController) CreateApiKey(w http.ResponseWriter, r *http.Request) {
	var req CreateApiKeyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if req.Name == "" {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "密钥名称不能为空", nil))
		return
	}

	rawKey, err := c.crypto.GenerateKeyString(apiKeyByteLength)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "生成密钥失败", err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "密钥哈希失败", err))
		return
	}

	apiKey := models.ApiKey{
		Name:      req.Name,
		Prefix:    rawKey[:8],
		KeyHash:   string(hash),
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	if err := c.db.Create(&apiKey).Error; err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "保存密钥失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("密钥签发成功", map[string]interface{}{
		"id":         apiKey.ID,
		"name":       apiKey.Name,
		"api_key":    rawKey,
		"expires_at": apiKey.ExpiresAt,
	}))
}

// ListApiKeys 获取API密钥列表
// @Summary 获取API密钥列表
// @Description 列出所有已签发的密钥，不包含密钥明文和哈希
// @Tags 系统配置
// @Produce json
// @Success 200 {object} APIResponse
// @Router /config/api-keys [get]
func (c *ConfigController) ListApiKeys(w http.ResponseWriter, r *http.Request) {
	var keys []models.ApiKey
	if err := c.db.Order("created_at DESC").Find(&keys).Error; err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询密钥失败", err))
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", keys))
}

// RevokeApiKey 吊销API密钥
// @Summary 吊销API密钥
// @Description 将指定密钥标记为不可用，已吊销的密钥无法恢复
// @Tags 系统配置
// @Produce json
// @Param id path string true "密钥ID"
// @Success 200 {object} APIResponse
// @Router /config/api-keys/{id} [delete]
func (c *ConfigController) RevokeApiKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var apiKey models.ApiKey
	if err := c.db.First(&apiKey, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			render.JSON(w, r, ErrorResponse(http.StatusNotFound, "密钥不存在", nil))
			return
		}
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询密钥失败", err))
		return
	}

	if err := c.db.Model(&apiKey).Update("is_active", false).Error; err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "吊销密钥失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("密钥已吊销", nil))
}

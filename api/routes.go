/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"dataset-ingestion-service/api/controllers"
	apimiddleware "dataset-ingestion-service/api/middleware"
	"dataset-ingestion-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API密钥鉴权，API_KEY_AUTH=enabled 时生效
	authMiddleware := apimiddleware.NewApiKeyAuthMiddleware(service.DB)
	r.Use(authMiddleware.Middleware)

	// 请求限流，RATE_LIMIT=enabled 且Redis可用时生效
	rateLimitMiddleware := apimiddleware.NewRateLimitMiddleware(service.GlobalRedisClient)
	r.Use(rateLimitMiddleware.Middleware)

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController()
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/send", eventController.SendEvent)
		r.Post("/broadcast", eventController.BroadcastEvent)
		r.Get("/connections", eventController.GetSSEConnectionList)
		r.Get("/history", eventController.GetEventHistoryList)
	})

	// 数据集管理
	r.Route("/datasets", func(r chi.Router) {
		datasetController := controllers.NewDatasetController()

		r.Post("/", datasetController.CreateDataset)
		r.Get("/", datasetController.GetDatasetList)
		r.Get("/{id}", datasetController.GetDataset)
		r.Delete("/{id}", datasetController.DeleteDataset)

		// 摄取流程
		r.Post("/{id}/ingest", datasetController.IngestDataset)
		r.Post("/{id}/reprocess", datasetController.ReprocessDataset)
		r.Post("/{id}/validate-file", datasetController.ValidateDatasetFile)
		r.Get("/{id}/progress", datasetController.GetDatasetProgress)

		// 数据查询
		r.Get("/{id}/records", datasetController.GetDatasetRecords)
		r.Get("/{id}/preview", datasetController.PreviewDataset)
	})

	// 数据工具
	r.Route("/tools", func(r chi.Router) {
		toolsController := controllers.NewToolsController()
		r.Post("/infer-types", toolsController.InferTypes)
		r.Post("/validate", toolsController.Validate)
		r.Post("/suggest-mapping", toolsController.SuggestMapping)
	})

	// 系统配置
	r.Route("/config", func(r chi.Router) {
		configController := controllers.NewConfigController()
		r.Get("/", configController.ListConfigs)
		r.Put("/", configController.SetConfig)

		// API密钥管理
		r.Post("/api-keys", configController.CreateApiKey)
		r.Get("/api-keys", configController.ListApiKeys)
		r.Delete("/api-keys/{id}", configController.RevokeApiKey)
	})
}

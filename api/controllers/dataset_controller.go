/*
 * @module api/controllers/dataset_controller
 * @description 数据集管理控制器，提供数据集上传、摄取、进度查询、记录查询等API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 上传 -> 触发摄取 -> 轮询进度/订阅SSE -> 查询记录
 * @rules 摄取任务异步执行，接口立即返回；进度通过Redis快照和SSE推送暴露
 * @dependencies dataset-ingestion-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/worker/ingestion_worker.go, service/ingestion/parser.go
 */

package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"dataset-ingestion-service/service"
	"dataset-ingestion-service/service/ingestion"
	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/service/transformation"
	"dataset-ingestion-service/service/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// 上传文件解析缓冲上限，超出部分落盘
const uploadMemoryLimit = 32 << 20

// DatasetController 数据集管理控制器
type DatasetController struct {
	db     *gorm.DB
	store  worker.FileStore
	worker *worker.IngestionWorker
	parser *ingestion.Parser
}

// NewDatasetController 创建数据集控制器实例
func NewDatasetController() *DatasetController {
	return &DatasetController{
		db:     service.DB,
		store:  service.GlobalFileStore,
		worker: service.GlobalIngestionWorker,
		parser: ingestion.NewParser(),
	}
}

// IngestRequest 摄取请求参数，全部可选
type IngestRequest struct {
	Rules     []models.ValidationRule     `json:"rules,omitempty"`
	Steps     []transformation.StepConfig `json:"steps,omitempty"`
	NameStyle string                      `json:"name_style,omitempty" example:"snake"`
}

// CreateDataset 上传文件并创建数据集
// @Summary 上传数据集文件
// @Description 以multipart/form-data上传表格文件（CSV/TSV/JSON/JSONL/XLSX），创建数据集元信息
// @Tags 数据集管理
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "数据文件"
// @Param name formData string false "数据集名称，默认取文件名"
// @Param description formData string false "数据集描述"
// @Success 200 {object} APIResponse{data=models.Dataset}
// @Router /datasets [post]
func (c *DatasetController) CreateDataset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "解析上传表单失败", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "缺少上传文件", err))
		return
	}
	defer file.Close()

	// 先落盘再做格式校验
	key, size, hash, err := c.store.Store(r.Context(), header.Filename, file)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "保存上传文件失败", err))
		return
	}

	localPath, err := c.store.Fetch(r.Context(), key)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "读取上传文件失败", err))
		return
	}
	defer os.Remove(localPath)

	if err := c.parser.ValidateFile(localPath); err != nil {
		_ = c.store.Delete(r.Context(), key)
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "文件校验失败", err))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	dataset := &models.Dataset{
		Name:        name,
		Description: r.FormValue("description"),
		FileName:    header.Filename,
		FileSize:    size,
		FileHash:    hash,
		FilePath:    key,
		Status:      models.DatasetStatusUploading,
		CreatedBy:   r.Header.Get("X-User-Name"),
	}

	if err := c.db.Create(dataset).Error; err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "创建数据集失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("数据集创建成功", dataset))
}

// GetDatasetList 获取数据集列表
// @Summary 获取数据集列表
// @Description 分页获取数据集列表，支持状态和名称过滤
// @Tags 数据集管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param status query string false "状态过滤" Enums(uploading, processing, ready, failed)
// @Param name query string false "名称模糊匹配"
// @Success 200 {object} PaginatedResponse
// @Router /datasets [get]
func (c *DatasetController) GetDatasetList(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)

	query := c.db.Model(&models.Dataset{})
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if name := r.URL.Query().Get("name"); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询数据集失败", err))
		return
	}

	var datasets []models.Dataset
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&datasets).Error
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询数据集失败", err))
		return
	}

	render.JSON(w, r, PaginatedSuccessResponse("查询成功", datasets, total, page, size))
}

// GetDataset 获取数据集详情
// @Summary 获取数据集详情
// @Description 按ID获取数据集元信息和表结构信息
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse{data=models.Dataset}
// @Router /datasets/{id} [get]
func (c *DatasetController) GetDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, SuccessResponse("查询成功", dataset))
}

// DeleteDataset 删除数据集
// @Summary 删除数据集
// @Description 删除数据集及其全部记录和存储文件
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse
// @Router /datasets/{id} [delete]
func (c *DatasetController) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dataset_id = ?", dataset.ID).Delete(&models.Record{}).Error; err != nil {
			return err
		}
		return tx.Delete(dataset).Error
	})
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "删除数据集失败", err))
		return
	}

	if err := c.store.Delete(r.Context(), dataset.FilePath); err != nil {
		slog.Warn("删除数据集文件失败", "dataset_id", dataset.ID, "error", err)
	}

	render.JSON(w, r, SuccessResponse("删除成功", nil))
}

// IngestDataset 触发数据集摄取
// @Summary 触发摄取
// @Description 异步执行解析、类型推断、校验、清洗、规范化和批量入库的完整流程
// @Tags 数据集管理
// @Accept json
// @Produce json
// @Param id path string true "数据集ID"
// @Param request body IngestRequest false "摄取选项"
// @Success 200 {object} APIResponse
// @Router /datasets/{id}/ingest [post]
func (c *DatasetController) IngestDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}

	if dataset.Status == models.DatasetStatusProcessing {
		render.JSON(w, r, ErrorResponse(http.StatusConflict, "数据集正在处理中", nil))
		return
	}

	opts, ok := c.decodeIngestOptions(w, r)
	if !ok {
		return
	}

	go func() {
		if _, err := c.worker.Ingest(context.Background(), dataset.ID, opts); err != nil {
			slog.Error("数据集摄取失败", "dataset_id", dataset.ID, "error", err)
		}
	}()

	render.JSON(w, r, SuccessResponse("摄取任务已启动", map[string]interface{}{
		"dataset_id": dataset.ID,
	}))
}

// ReprocessDataset 重新处理数据集
// @Summary 重新摄取
// @Description 对 ready 或 failed 状态的数据集重新执行完整摄取流程，旧记录会被替换
// @Tags 数据集管理
// @Accept json
// @Produce json
// @Param id path string true "数据集ID"
// @Param request body IngestRequest false "摄取选项"
// @Success 200 {object} APIResponse
// @Router /datasets/{id}/reprocess [post]
func (c *DatasetController) ReprocessDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}

	if dataset.Status != models.DatasetStatusReady && dataset.Status != models.DatasetStatusFailed {
		render.JSON(w, r, ErrorResponse(http.StatusConflict, "当前状态不允许重新处理: "+dataset.Status, nil))
		return
	}

	opts, ok := c.decodeIngestOptions(w, r)
	if !ok {
		return
	}

	go func() {
		if _, err := c.worker.Reprocess(context.Background(), dataset.ID, opts); err != nil {
			slog.Error("数据集重新处理失败", "dataset_id", dataset.ID, "error", err)
		}
	}()

	render.JSON(w, r, SuccessResponse("重新处理任务已启动", map[string]interface{}{
		"dataset_id": dataset.ID,
	}))
}

// ValidateDatasetFile 快速校验数据集文件
// @Summary 快速校验文件
// @Description 只做格式检测和可解析性检查，不执行完整摄取
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse
// @Router /datasets/{id}/validate-file [post]
func (c *DatasetController) ValidateDatasetFile(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}

	if err := c.worker.ValidateFileTask(r.Context(), dataset.ID); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusUnprocessableEntity, "文件校验失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("文件校验通过", nil))
}

// GetDatasetProgress 查询摄取进度
// @Summary 查询摄取进度
// @Description 优先读取Redis进度快照，快照缺失时回退到数据集状态
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse{data=models.ProgressEvent}
// @Router /datasets/{id}/progress [get]
func (c *DatasetController) GetDatasetProgress(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}

	if service.GlobalRedisReporter != nil {
		snapshot, err := service.GlobalRedisReporter.Snapshot(r.Context(), dataset.ID)
		if err != nil {
			slog.Warn("读取进度快照失败", "dataset_id", dataset.ID, "error", err)
		} else if snapshot != nil {
			render.JSON(w, r, SuccessResponse("查询成功", snapshot))
			return
		}
	}

	// 无快照时按状态合成
	progress := 0
	switch dataset.Status {
	case models.DatasetStatusReady:
		progress = 100
	case models.DatasetStatusFailed, models.DatasetStatusUploading:
		progress = 0
	}
	render.JSON(w, r, SuccessResponse("查询成功", models.ProgressEvent{
		Type:      "dataset_update",
		DatasetID: dataset.ID,
		Status:    dataset.Status,
		Progress:  progress,
		Message:   dataset.ProcessingError,
	}))
}

// GetDatasetRecords 查询数据集记录
// @Summary 查询记录
// @Description 分页查询数据集入库后的记录，按行号排序
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param valid query bool false "有效性过滤"
// @Success 200 {object} PaginatedResponse
// @Router /datasets/{id}/records [get]
func (c *DatasetController) GetDatasetRecords(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}

	page, size := parsePagination(r)

	query := c.db.Model(&models.Record{}).Where("dataset_id = ?", dataset.ID)
	if validStr := r.URL.Query().Get("valid"); validStr != "" {
		query = query.Where("is_valid = ?", validStr == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询记录失败", err))
		return
	}

	var records []models.Record
	err := query.Order("row_number").
		Offset((page - 1) * size).Limit(size).
		Find(&records).Error
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询记录失败", err))
		return
	}

	render.JSON(w, r, PaginatedSuccessResponse("查询成功", records, total, page, size))
}

// PreviewDataset 预览数据集文件
// @Summary 预览文件内容
// @Description 解析存储文件的前若干行，返回检测到的格式、编码、分隔符和示例数据
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Param rows query int false "预览行数" default(5)
// @Success 200 {object} APIResponse{data=models.ParseResult}
// @Router /datasets/{id}/preview [get]
func (c *DatasetController) PreviewDataset(w http.ResponseWriter, r *http.Request) {
	dataset, ok := c.loadDataset(w, r)
	if !ok {
		return
	}

	rows := 5
	if v := r.URL.Query().Get("rows"); v != "" {
		if parsed, err := parseIntInRange(v, 1, 100); err == nil {
			rows = parsed
		}
	}

	localPath, err := c.store.Fetch(r.Context(), dataset.FilePath)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "读取数据集文件失败", err))
		return
	}
	defer os.Remove(localPath)

	result, err := c.parser.Preview(localPath, rows)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusUnprocessableEntity, "文件解析失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("预览成功", result))
}

// loadDataset 按URL参数加载数据集，失败时写入错误响应
func (c *DatasetController) loadDataset(w http.ResponseWriter, r *http.Request) (*models.Dataset, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "数据集ID不能为空", nil))
		return nil, false
	}

	var dataset models.Dataset
	err := c.db.First(&dataset, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		render.JSON(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在: "+id, nil))
		return nil, false
	}
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusInternalServerError, "查询数据集失败", err))
		return nil, false
	}
	return &dataset, true
}

// parseIntInRange 解析整数参数并限制范围
func parseIntInRange(s string, min, max int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, fmt.Errorf("取值超出范围 [%d, %d]: %d", min, max, v)
	}
	return v, nil
}

// decodeIngestOptions 解析摄取选项，请求体为空时返回零值选项
func (c *DatasetController) decodeIngestOptions(w http.ResponseWriter, r *http.Request) (worker.IngestOptions, bool) {
	var req IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
			return worker.IngestOptions{}, false
		}
	}
	return worker.IngestOptions{
		Rules:     req.Rules,
		Steps:     req.Steps,
		NameStyle: req.NameStyle,
	}, true
}

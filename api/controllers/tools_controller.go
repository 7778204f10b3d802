/*
 * @module api/controllers/tools_controller
 * @description 数据工具控制器，提供对内联样本数据的类型推断、规则校验和列映射建议API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 内联数据 -> 构造内存表 -> 调用推断/校验/映射引擎 -> 返回结果
 * @rules 工具接口无持久化副作用，适合前端交互式探查
 * @dependencies dataset-ingestion-service/service/ingestion, dataset-ingestion-service/service/transformation
 * @refs service/ingestion/type_inference.go, service/ingestion/validator.go, service/transformation/schema_mapper.go
 */

package controllers

import (
	"net/http"

	"dataset-ingestion-service/service/ingestion"
	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/service/transformation"

	"github.com/go-chi/render"
)

// 内联样本数据的行数上限
const maxInlineRows = 10000

// ToolsController 数据工具控制器
type ToolsController struct {
	inference *ingestion.TypeInferenceEngine
	validator *ingestion.Validator
	mapper    *transformation.SchemaMapper
}

// NewToolsController 创建数据工具控制器实例
func NewToolsController() *ToolsController {
	return &ToolsController{
		inference: ingestion.NewTypeInferenceEngine(),
		validator: ingestion.NewValidator(),
		mapper:    transformation.NewSchemaMapper(),
	}
}

// InlineTableRequest 内联表格数据
type InlineTableRequest struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// ValidateRequest 校验请求
type ValidateRequest struct {
	Columns []string                `json:"columns"`
	Rows    [][]interface{}         `json:"rows"`
	Rules   []models.ValidationRule `json:"rules"`
}

// SuggestMappingRequest 映射建议请求
type SuggestMappingRequest struct {
	SourceColumns []string `json:"source_columns"`
	TargetColumns []string `json:"target_columns"`
	Threshold     *float64 `json:"threshold,omitempty"`
}

// InferTypes 对内联数据做类型推断
// @Summary 类型推断
// @Description 对内联样本数据逐列推断类型、置信度、统计摘要和建议SQL类型
// @Tags 数据工具
// @Accept json
// @Produce json
// @Param request body InlineTableRequest true "内联表格数据"
// @Success 200 {object} APIResponse{data=[]models.ColumnProfile}
// @Router /tools/infer-types [post]
func (c *ToolsController) InferTypes(w http.ResponseWriter, r *http.Request) {
	var req InlineTableRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	table, ok := buildInlineTable(w, r, req.Columns, req.Rows)
	if !ok {
		return
	}

	profiles, err := c.inference.InferTable(table)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusUnprocessableEntity, "类型推断失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("类型推断完成", profiles))
}

// Validate 对内联数据执行校验规则
// @Summary 数据校验
// @Description 对内联样本数据执行指定校验规则，返回逐规则的通过情况和失败样本
// @Tags 数据工具
// @Accept json
// @Produce json
// @Param request body ValidateRequest true "校验请求"
// @Success 200 {object} APIResponse{data=models.ValidationReport}
// @Router /tools/validate [post]
func (c *ToolsController) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if len(req.Rules) == 0 {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "校验规则不能为空", nil))
		return
	}

	table, ok := buildInlineTable(w, r, req.Columns, req.Rows)
	if !ok {
		return
	}

	report, err := c.validator.Validate(table, req.Rules)
	if err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusUnprocessableEntity, "校验执行失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("校验完成", report))
}

// SuggestMapping 建议源列到目标列的映射
// @Summary 列映射建议
// @Description 基于名称相似度、同义词和词缀规则给出源列到目标模式列的映射建议
// @Tags 数据工具
// @Accept json
// @Produce json
// @Param request body SuggestMappingRequest true "映射建议请求"
// @Success 200 {object} APIResponse{data=models.MappingPlan}
// @Router /tools/suggest-mapping [post]
func (c *ToolsController) SuggestMapping(w http.ResponseWriter, r *http.Request) {
	var req SuggestMappingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if len(req.SourceColumns) == 0 || len(req.TargetColumns) == 0 {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "源列和目标列都不能为空", nil))
		return
	}

	mapper := c.mapper
	if req.Threshold != nil {
		mapper = transformation.NewSchemaMapper()
		mapper.SetThreshold(*req.Threshold)
	}

	plan := mapper.SuggestMapping(req.SourceColumns, req.TargetColumns)
	render.JSON(w, r, SuccessResponse("映射建议生成完成", plan))
}

// buildInlineTable 将内联数据构造为内存表，失败时写入错误响应
func buildInlineTable(w http.ResponseWriter, r *http.Request, columns []string, rows [][]interface{}) (*models.Table, bool) {
	if len(columns) == 0 {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "列名不能为空", nil))
		return nil, false
	}
	if len(rows) > maxInlineRows {
		render.JSON(w, r, ErrorResponse(http.StatusBadRequest, "样本数据行数超出上限", nil))
		return nil, false
	}

	table := models.NewTable(columns)
	for _, row := range rows {
		cells := make([]models.CellValue, len(row))
		for i, v := range row {
			cells[i] = models.CellFromGo(v)
		}
		table.AppendRow(cells)
	}
	return table, true
}

/*
 * @module service/models/jsonb
 * @description JSONB 自定义类型，实现 gorm 列与 JSON 文档之间的序列化
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 写库时 Value 序列化，读库时 Scan 反序列化
 * @rules sqlite 驱动返回 string，postgres 驱动返回 []byte，两者都要兼容
 * @dependencies database/sql/driver, encoding/json
 * @refs service/models/dataset.go
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONB 通用 JSON 对象类型
type JSONB map[string]interface{}

// JSONBStringArray 字符串数组的 JSONB 类型
type JSONBStringArray []string

// Scan 实现 Scanner 接口
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, j)
}

// Value 实现 Valuer 接口
func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan 实现 Scanner 接口
func (j *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("类型断言失败: 不是 []byte 或 string")
	}
	return json.Unmarshal(bytes, j)
}

// Value 实现 Valuer 接口
func (j JSONBStringArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

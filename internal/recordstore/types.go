package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 查询操作符
const (
	OpEqualTo              = "EqualTo"
	OpContains             = "Contains"
	OpGreaterThanOrEqualTo = "GreaterThanOrEqualTo"
)

// 排序方向
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Field 需要返回的字段
type Field struct {
	Field struct {
		Name string `json:"Name"`
	} `json:"field"`
}

// Fields 由字段名构造字段列表
func Fields(names ...string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i].Field.Name = n
	}
	return out
}

// Condition 单个 where 条件
type Condition struct {
	FieldName string   `json:"FieldName"`
	Operator  string   `json:"Operator"`
	Values    []string `json:"Values"`
}

// GroupCondition whereGroups 内的条件（小写键名）
type GroupCondition struct {
	FieldName string   `json:"fieldName"`
	Operator  string   `json:"operator"`
	Values    []string `json:"values"`
}

// SubGroup 条件子组（组内为 AND）
type SubGroup struct {
	Conditions []GroupCondition `json:"conditions"`
}

// WhereGroup 条件组，Operator 为 OR / AND
type WhereGroup struct {
	Operator  string     `json:"operator"`
	SubGroups []SubGroup `json:"subGroups"`
}

// OrderBy 排序
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

// FetchParams fetchRecords / getRecordById 参数
type FetchParams struct {
	Fields      []Field      `json:"fields,omitempty"`
	Where       []Condition  `json:"where,omitempty"`
	WhereGroups []WhereGroup `json:"whereGroups,omitempty"`
	OrderBy     []OrderBy    `json:"orderBy,omitempty"`
}

// RecordsParams createRecord / updateRecord 参数
type RecordsParams struct {
	Records []map[string]interface{} `json:"records"`
}

// DeleteParams deleteRecord 参数
type DeleteParams struct {
	RecordIds []int `json:"RecordIds"`
}

// Result 批量操作中单条记录的结果
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response 记录存储的统一响应
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Results []Result        `json:"results,omitempty"`
}

// HasData data 字段不为空且不是 null
func (r *Response) HasData() bool {
	return len(r.Data) > 0 && string(r.Data) != "null"
}

// Decode 把 data 解析到 target
func (r *Response) Decode(target interface{}) error {
	if !r.HasData() {
		return ErrNotFound
	}
	if err := json.Unmarshal(r.Data, target); err != nil {
		return fmt.Errorf("解析记录失败: %w", err)
	}
	return nil
}

// FirstResult 返回第一条成功结果；存在失败记录时返回错误
func (r *Response) FirstResult(op string) (*Result, error) {
	var ok []Result
	failed := 0
	for _, res := range r.Results {
		if res.Success {
			ok = append(ok, res)
		} else {
			failed++
		}
	}
	if failed > 0 {
		return nil, fmt.Errorf("failed to %s %d records", op, failed)
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("failed to %s record", op)
	}
	return &ok[0], nil
}

// APIError 记录存储返回 success=false
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("record store request failed (status %d)", e.StatusCode)
	}
	return e.Message
}

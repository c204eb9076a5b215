// Package snapshot 将实体变更流折叠为内存中的组织树，并整体发布到文档存储。
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Kind 变更流携带的实体类别
type Kind string

const (
	KindUniversity Kind = "university"
	KindInstitute  Kind = "institute"
	KindDepartment Kind = "department"
	KindSpecialty  Kind = "specialty"
)

// ParseKind 校验类别名
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindUniversity, KindInstitute, KindDepartment, KindSpecialty:
		return k, nil
	}
	return "", fmt.Errorf("未知实体类别 %q", s)
}

// Op 变更操作
type Op string

const (
	OpCreate Op = "create"
	OpRead   Op = "read" // 初始快照
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

var (
	ErrMalformedEvent = errors.New("变更事件格式错误")
	ErrUnknownOp      = errors.New("未知变更操作")
)

// Event 单条实体变更
type Event struct {
	Kind   Kind
	Op     Op
	Before map[string]interface{}
	After  map[string]interface{}
}

// Data 取 after，缺失时取 before
func (e Event) Data() map[string]interface{} {
	if len(e.After) > 0 {
		return e.After
	}
	return e.Before
}

type envelope struct {
	Op     string                 `json:"op"`
	Before map[string]interface{} `json:"before"`
	After  map[string]interface{} `json:"after"`
}

// DecodeMessage 解析 Debezium 风格的消息体，兼容外层 payload 包装
func DecodeMessage(kind Kind, value []byte) (Event, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		// 墓碑消息
		return Event{}, fmt.Errorf("%w: 空消息体", ErrMalformedEvent)
	}

	var raw map[string]json.RawMessage
	if err := unmarshalNumber(value, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	body := value
	if p, ok := raw["payload"]; ok && !bytes.Equal(bytes.TrimSpace(p), []byte("null")) {
		body = p
	}

	var env envelope
	if err := unmarshalNumber(body, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	op, err := parseOp(env.Op)
	if err != nil {
		return Event{}, err
	}
	if len(env.Before) == 0 && len(env.After) == 0 {
		return Event{}, fmt.Errorf("%w: before 与 after 均为空", ErrMalformedEvent)
	}

	return Event{Kind: kind, Op: op, Before: env.Before, After: env.After}, nil
}

func parseOp(s string) (Op, error) {
	switch s {
	case "c", "create":
		return OpCreate, nil
	case "r":
		return OpRead, nil
	case "u":
		return OpUpdate, nil
	case "d":
		return OpDelete, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOp, s)
}

func unmarshalNumber(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// ── 记录提取 ──

var validate = validator.New()

type universityRecord struct {
	ID       int64 `validate:"gt=0"`
	Name     string
	Location string
}

type instituteRecord struct {
	ID           int64 `validate:"gt=0"`
	Name         string
	UniversityID int64
}

type departmentRecord struct {
	ID          int64 `validate:"gt=0"`
	Name        string
	InstituteID int64
}

type specialtyRecord struct {
	DepartmentID int64  `validate:"gt=0"`
	Name         string `validate:"required"`
}

func toUniversity(m map[string]interface{}) (universityRecord, error) {
	rec := universityRecord{
		ID:       intField(m, "id", "Id", "ID"),
		Name:     stringField(m, "name"),
		Location: stringField(m, "location"),
	}
	return rec, validate.Struct(rec)
}

func toInstitute(m map[string]interface{}) (instituteRecord, error) {
	rec := instituteRecord{
		ID:           intField(m, "id", "institute_id"),
		Name:         stringField(m, "name"),
		UniversityID: intField(m, "university_id"),
	}
	return rec, validate.Struct(rec)
}

func toDepartment(m map[string]interface{}) (departmentRecord, error) {
	rec := departmentRecord{
		ID:          intField(m, "id", "department_id"),
		Name:        stringField(m, "name"),
		InstituteID: intField(m, "institute_id"),
	}
	return rec, validate.Struct(rec)
}

func toSpecialty(m map[string]interface{}) (specialtyRecord, error) {
	rec := specialtyRecord{
		DepartmentID: intField(m, "department_id"),
		Name:         stringField(m, "name"),
	}
	return rec, validate.Struct(rec)
}

// intField 按别名顺序取第一个可解析的整数，缺失返回 0
func intField(m map[string]interface{}, keys ...string) int64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
		case float64:
			return int64(n)
		case int64:
			return n
		case int:
			return int64(n)
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i
			}
		}
	}
	return 0
}

func stringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ── PostgreSQL JSONB 自定义类型 ──

// Ratings 反馈评分，对应 JSONB 对象 {"quality":4,...}
type Ratings map[string]int

// Scan 将 JSONB 文本解析为 map。
func (r *Ratings) Scan(src interface{}) error {
	b, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("Ratings.Scan: %w", err)
	}
	if b == nil {
		*r = nil
		return nil
	}
	out := Ratings{}
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("Ratings.Scan: %w", err)
	}
	*r = out
	return nil
}

// Value 将 map 序列化为 JSONB 文本。
func (r Ratings) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]int(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// StringList 对应 JSONB 字符串数组 ["a","b"]
type StringList []string

// Scan 将 JSONB 文本解析为 []string。
func (l *StringList) Scan(src interface{}) error {
	b, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("StringList.Scan: %w", err)
	}
	if b == nil {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("StringList.Scan: %w", err)
	}
	*l = out
	return nil
}

// Value 将 []string 序列化为 JSONB 文本。
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}

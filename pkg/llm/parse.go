package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseable 生成内容无法解析为目标结构
var ErrUnparseable = errors.New("llm: generated content is not valid JSON")

// ParseError 记录解析链各阶段的失败原因
type ParseError struct {
	Stages []string
	Last   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v (stages: %s): %v", ErrUnparseable, strings.Join(e.Stages, " -> "), e.Last)
}

func (e *ParseError) Unwrap() error { return ErrUnparseable }

var fenceBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ParseGenerated 按固定顺序尝试解析模型输出：
//  1. 直接解析
//  2. 提取首个括号配平且可解析为 T 的 JSON 对象/数组块
//  3. 去除 markdown 代码围栏后解析
//  4. 返回 minimal() 构造的最小默认值，同时返回 *ParseError
//
// minimal 为 nil 时第 4 步返回 T 的零值。
func ParseGenerated[T any](raw string, minimal func() T) (T, error) {
	var out T
	perr := &ParseError{}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		perr.Stages = append(perr.Stages, "empty")
		perr.Last = errors.New("empty input")
		return fallback(minimal), perr
	}

	// 1. 直接解析
	err := json.Unmarshal([]byte(trimmed), &out)
	if err == nil {
		return out, nil
	}
	perr.Stages = append(perr.Stages, "direct")
	perr.Last = err

	// 2. 从每个 { 或 [ 起尝试解码一个完整的 JSON 值，按出现位置择先
	for _, candidate := range extractBlocks(trimmed) {
		var v T
		err := json.Unmarshal(candidate, &v)
		if err == nil {
			return v, nil
		}
		perr.Last = err
	}
	perr.Stages = append(perr.Stages, "extract")

	// 3. 去除代码围栏
	if m := fenceBlock.FindStringSubmatch(trimmed); len(m) == 2 {
		inner := strings.TrimSpace(m[1])
		var v T
		err := json.Unmarshal([]byte(inner), &v)
		if err == nil {
			return v, nil
		}
		perr.Last = err
	}
	perr.Stages = append(perr.Stages, "fence")

	// 4. 最小默认值
	perr.Stages = append(perr.Stages, "minimal")
	return fallback(minimal), perr
}

func fallback[T any](minimal func() T) T {
	if minimal == nil {
		var zero T
		return zero
	}
	return minimal()
}

// extractBlocks 返回 s 中所有括号配平的 JSON 块，嵌套块只取最外层
func extractBlocks(s string) []json.RawMessage {
	var blocks []json.RawMessage
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		blocks = append(blocks, raw)
		i += int(dec.InputOffset()) - 1
	}
	return blocks
}

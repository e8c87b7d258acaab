package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JoshH2S/tuterra-sub001/pkg/llm"
)

// composer 渲染提示词并调用生成服务；任何失败都回退到固定文案
type composer struct {
	gen    llm.Generator
	logger *zap.Logger
}

// compose 返回消息正文以及是否使用了回退文案
func (c *composer) compose(ctx context.Context, system, tmpl string, data any, fallback string) (string, bool) {
	if c.gen == nil || !c.gen.Configured() {
		return fallback, true
	}

	prompt, err := renderPrompt(tmpl, data)
	if err != nil {
		c.logger.Error("渲染提示词失败", zap.String("template", tmpl), zap.Error(err))
		return fallback, true
	}

	text, err := c.gen.Generate(ctx, system, prompt)
	if err != nil {
		c.logger.Warn("生成消息失败，使用固定文案", zap.String("template", tmpl), zap.Error(err))
		return fallback, true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fallback, true
	}
	return text, false
}

// generateJSON 调用生成服务并按解析链解析为 T；失败时返回 minimal() 与错误
func generateJSON[T any](ctx context.Context, c *composer, system, tmpl string, data any, minimal func() T) (T, error) {
	if c.gen == nil || !c.gen.Configured() {
		return minimal(), llm.ErrNotConfigured
	}

	prompt, err := renderPrompt(tmpl, data)
	if err != nil {
		return minimal(), err
	}

	raw, err := c.gen.Generate(ctx, system, prompt)
	if err != nil {
		return minimal(), err
	}
	return llm.ParseGenerated(raw, minimal)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "test-secret-key-for-unit-testing"
  promo_codes: ["SPRING24"]
scheduler:
  feedback_followup_delay: 5m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Scheduler.FeedbackFollowupDelay != 5*time.Minute {
		t.Errorf("期望 feedback_followup_delay=5m，实际=%v", cfg.Scheduler.FeedbackFollowupDelay)
	}
	if cfg.Scheduler.DispatchMinGap != 2*time.Minute {
		t.Errorf("期望 dispatch_min_gap=2m，实际=%v", cfg.Scheduler.DispatchMinGap)
	}
	if cfg.RateLimit.SessionCooldown != 10*time.Second {
		t.Errorf("期望 session_cooldown=10s，实际=%v", cfg.RateLimit.SessionCooldown)
	}
	if cfg.LLM.MaxRetries != 3 {
		t.Errorf("期望 llm.max_retries=3，实际=%d", cfg.LLM.MaxRetries)
	}
	if !cfg.Auth.HasPromoCode("spring24") {
		t.Error("推广码匹配应大小写不敏感")
	}
	if cfg.Auth.HasPromoCode("") {
		t.Error("空推广码不应通过")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	if _, err := Load(path); err == nil {
		t.Error("缺少 jwt_secret 时应返回错误")
	}
}

func TestValidate_InteractionBounds(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "0123456789abcdef"},
		LLM:    LLMConfig{MaxRetries: 3},
		Scheduler: SchedulerConfig{
			TeamInteractionMin: time.Hour,
			TeamInteractionMax: time.Minute,
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("team_interaction_max < team_interaction_min 应校验失败")
	}
}

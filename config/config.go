package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
	// PromoCodes 允许免订阅创建实习的推广码（仅校验，不做次数记账）
	PromoCodes []string `mapstructure:"promo_codes"`
}

// LLMConfig 文本生成服务配置
type LLMConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Version    string        `mapstructure:"version"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig 实习时间线与消息调度配置
// 所有偏移量都是可调参数，默认值对应产品设计
type SchedulerConfig struct {
	DispatchEnabled       bool          `mapstructure:"dispatch_enabled"`
	DispatchSpec          string        `mapstructure:"dispatch_spec"`
	DispatchBatchSize     int           `mapstructure:"dispatch_batch_size"`
	DispatchMinGap        time.Duration `mapstructure:"dispatch_min_gap"`
	FeedbackFollowupDelay time.Duration `mapstructure:"feedback_followup_delay"`
	ReminderWindow        time.Duration `mapstructure:"reminder_window"`
	ReminderLead          time.Duration `mapstructure:"reminder_lead"`
	CheckInInterval       time.Duration `mapstructure:"check_in_interval"`
	TeamIntroWindow       time.Duration `mapstructure:"team_intro_window"`
	TeamIntroJitter       time.Duration `mapstructure:"team_intro_jitter"`
	TeamIntroMax          int           `mapstructure:"team_intro_max"`
	TeamInteractionMin    time.Duration `mapstructure:"team_interaction_min"`
	TeamInteractionMax    time.Duration `mapstructure:"team_interaction_max"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	GlobalLimit     int           `mapstructure:"global_limit"`
	GlobalWindow    time.Duration `mapstructure:"global_window"`
	SessionCooldown time.Duration `mapstructure:"session_cooldown"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("INTERN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "internship")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "1h")
	v.SetDefault("auth.issuer", "tuterra")
	v.SetDefault("auth.promo_codes", []string{})

	v.SetDefault("llm.base_url", "https://api.anthropic.com/v1/messages")
	v.SetDefault("llm.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.version", "2023-06-01")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.base_delay", "1s")
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("scheduler.dispatch_enabled", true)
	v.SetDefault("scheduler.dispatch_spec", "@every 10m")
	v.SetDefault("scheduler.dispatch_batch_size", 200)
	v.SetDefault("scheduler.dispatch_min_gap", "2m")
	v.SetDefault("scheduler.feedback_followup_delay", "2m")
	v.SetDefault("scheduler.reminder_window", "48h")
	v.SetDefault("scheduler.reminder_lead", "24h")
	v.SetDefault("scheduler.check_in_interval", "72h")
	v.SetDefault("scheduler.team_intro_window", "36h")
	v.SetDefault("scheduler.team_intro_jitter", "2h")
	v.SetDefault("scheduler.team_intro_max", 3)
	v.SetDefault("scheduler.team_interaction_min", "30m")
	v.SetDefault("scheduler.team_interaction_max", "3h")

	v.SetDefault("ratelimit.global_limit", 120)
	v.SetDefault("ratelimit.global_window", "1m")
	v.SetDefault("ratelimit.session_cooldown", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.LLM.MaxRetries < 1 || c.LLM.MaxRetries > 5 {
		return fmt.Errorf("配置校验失败: llm.max_retries 必须在 1-5 之间")
	}
	if c.Scheduler.DispatchMinGap < 0 || c.Scheduler.FeedbackFollowupDelay < 0 {
		return fmt.Errorf("配置校验失败: scheduler 时间偏移不能为负数")
	}
	if c.Scheduler.TeamInteractionMax < c.Scheduler.TeamInteractionMin {
		return fmt.Errorf("配置校验失败: scheduler.team_interaction_max 不能小于 team_interaction_min")
	}
	return nil
}

// HasPromoCode 判断推广码是否在白名单中（大小写不敏感）
func (c *AuthConfig) HasPromoCode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, p := range c.PromoCodes {
		if strings.EqualFold(p, code) {
			return true
		}
	}
	return false
}

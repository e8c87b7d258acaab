// Package auth 定义请求级认证上下文。
// 中间件负责构造，handler 显式传给 service，不使用全局状态。
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JoshH2S/tuterra-sub001/pkg/clock"
	"github.com/JoshH2S/tuterra-sub001/pkg/jwt"
)

var (
	ErrNotInitialized = errors.New("认证上下文未初始化")
	ErrTokenRevoked   = errors.New("token 已注销")
	ErrTokenExpired   = errors.New("token 已过期")
)

// PlanFree 免费套餐
const PlanFree = "free"

// ContextKey 认证上下文在 gin.Context 中的键
const ContextKey = "auth"

// 未携带过期时间的令牌注销后在黑名单中保留的时长
const revokeTTLWithoutExpiry = 24 * time.Hour

// TokenParser 解析并校验访问令牌
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

// Revoker 令牌黑名单
type Revoker interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthContext 单个请求的认证状态
// 生命周期：Init → (Refresh)* → Teardown
type AuthContext struct {
	UserID    string
	Plan      string
	TokenID   string
	ExpiresAt time.Time

	parser  TokenParser
	revoker Revoker
	clock   clock.Clock
}

// New 创建未初始化的认证上下文；revoker 可为 nil（Redis 不可用时不支持注销）
func New(parser TokenParser, revoker Revoker, clk clock.Clock) *AuthContext {
	if clk == nil {
		clk = clock.Real{}
	}
	return &AuthContext{parser: parser, revoker: revoker, clock: clk}
}

// Init 解析令牌并填充用户信息
func (a *AuthContext) Init(ctx context.Context, token string) error {
	claims, err := a.parser.ParseToken(token)
	if err != nil {
		return err
	}
	if claims.TokenType != "" && claims.TokenType != "access" {
		return jwt.ErrTokenInvalid
	}

	a.UserID = claims.UserID
	a.Plan = claims.Plan
	a.TokenID = claims.ID
	a.ExpiresAt = time.Time{}
	if claims.ExpiresAt != nil {
		a.ExpiresAt = claims.ExpiresAt.Time
	}

	if err := a.checkRevoked(ctx); err != nil {
		a.reset()
		return err
	}
	return nil
}

// Refresh 重新校验当前令牌是否仍然有效（长连接周期性调用）
func (a *AuthContext) Refresh(ctx context.Context) error {
	if !a.Authenticated() {
		return ErrNotInitialized
	}
	if !a.ExpiresAt.IsZero() && !a.clock.Now().Before(a.ExpiresAt) {
		return ErrTokenExpired
	}
	return a.checkRevoked(ctx)
}

// Teardown 注销当前令牌并清空上下文
func (a *AuthContext) Teardown(ctx context.Context) error {
	if !a.Authenticated() {
		return ErrNotInitialized
	}
	defer a.reset()

	if a.revoker == nil || a.TokenID == "" {
		return nil
	}
	ttl := revokeTTLWithoutExpiry
	if !a.ExpiresAt.IsZero() {
		ttl = a.ExpiresAt.Sub(a.clock.Now())
	}
	if err := a.revoker.BlacklistToken(ctx, a.TokenID, ttl); err != nil {
		return fmt.Errorf("注销 token 失败: %w", err)
	}
	return nil
}

// Authenticated 是否已通过 Init
func (a *AuthContext) Authenticated() bool {
	return a != nil && a.UserID != ""
}

// IsSubscriber 是否为付费订阅用户
func (a *AuthContext) IsSubscriber() bool {
	return a.Authenticated() && a.Plan != "" && a.Plan != PlanFree
}

func (a *AuthContext) checkRevoked(ctx context.Context) error {
	if a.revoker == nil || a.TokenID == "" {
		return nil
	}
	revoked, err := a.revoker.IsBlacklisted(ctx, a.TokenID)
	if err != nil {
		return fmt.Errorf("检查 token 黑名单失败: %w", err)
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

func (a *AuthContext) reset() {
	a.UserID = ""
	a.Plan = ""
	a.TokenID = ""
	a.ExpiresAt = time.Time{}
}

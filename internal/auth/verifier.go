package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"carelink-binding/internal/domain"
	"carelink-binding/internal/store"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Principal 认证后的主体
// Elevated 为真时可操作任意所有者记录（运营/管理端），
// 否则只能绑定/解绑自己的所有者记录
type Principal struct {
	PrincipalID string `json:"principal_id"`
	Elevated    bool   `json:"elevated"`
}

// CanOperateOn 主体是否允许操作指定所有者的记录
func (p *Principal) CanOperateOn(ownerID string) bool {
	if p == nil {
		return false
	}
	return p.Elevated || p.PrincipalID == ownerID
}

// TokenVerifier 身份/令牌校验器（外部认证系统的通过/失败契约）
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// verifyResponse 外部认证服务的响应
type verifyResponse struct {
	PrincipalID string `json:"principal_id"`
	Elevated    bool   `json:"elevated"`
}

// RemoteVerifier 调用外部认证服务校验 Bearer 令牌，结果短期缓存
type RemoteVerifier struct {
	httpClient *resty.Client
	cache      store.KV
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewRemoteVerifier 创建远端令牌校验器
// cache 可为 nil（不缓存，每次都走远端）
func NewRemoteVerifier(verifyURL string, cache store.KV, cacheTTL time.Duration, logger *zap.Logger) *RemoteVerifier {
	client := resty.New().
		SetBaseURL(verifyURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RemoteVerifier{
		httpClient: client,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

func cacheKey(token string) string {
	return "auth:token:" + token
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	if v.cache != nil {
		if cached, err := v.cache.Get(ctx, cacheKey(token)); err == nil {
			var p Principal
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	var result verifyResponse
	resp, err := v.httpClient.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&result).
		Post("/verify")
	if err != nil {
		v.logger.Error("Token verification request failed", zap.Error(err))
		return nil, fmt.Errorf("token verification request failed: %w", err)
	}
	if resp.StatusCode() != 200 || result.PrincipalID == "" {
		return nil, domain.ErrUnauthorized
	}

	p := &Principal{PrincipalID: result.PrincipalID, Elevated: result.Elevated}
	if v.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := v.cache.Set(ctx, cacheKey(token), string(data), v.cacheTTL); err != nil {
				v.logger.Warn("Failed to cache verified token", zap.Error(err))
			}
		}
	}
	return p, nil
}

// StaticVerifier 开发/联测模式：任意非空令牌映射为固定主体
type StaticVerifier struct {
	Principal Principal
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	p := v.Principal
	return &p, nil
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"carelink-binding/internal/auth"

	"go.uber.org/zap"
)

type principalKey struct{}

// PrincipalFrom 从请求上下文取出认证主体
func PrincipalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey{}).(*auth.Principal)
	return p
}

// AuthMiddleware Bearer 令牌认证中间件
// 校验失败返回 401，成功则把主体放入请求上下文
func AuthMiddleware(verifier auth.TokenVerifier, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			token := bearerToken(req)
			principal, err := verifier.Verify(req.Context(), token)
			if err != nil {
				logger.Debug("Token verification rejected", zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(FailCode("UNAUTHORIZED", "invalid or missing token"))
				return
			}
			ctx := context.WithValue(req.Context(), principalKey{}, principal)
			next(w, req.WithContext(ctx))
		}
	}
}

func bearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

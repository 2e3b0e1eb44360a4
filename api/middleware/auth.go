package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SessionCookie = "session_token"
	LoginPath     = "/admin/login"
	identityKey   = "identity"
)

// Identity 当前请求的已认证身份, 由 RequireAdmin 写入
type Identity struct {
	User string
}

// SessionParser 校验会话令牌, 返回用户名
type SessionParser interface {
	ParseToken(token string) (string, error)
}

type AuthMiddleware struct {
	sessions SessionParser
	logger   *zap.Logger
}

func NewAuthMiddleware(sessions SessionParser, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		logger:   logger.With(zap.String("middleware", "auth")),
	}
}

// RequireAdmin 未登录时跳转登录页, 不执行后续 handler
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil {
			c.Redirect(http.StatusSeeOther, LoginPath)
			c.Abort()
			return
		}

		user, err := am.sessions.ParseToken(token)
		if err != nil {
			am.logger.Debug("Rejected session", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Redirect(http.StatusSeeOther, LoginPath)
			c.Abort()
			return
		}

		c.Set(identityKey, Identity{User: user})
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

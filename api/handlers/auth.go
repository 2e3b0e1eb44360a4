package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/api/middleware"
	"github.com/muxi-Infra/certportal/pkg/metrics"
)

// Authenticator 校验管理员口令并签发会话令牌
type Authenticator interface {
	Login(password string) (string, error)
	TTL() time.Duration
}

type AuthHandler struct {
	auth         Authenticator
	secureCookie bool
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewAuthHandler(auth Authenticator, secureCookie bool, m *metrics.Metrics, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		secureCookie: secureCookie,
		metrics:      m,
		logger:       logger.With(zap.String("handler", "auth")),
	}
}

func (ah *AuthHandler) ShowLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin_login.html", gin.H{
		"Title": "Admin login",
	})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	token, err := ah.auth.Login(c.PostForm("password"))
	if err != nil {
		ah.metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		ah.logger.Warn("Failed admin login",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("client_ip", c.ClientIP()))
		c.HTML(http.StatusUnauthorized, "admin_login.html", gin.H{
			"Title":   "Admin login",
			"message": "Invalid password",
			"error":   true,
		})
		return
	}

	ah.metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	ah.logger.Info("Admin logged in", zap.String("client_ip", c.ClientIP()))

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, int(ah.auth.TTL().Seconds()), "/", "", ah.secureCookie, true)
	c.Redirect(http.StatusSeeOther, "/admin")
}

func (ah *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", ah.secureCookie, true)
	c.Redirect(http.StatusSeeOther, "/")
}

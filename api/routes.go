package api

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/api/handlers"
	"github.com/muxi-Infra/certportal/api/middleware"
	"github.com/muxi-Infra/certportal/config"
	"github.com/muxi-Infra/certportal/pkg/auth"
	"github.com/muxi-Infra/certportal/pkg/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pinger 健康检查用的存储探测
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	engine         *gin.Engine
	logger         *zap.Logger
	metrics        *metrics.Metrics
	db             Pinger
	corsConf       config.CORSConf
	publicHandler  *handlers.PublicHandler
	adminHandler   *handlers.AdminHandler
	authHandler    *handlers.AuthHandler
	authMiddleware *middleware.AuthMiddleware
	reqMiddleware  *middleware.RequestMiddleware
}

func NewRouter(
	conf *config.Conf,
	logger *zap.Logger,
	m *metrics.Metrics,
	certs handlers.CertificateService,
	gate *auth.Gate,
	db Pinger,
) *Router {
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	authMiddleware := middleware.NewAuthMiddleware(gate, logger)

	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())
	engine.Use(middleware.Metrics(m))
	engine.Use(middleware.SecurityHeaders())

	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
	engine.SetHTMLTemplate(tmpl)

	r := &Router{
		engine:         engine,
		logger:         logger,
		metrics:        m,
		db:             db,
		corsConf:       conf.CORS,
		publicHandler:  handlers.NewPublicHandler(certs, logger),
		adminHandler:   handlers.NewAdminHandler(certs, logger),
		authHandler:    handlers.NewAuthHandler(gate, conf.Session.SecureCookie, m, logger),
		authMiddleware: authMiddleware,
		reqMiddleware:  reqMiddleware,
	}
	r.SetupRoutes()
	return r
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", r.health)
	r.engine.GET("/metrics", gin.WrapH(r.metrics.Handler()))

	r.engine.GET("/", r.publicHandler.Home)
	r.engine.GET("/cert/:certId", r.publicHandler.ShowCertificate)
	r.engine.GET("/cert/:certId/pdf", r.publicHandler.DownloadPDF)
	r.engine.GET("/verify", r.publicHandler.Verify)

	apiGroup := r.engine.Group("/api")
	apiGroup.Use(cors.New(r.corsConfig()))
	{
		apiGroup.GET("/certificates.json", r.publicHandler.ListJSON)
		apiGroup.GET("/verify", r.publicHandler.VerifyJSON)
	}

	r.engine.GET("/admin/login", r.authHandler.ShowLoginPage)
	r.engine.POST("/admin/login", r.authHandler.Login)
	r.engine.GET("/admin/logout", r.authHandler.Logout)

	admin := r.engine.Group("/admin")
	admin.Use(r.authMiddleware.RequireAdmin())
	{
		admin.GET("", r.adminHandler.Dashboard)
		admin.POST("/create", r.adminHandler.Create)
		admin.POST("/delete", r.adminHandler.Delete)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"Title":   "Not found",
			"Status":  http.StatusNotFound,
			"Message": "Page not found",
		})
	})
}

// corsConfig 只读 JSON 接口, 未配置来源时允许任意来源
func (r *Router) corsConfig() cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	if len(r.corsConf.AllowOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = r.corsConf.AllowOrigins
	}
	return cc
}

func (r *Router) health(c *gin.Context) {
	if err := r.db.Ping(c.Request.Context()); err != nil {
		r.logger.Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "name": "certportal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "up", "name": "certportal"})
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Handler() http.Handler {
	return r.engine
}

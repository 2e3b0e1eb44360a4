package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/api/middleware"
	"github.com/muxi-Infra/certportal/service"
)

type AdminHandler struct {
	certs  CertificateService
	logger *zap.Logger
}

func NewAdminHandler(certs CertificateService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		certs:  certs,
		logger: logger.With(zap.String("handler", "admin")),
	}
}

func (ah *AdminHandler) Dashboard(c *gin.Context) {
	list, err := ah.certs.ListAll(c.Request.Context())
	if err != nil {
		renderError(c, ah.logger, err)
		return
	}
	id, _ := middleware.IdentityFrom(c)
	c.HTML(http.StatusOK, "admin.html", gin.H{
		"Title":        "Admin",
		"User":         id.User,
		"Certificates": list,
	})
}

func (ah *AdminHandler) Create(c *gin.Context) {
	var in service.IssueInput
	if err := c.ShouldBind(&in); err != nil {
		renderError(c, ah.logger, badInput("Invalid certificate form"))
		return
	}
	in.CertID = strings.TrimSpace(in.CertID)

	cert, err := ah.certs.Issue(c.Request.Context(), in)
	if err != nil {
		renderError(c, ah.logger, err)
		return
	}

	id, _ := middleware.IdentityFrom(c)
	ah.logger.Info("Certificate created",
		zap.String("cert_id", cert.CertID),
		zap.String("user", id.User))
	c.Redirect(http.StatusSeeOther, "/admin")
}

// Delete 记录不存在或 id 非法时同样跳回列表
func (ah *AdminHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.PostForm("id")), 10, 64)
	if err != nil {
		ah.logger.Debug("Ignoring delete with invalid id",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("id", c.PostForm("id")))
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}

	if err := ah.certs.Revoke(c.Request.Context(), uint(id)); err != nil {
		renderError(c, ah.logger, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/admin")
}

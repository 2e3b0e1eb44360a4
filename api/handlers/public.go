package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/dao"
	"github.com/muxi-Infra/certportal/service"
)

// CertificateService handlers 依赖的证书操作
type CertificateService interface {
	ListSummaries(ctx context.Context) ([]dao.Summary, error)
	ListAll(ctx context.Context) ([]dao.Certificate, error)
	Get(ctx context.Context, certID string) (*dao.Certificate, error)
	Verify(ctx context.Context, certID string) (*service.Verification, error)
	Issue(ctx context.Context, in service.IssueInput) (*dao.Certificate, error)
	Revoke(ctx context.Context, id uint) error
	RenderPDF(ctx context.Context, certID string) (*dao.Certificate, []byte, error)
}

type PublicHandler struct {
	certs  CertificateService
	logger *zap.Logger
}

func NewPublicHandler(certs CertificateService, logger *zap.Logger) *PublicHandler {
	return &PublicHandler{
		certs:  certs,
		logger: logger.With(zap.String("handler", "public")),
	}
}

func (ph *PublicHandler) Home(c *gin.Context) {
	list, err := ph.certs.ListSummaries(c.Request.Context())
	if err != nil {
		renderError(c, ph.logger, err)
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":        "Certificates",
		"Certificates": list,
	})
}

func (ph *PublicHandler) ShowCertificate(c *gin.Context) {
	cert, err := ph.certs.Get(c.Request.Context(), c.Param("certId"))
	if err != nil {
		renderError(c, ph.logger, err)
		return
	}
	c.HTML(http.StatusOK, "certificate.html", gin.H{
		"Title":       "Certificate " + cert.CertID,
		"Certificate": cert,
	})
}

func (ph *PublicHandler) DownloadPDF(c *gin.Context) {
	cert, data, err := ph.certs.RenderPDF(c.Request.Context(), c.Param("certId"))
	if err != nil {
		renderError(c, ph.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+safeFilename(cert.CertID)+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

type certificateJSON struct {
	CertID    string `json:"cert_id"`
	Name      string `json:"name"`
	Project   string `json:"project"`
	IssueDate string `json:"issue_date"`
}

// ListJSON 与首页同序, 不输出内部 id
func (ph *PublicHandler) ListJSON(c *gin.Context) {
	list, err := ph.certs.ListSummaries(c.Request.Context())
	if err != nil {
		ph.logger.Error("Failed to list certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	out := make([]certificateJSON, 0, len(list))
	for _, s := range list {
		out = append(out, certificateJSON{
			CertID:    s.CertID,
			Name:      s.Name,
			Project:   s.Project,
			IssueDate: s.IssueDate,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (ph *PublicHandler) Verify(c *gin.Context) {
	query := strings.TrimSpace(c.Query("cert"))
	data := gin.H{
		"Title": "Verify a certificate",
		"Query": query,
	}
	if query == "" {
		c.HTML(http.StatusOK, "verify.html", data)
		return
	}

	result, err := ph.certs.Verify(c.Request.Context(), query)
	if err != nil {
		renderError(c, ph.logger, err)
		return
	}
	data["Searched"] = true
	data["Result"] = result
	c.HTML(http.StatusOK, "verify.html", data)
}

func (ph *PublicHandler) VerifyJSON(c *gin.Context) {
	query := strings.TrimSpace(c.Query("cert"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cert query parameter is required"})
		return
	}

	result, err := ph.certs.Verify(c.Request.Context(), query)
	if err != nil {
		ph.logger.Error("Failed to verify certificate", zap.String("cert_id", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"valid": false, "cert_id": query})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "certificate": result})
}

// safeFilename 去掉会破坏 Content-Disposition 的字符
func safeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, s)
}

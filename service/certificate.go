package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/dao"
	"github.com/muxi-Infra/certportal/pkg/metrics"
)

// Repository 证书存储
type Repository interface {
	ListSummaries(ctx context.Context) ([]dao.Summary, error)
	GetByCertID(ctx context.Context, certID string) (*dao.Certificate, error)
	GetFullList(ctx context.Context) ([]dao.Certificate, error)
	Create(ctx context.Context, cert *dao.Certificate) (uint, error)
	Delete(ctx context.Context, id uint) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// Notifier 签发通知, 失败不影响签发结果
type Notifier interface {
	NotifyIssued(cert *dao.Certificate) error
}

// PDFRenderer 证书 PDF 渲染
type PDFRenderer interface {
	Render(cert *dao.Certificate) ([]byte, error)
}

// IssueInput 管理后台提交的字段
type IssueInput struct {
	CertID    string `form:"cert_id" json:"cert_id" yaml:"cert_id"`
	Name      string `form:"name" json:"name" yaml:"name"`
	Project   string `form:"project" json:"project" yaml:"project"`
	StartDate string `form:"start_date" json:"start_date" yaml:"start_date"`
	EndDate   string `form:"end_date" json:"end_date" yaml:"end_date"`
	IssueDate string `form:"issue_date" json:"issue_date" yaml:"issue_date"`
	Signature string `form:"signature" json:"signature" yaml:"signature"`
	Notes     string `form:"notes" json:"notes" yaml:"notes"`
}

func (in IssueInput) toModel() *dao.Certificate {
	return &dao.Certificate{
		CertID:    in.CertID,
		Name:      in.Name,
		Project:   in.Project,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		IssueDate: in.IssueDate,
		Signature: in.Signature,
		Notes:     in.Notes,
	}
}

// Verification 对外校验只暴露这些字段, 不含签名与备注
type Verification struct {
	CertID    string `json:"cert_id"`
	Name      string `json:"name"`
	Project   string `json:"project"`
	IssueDate string `json:"issue_date"`
}

type CertificateService struct {
	repo     Repository
	renderer PDFRenderer
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewCertificateService(
	repo Repository,
	renderer PDFRenderer,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CertificateService {
	return &CertificateService{
		repo:     repo,
		renderer: renderer,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With(zap.String("service", "certificate")),
	}
}

func (s *CertificateService) ListSummaries(ctx context.Context) ([]dao.Summary, error) {
	return s.repo.ListSummaries(ctx)
}

func (s *CertificateService) ListAll(ctx context.Context) ([]dao.Certificate, error) {
	return s.repo.GetFullList(ctx)
}

func (s *CertificateService) Get(ctx context.Context, certID string) (*dao.Certificate, error) {
	return s.repo.GetByCertID(ctx, certID)
}

// Verify 未找到时返回 (nil, nil)
func (s *CertificateService) Verify(ctx context.Context, certID string) (*Verification, error) {
	cert, err := s.repo.GetByCertID(ctx, certID)
	if errors.Is(err, dao.ErrNotFound) {
		s.metrics.ObserveCertificateOp("verify_miss", nil)
		return nil, nil
	}
	if err != nil {
		s.metrics.ObserveCertificateOp("verify", err)
		return nil, err
	}
	s.metrics.ObserveCertificateOp("verify", nil)
	return &Verification{
		CertID:    cert.CertID,
		Name:      cert.Name,
		Project:   cert.Project,
		IssueDate: cert.IssueDate,
	}, nil
}

// Issue 写入新证书并发送通知
func (s *CertificateService) Issue(ctx context.Context, in IssueInput) (*dao.Certificate, error) {
	cert := in.toModel()
	_, err := s.repo.Create(ctx, cert)
	s.metrics.ObserveCertificateOp("create", err)
	if err != nil {
		return nil, err
	}
	s.metrics.CertificatesTotal.Inc()

	s.logger.Info("Certificate issued",
		zap.String("cert_id", cert.CertID),
		zap.Uint("id", cert.ID),
	)

	if s.notifier != nil {
		if err := s.notifier.NotifyIssued(cert); err != nil {
			s.logger.Warn("Failed to send issuance notification",
				zap.String("cert_id", cert.CertID),
				zap.Error(err),
			)
		}
	}
	return cert, nil
}

// Revoke 按内部 id 删除, 不存在时不报错
func (s *CertificateService) Revoke(ctx context.Context, id uint) error {
	removed, err := s.repo.Delete(ctx, id)
	s.metrics.ObserveCertificateOp("delete", err)
	if err != nil {
		return err
	}
	if removed {
		s.metrics.CertificatesTotal.Dec()
		s.logger.Info("Certificate deleted", zap.Uint("id", id))
	} else {
		s.logger.Debug("Delete of missing certificate ignored", zap.Uint("id", id))
	}
	return nil
}

// RenderPDF 查找证书并生成 PDF
func (s *CertificateService) RenderPDF(ctx context.Context, certID string) (*dao.Certificate, []byte, error) {
	cert, err := s.repo.GetByCertID(ctx, certID)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	data, err := s.renderer.Render(cert)
	s.metrics.PDFRenderDurationSeconds.Observe(time.Since(start).Seconds())
	s.metrics.ObserveCertificateOp("pdf", err)
	if err != nil {
		return nil, nil, err
	}
	return cert, data, nil
}

// SyncGauge 启动时同步证书数量
func (s *CertificateService) SyncGauge(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	s.metrics.CertificatesTotal.Set(float64(n))
	return nil
}

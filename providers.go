package main

import (
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/config"
	"github.com/muxi-Infra/certportal/dao"
	"github.com/muxi-Infra/certportal/pkg/auth"
	"github.com/muxi-Infra/certportal/pkg/email"
	"github.com/muxi-Infra/certportal/pkg/logger"
	"github.com/muxi-Infra/certportal/pkg/pdf"
	"github.com/muxi-Infra/certportal/pkg/ssl"
)

func ProvideLogger(conf *config.Conf) (*logger.Logger, func(), error) {
	l, err := logger.NewLogger(conf.Log)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}

func ProvideZapLogger(l *logger.Logger) *zap.Logger {
	return l.Logger
}

func ProvideCertificateDao(conf *config.Conf, l *zap.Logger) (*dao.CertificateDao, func(), error) {
	d, err := dao.NewCertificateDao(conf.Storage.Path, conf.Cert.IDPrefix, l)
	if err != nil {
		return nil, nil, err
	}
	return d, func() {
		if err := d.Close(); err != nil {
			l.Warn("Failed to close database", zap.Error(err))
		}
	}, nil
}

func ProvideGate(conf *config.Conf) (*auth.Gate, error) {
	return auth.NewGate(conf.Admin.Password, conf.Session.Secret, conf.Session.TTL)
}

func ProvideRenderer() *pdf.Renderer {
	return pdf.NewRenderer()
}

func ProvideEmailClient(conf *config.Conf) *email.EmailClient {
	return email.NewEmailClient(conf.Email)
}

func ProvideTLSManager(conf *config.Conf, l *zap.Logger) (*ssl.Manager, error) {
	return ssl.NewManager(conf.TLS, l)
}

//go:generate wire
//go:build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/muxi-Infra/certportal/api"
	"github.com/muxi-Infra/certportal/api/handlers"
	"github.com/muxi-Infra/certportal/config"
	"github.com/muxi-Infra/certportal/dao"
	"github.com/muxi-Infra/certportal/pkg/email"
	"github.com/muxi-Infra/certportal/pkg/metrics"
	"github.com/muxi-Infra/certportal/pkg/pdf"
	"github.com/muxi-Infra/certportal/service"
)

// wireSet 定义所有依赖
var wireSet = wire.NewSet(
	ProvideLogger,
	ProvideZapLogger,
	ProvideCertificateDao,
	ProvideGate,
	ProvideRenderer,
	ProvideEmailClient,
	ProvideTLSManager,
	metrics.New,
	service.NewCertificateService,
	api.NewRouter,
	NewApp,

	wire.Bind(new(service.Repository), new(*dao.CertificateDao)),
	wire.Bind(new(service.PDFRenderer), new(*pdf.Renderer)),
	wire.Bind(new(service.Notifier), new(*email.EmailClient)),
	wire.Bind(new(handlers.CertificateService), new(*service.CertificateService)),
	wire.Bind(new(api.Pinger), new(*dao.CertificateDao)),
)

func InitApp(conf *config.Conf) (*App, func(), error) {
	wire.Build(
		wireSet,
	)
	return &App{}, nil, nil
}

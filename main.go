package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/api"
	"github.com/muxi-Infra/certportal/config"
	"github.com/muxi-Infra/certportal/dao"
	"github.com/muxi-Infra/certportal/pkg/logger"
	"github.com/muxi-Infra/certportal/pkg/ssl"
	"github.com/muxi-Infra/certportal/service"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type App struct {
	conf   *config.Conf
	logger *logger.Logger
	router *api.Router
	certs  *service.CertificateService
	dao    *dao.CertificateDao
	tls    *ssl.Manager
}

func NewApp(
	conf *config.Conf,
	l *logger.Logger,
	router *api.Router,
	certs *service.CertificateService,
	d *dao.CertificateDao,
	tlsManager *ssl.Manager,
) *App {
	return &App{
		conf:   conf,
		logger: l,
		router: router,
		certs:  certs,
		dao:    d,
		tls:    tlsManager,
	}
}

// Serve 阻塞直到收到 SIGINT/SIGTERM 或监听失败
func (app *App) Serve(ctx context.Context) error {
	if app.conf.Storage.Seed {
		seeded, err := app.dao.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
		if seeded {
			app.logger.Info("Seeded sample certificate", zap.String("cert_id", dao.SeedCertificate.CertID))
		}
	}
	if err := app.certs.SyncGauge(ctx); err != nil {
		return fmt.Errorf("count certificates: %w", err)
	}

	app.conf.Watch(func(level string) {
		app.logger.SetLevel(level)
		app.logger.Info("Log level changed", zap.String("level", level))
	})

	srv := &http.Server{
		Addr:         app.conf.Addr(),
		Handler:      app.router.Handler(),
		ReadTimeout:  app.conf.Server.ReadTimeout,
		WriteTimeout: app.conf.Server.WriteTimeout,
		ErrorLog:     zap.NewStdLog(app.logger.Logger),
	}

	errCh := make(chan error, 1)
	if app.tls != nil {
		tlsConf, err := app.tls.TLSConfig(ctx)
		if err != nil {
			return err
		}
		srv.TLSConfig = tlsConf
		go func() { errCh <- srv.ListenAndServeTLS("", "") }()
	} else {
		go func() { errCh <- srv.ListenAndServe() }()
	}
	app.logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.Strings("tls_domains", app.tls.Domains()))

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-sigCtx.Done():
	}

	app.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	app.logger.Info("Server gracefully stopped")
	return nil
}

// Import 从 yaml 文件批量签发证书
func (app *App) Import(ctx context.Context, path string) (*service.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	file, err := service.ParseImportFile(f)
	if err != nil {
		return nil, err
	}
	res, err := app.certs.Import(ctx, file)
	if err != nil {
		return res, err
	}
	app.logger.Info("Import finished",
		zap.String("file", path),
		zap.Int("created", len(res.Created)),
		zap.Int("duplicates", len(res.Duplicates)))
	return res, nil
}

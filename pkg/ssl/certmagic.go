package ssl

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/caddyserver/certmagic"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/config"
)

// Manager 用 ACME DNS-01 为门户自身的域名申请并续期 HTTPS 证书
type Manager struct {
	cm      *certmagic.Config
	domains []string
}

// NewManager tls.domains 为空时返回 nil, 表示走明文 HTTP
func NewManager(conf config.TLSConf, logger *zap.Logger) (*Manager, error) {
	if len(conf.Domains) == 0 {
		return nil, nil
	}

	email := conf.Email
	if email == "" {
		email = "admin@" + conf.Domains[0]
	}

	//根据配置去获取dns配置
	dnsProvider, err := NewDNSProvider(conf.DNS)
	if err != nil {
		return nil, err
	}

	certmagic.DefaultACME.Email = email
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.DisableHTTPChallenge = true
	certmagic.DefaultACME.DisableTLSALPNChallenge = true
	certmagic.DefaultACME.DNS01Solver = &certmagic.DNS01Solver{
		DNSManager: certmagic.DNSManager{
			DNSProvider: dnsProvider,
		},
	}
	certmagic.Default.Storage = &certmagic.FileStorage{Path: conf.StoragePath}
	certmagic.Default.Logger = logger.With(zap.String("component", "certmagic"))

	return &Manager{cm: certmagic.NewDefault(), domains: conf.Domains}, nil
}

// TLSConfig 同步申请证书后返回可直接用于 http.Server 的配置
func (m *Manager) TLSConfig(ctx context.Context) (*tls.Config, error) {
	if m == nil {
		return nil, errors.New("tls manager not configured")
	}
	if err := m.cm.ManageSync(ctx, m.domains); err != nil {
		return nil, fmt.Errorf("manage certificates for %v: %w", m.domains, err)
	}
	tlsConf := m.cm.TLSConfig()
	tlsConf.NextProtos = append([]string{"h2", "http/1.1"}, tlsConf.NextProtos...)
	return tlsConf, nil
}

func (m *Manager) Domains() []string {
	if m == nil {
		return nil
	}
	return m.domains
}

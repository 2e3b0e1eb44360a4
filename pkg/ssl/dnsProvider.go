package ssl

import (
	"fmt"
	"strings"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/alidns"
	"github.com/libdns/cloudflare"
	"github.com/libdns/tencentcloud"

	"github.com/muxi-Infra/certportal/config"
)

const (
	Aliyun     = "aliyun"
	Tencent    = "tencent"
	CloudFlare = "cloudflare"
)

// NewDNSProvider 根据平台返回 DNS-01 使用的 libdns provider
func NewDNSProvider(conf config.DNSConf) (certmagic.DNSProvider, error) {
	switch strings.ToLower(conf.Platform) {
	case Aliyun:
		if conf.AccessKeyID == "" || conf.AccessKeySecret == "" {
			return nil, fmt.Errorf("dns platform %s: access key id and secret are required", Aliyun)
		}
		return &alidns.Provider{
			AccKeyID:     conf.AccessKeyID,
			AccKeySecret: conf.AccessKeySecret,
		}, nil
	case Tencent:
		if conf.AccessKeyID == "" || conf.AccessKeySecret == "" {
			return nil, fmt.Errorf("dns platform %s: secret id and key are required", Tencent)
		}
		return &tencentcloud.Provider{
			SecretId:  conf.AccessKeyID,
			SecretKey: conf.AccessKeySecret,
		}, nil
	case CloudFlare:
		// cloudflare 只需要一个 token, 没填时复用 AccessKeySecret
		token := conf.Token
		if token == "" {
			token = conf.AccessKeySecret
		}
		if token == "" {
			return nil, fmt.Errorf("dns platform %s: api token is required", CloudFlare)
		}
		return &cloudflare.Provider{
			APIToken: token,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported dns platform %q", conf.Platform)
	}
}

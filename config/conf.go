package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingSecret = errors.New("required secret is not configured")

type ServerConf struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConf struct {
	Path string `mapstructure:"path"`
	Seed bool   `mapstructure:"seed"`
}

type AdminConf struct {
	// 明文密码或 bcrypt 哈希
	Password string `mapstructure:"password"`
}

type SessionConf struct {
	Secret       string        `mapstructure:"secret"`
	TTL          time.Duration `mapstructure:"ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

type CertConf struct {
	IDPrefix string `mapstructure:"id_prefix"`
}

type LogConf struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DNSConf struct {
	Platform        string `mapstructure:"platform"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Token           string `mapstructure:"token"`
}

// TLSConf 为空时以明文 HTTP 提供服务
type TLSConf struct {
	Domains     []string `mapstructure:"domains"`
	Email       string   `mapstructure:"email"`
	StoragePath string   `mapstructure:"storage_path"`
	DNS         DNSConf  `mapstructure:"dns"`
}

type EmailConf struct {
	UserName string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Sender   string `mapstructure:"sender"`
	Receiver string `mapstructure:"receiver"`
	SmtpPort string `mapstructure:"smtp_port"`
	SmtpHost string `mapstructure:"smtp_host"`
}

type CORSConf struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type Conf struct {
	Server  ServerConf  `mapstructure:"server"`
	Storage StorageConf `mapstructure:"storage"`
	Admin   AdminConf   `mapstructure:"admin"`
	Session SessionConf `mapstructure:"session"`
	Cert    CertConf    `mapstructure:"cert"`
	Log     LogConf     `mapstructure:"log"`
	TLS     TLSConf     `mapstructure:"tls"`
	Email   EmailConf   `mapstructure:"email"`
	CORS    CORSConf    `mapstructure:"cors"`

	v *viper.Viper
}

const envPrefix = "CERTPORTAL"

// GetConfig 读取配置: .env -> nacos 或配置文件(可选) -> 环境变量
func GetConfig(path string) (*Conf, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println("failed to load .env:", err)
	}

	v := newViper()

	//设置了 NACOSDSN 时优先从 nacos 获取, 失败再读本地文件
	if dsn := os.Getenv(nacosDSNEnv); dsn != "" {
		content, err := getConfigFromNacos(dsn)
		if err == nil {
			if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
				return nil, fmt.Errorf("parse nacos config: %w", err)
			}
			return load(v)
		}
		log.Println("nacos config unavailable, falling back to local:", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			// 没有配置文件时只用环境变量
			log.Printf("config file %s not found, using environment only", path)
		}
	}

	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("storage.path", "./data/certs.db")
	v.SetDefault("storage.seed", true)
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("cert.id_prefix", "ALX")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tls.storage_path", "./data/certmagic")
	v.SetDefault("email.smtp_port", "465")

	// 兼容旧的环境变量名
	_ = v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("admin.password", envPrefix+"_ADMIN_PASSWORD", "ADMIN_PASSWORD")
	_ = v.BindEnv("session.secret", envPrefix+"_SESSION_SECRET", "SESSION_SECRET")
	// AutomaticEnv 不会覆盖 Unmarshal 里没有默认值的键
	for _, key := range []string{
		"tls.domains", "tls.email",
		"tls.dns.platform", "tls.dns.access_key_id", "tls.dns.access_key_secret", "tls.dns.token",
		"email.username", "email.password", "email.sender", "email.receiver", "email.smtp_host",
		"cors.allow_origins",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

func load(v *viper.Viper) (*Conf, error) {
	var conf Conf
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	conf.v = v

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate 不允许使用默认口令启动
func (c *Conf) Validate() error {
	if c.Admin.Password == "" {
		return fmt.Errorf("admin.password (ADMIN_PASSWORD): %w", ErrMissingSecret)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret (SESSION_SECRET): %w", ErrMissingSecret)
	}
	if len(c.Session.Secret) < 16 {
		return errors.New("session.secret must be at least 16 characters")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path cannot be empty")
	}
	if len(c.TLS.Domains) > 0 && c.TLS.DNS.Platform == "" {
		return errors.New("tls.dns.platform is required when tls.domains is set")
	}
	return nil
}

// Addr 监听地址
func (c *Conf) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}

// Watch 配置文件变化时回调, 目前只用来热更新日志级别
func (c *Conf) Watch(onChange func(level string)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := c.v.GetString("log.level")
		c.Log.Level = level
		onChange(level)
	})
	c.v.WatchConfig()
}

package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/muxi-Infra/certportal/config"
)

// Logger 带可热更新级别的 zap logger
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

func NewLogger(conf config.LogConf) (*Logger, error) {
	var zc zap.Config
	if strings.EqualFold(conf.Format, "console") {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}

	zc.OutputPaths = []string{"stdout"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.NewAtomicLevelAt(ParseLevel(conf.Level))
	// LOG_LEVEL 优先于配置文件
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level.SetLevel(ParseLevel(env))
	}
	zc.Level = level

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: l, level: level}, nil
}

// SetLevel 运行时修改日志级别
func (l *Logger) SetLevel(level string) {
	l.level.SetLevel(ParseLevel(level))
}

func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

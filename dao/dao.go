package dao

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrNotFound        = errors.New("certificate not found")
	ErrDuplicateCertID = errors.New("certificate id already exists")
)

// CertificateDao 负责 certificates 表的数据库操作
type CertificateDao struct {
	db       *gorm.DB
	idPrefix string
	now      func() time.Time
}

// NewCertificateDao 打开 sqlite 文件并迁移表结构
func NewCertificateDao(path, idPrefix string, logger *zap.Logger) (*CertificateDao, error) {
	// 自动创建父级目录
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory failed: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			zap.NewStdLog(logger.With(zap.String("component", "gorm"))),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// sqlite 只有一个写者
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移表结构
	if err := db.AutoMigrate(&Certificate{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if idPrefix == "" {
		idPrefix = "ALX"
	}
	return &CertificateDao{db: db, idPrefix: idPrefix, now: time.Now}, nil
}

// Close 关闭底层连接
func (dao *CertificateDao) Close() error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 健康检查
func (dao *CertificateDao) Ping(ctx context.Context) error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ListSummaries 按 id 倒序返回列表字段
func (dao *CertificateDao) ListSummaries(ctx context.Context) ([]Summary, error) {
	var list []Summary
	err := dao.db.WithContext(ctx).
		Model(&Certificate{}).
		Select("id", "cert_id", "name", "project", "issue_date").
		Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return list, nil
}

// GetByCertID 通过公开编号获取证书
func (dao *CertificateDao) GetByCertID(ctx context.Context, certID string) (*Certificate, error) {
	var cert Certificate
	err := dao.db.WithContext(ctx).Where("cert_id = ?", certID).First(&cert).Error
	switch {
	case err == nil:
		return &cert, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("get certificate %q: %w", certID, err)
	}
}

// GetFullList 管理后台使用的完整列表
func (dao *CertificateDao) GetFullList(ctx context.Context) ([]Certificate, error) {
	var list []Certificate
	if err := dao.db.WithContext(ctx).Order("id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list full certificates: %w", err)
	}
	return list, nil
}

// Create 插入证书, 未指定编号时按时间生成
func (dao *CertificateDao) Create(ctx context.Context, cert *Certificate) (uint, error) {
	cert.ID = 0
	if cert.CertID == "" {
		cert.CertID = dao.idPrefix + "-" + strconv.FormatInt(dao.now().UnixMilli(), 10)
	}

	err := dao.db.WithContext(ctx).Create(cert).Error
	switch {
	case err == nil:
		return cert.ID, nil
	case isDuplicate(err):
		return 0, fmt.Errorf("%w: %s", ErrDuplicateCertID, cert.CertID)
	default:
		return 0, fmt.Errorf("create certificate %q: %w", cert.CertID, err)
	}
}

// Delete 硬删除, 记录不存在时不报错
func (dao *CertificateDao) Delete(ctx context.Context, id uint) (bool, error) {
	res := dao.db.WithContext(ctx).Delete(&Certificate{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete certificate %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (dao *CertificateDao) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := dao.db.WithContext(ctx).Model(&Certificate{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count certificates: %w", err)
	}
	return n, nil
}

// isDuplicate TranslateError 未覆盖的驱动版本退回到匹配错误文本
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

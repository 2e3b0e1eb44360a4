package dao

import (
	"context"
)

// SeedCertificate 空表时插入的示例证书
var SeedCertificate = Certificate{
	CertID:    "ALX-2025-001",
	Name:      "Lucky KN",
	Project:   "CartoonBot Automation",
	StartDate: "01 Oct 2025",
	EndDate:   "31 Oct 2025",
	IssueDate: "31 Oct 2025",
	Signature: DefaultSignature,
	Notes:     "Seeded entry",
}

// Seed 表为空时写入示例数据, 返回是否写入.
// 多实例同时首次启动可能写入两次, 单实例部署下不处理.
func (dao *CertificateDao) Seed(ctx context.Context) (bool, error) {
	n, err := dao.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	cert := SeedCertificate
	if _, err := dao.Create(ctx, &cert); err != nil {
		return false, err
	}
	return true, nil
}

package dao

import (
	"time"
)

const DefaultSignature = "Authorized Signatory"

// Certificate 证书表, 只允许插入和删除
type Certificate struct {
	ID        uint   `gorm:"column:id;primaryKey;autoIncrement"`
	CertID    string `gorm:"column:cert_id;unique"` // 对外公开的证书编号
	Name      string `gorm:"column:name"`
	Project   string `gorm:"column:project"`
	StartDate string `gorm:"column:start_date"`
	EndDate   string `gorm:"column:end_date"`
	IssueDate string `gorm:"column:issue_date"`
	Signature string `gorm:"column:signature"`
	Notes     string `gorm:"column:notes"`
	CreatedAt time.Time
}

func (Certificate) TableName() string {
	return "certificates"
}

// SignatureLabel 未填写签名时使用默认文案
func (c *Certificate) SignatureLabel() string {
	if c.Signature == "" {
		return DefaultSignature
	}
	return c.Signature
}

// Summary 列表页使用的精简字段
type Summary struct {
	ID        uint
	CertID    string
	Name      string
	Project   string
	IssueDate string
}

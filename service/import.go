package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muxi-Infra/certportal/dao"
)

// ImportFile 批量导入文件格式:
//
//	certificates:
//	  - cert_id: ALX-2025-002
//	    name: ...
type ImportFile struct {
	Certificates []IssueInput `yaml:"certificates"`
}

// ImportResult 导入结果, 重复编号跳过不中断
type ImportResult struct {
	Created    []string
	Duplicates []string
}

func ParseImportFile(r io.Reader) (*ImportFile, error) {
	var f ImportFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	for i, c := range f.Certificates {
		// 同一毫秒内生成的默认编号会冲突, 导入时必须显式给出
		if c.CertID == "" || c.Name == "" {
			return nil, fmt.Errorf("parse import file: certificate #%d needs cert_id and name", i+1)
		}
	}
	return &f, nil
}

// Import 逐条签发, 存储错误时立即返回
func (s *CertificateService) Import(ctx context.Context, f *ImportFile) (*ImportResult, error) {
	res := &ImportResult{}
	for _, in := range f.Certificates {
		cert, err := s.Issue(ctx, in)
		switch {
		case err == nil:
			res.Created = append(res.Created, cert.CertID)
		case errors.Is(err, dao.ErrDuplicateCertID):
			res.Duplicates = append(res.Duplicates, in.CertID)
			s.logger.Warn("Skipping duplicate certificate", zap.String("cert_id", in.CertID))
		default:
			return res, err
		}
	}
	return res, nil
}

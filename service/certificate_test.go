package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/dao"
	"github.com/muxi-Infra/certportal/pkg/metrics"
	"github.com/muxi-Infra/certportal/pkg/pdf"
)

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) NotifyIssued(cert *dao.Certificate) error {
	f.sent = append(f.sent, cert.CertID)
	return f.err
}

func newTestService(t *testing.T, n Notifier) (*CertificateService, *metrics.Metrics) {
	t.Helper()
	d, err := dao.NewCertificateDao(filepath.Join(t.TempDir(), "certs.db"), "ALX", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	m := metrics.New()
	return NewCertificateService(d, pdf.NewRenderer(pdf.WithCompression(false)), n, m, zap.NewNop()), m
}

func TestIssue_NotifiesAndCounts(t *testing.T) {
	n := &fakeNotifier{}
	s, m := newTestService(t, n)
	ctx := context.Background()

	cert, err := s.Issue(ctx, IssueInput{CertID: "ALX-1", Name: "Grace Hopper", Project: "COBOL"})
	require.NoError(t, err)
	assert.NotZero(t, cert.ID)
	assert.Equal(t, []string{"ALX-1"}, n.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CertificatesTotal))

	_, err = s.Issue(ctx, IssueInput{CertID: "ALX-1", Name: "Duplicate"})
	assert.ErrorIs(t, err, dao.ErrDuplicateCertID)
	assert.Len(t, n.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CertificateOperationsTotal.WithLabelValues("create", "error")))
}

func TestIssue_NotifierFailureIgnored(t *testing.T) {
	s, _ := newTestService(t, &fakeNotifier{err: errors.New("smtp down")})

	cert, err := s.Issue(context.Background(), IssueInput{CertID: "ALX-2", Name: "Linus"})
	require.NoError(t, err)
	assert.Equal(t, "ALX-2", cert.CertID)
}

func TestVerify_LowDisclosure(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := s.Issue(ctx, IssueInput{
		CertID: "V-1", Name: "Alan Turing", Project: "Bombe", IssueDate: "1940",
		Signature: "Secret Signatory", Notes: "internal remark",
	})
	require.NoError(t, err)

	v, err := s.Verify(ctx, "V-1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, Verification{CertID: "V-1", Name: "Alan Turing", Project: "Bombe", IssueDate: "1940"}, *v)

	v, err = s.Verify(ctx, "V-404")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRevoke(t *testing.T) {
	s, m := newTestService(t, nil)
	ctx := context.Background()

	cert, err := s.Issue(ctx, IssueInput{CertID: "R-1", Name: "Ken"})
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, cert.ID+50))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CertificatesTotal))

	require.NoError(t, s.Revoke(ctx, cert.ID))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CertificatesTotal))

	_, err = s.Get(ctx, "R-1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestRenderPDF(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := s.Issue(ctx, IssueInput{CertID: "P-1", Name: "Barbara Liskov", Project: "CLU"})
	require.NoError(t, err)

	cert, data, err := s.RenderPDF(ctx, "P-1")
	require.NoError(t, err)
	assert.Equal(t, "P-1", cert.CertID)
	assert.Contains(t, string(data), "This certifies that Barbara Liskov")

	_, _, err = s.RenderPDF(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)
}

func TestParseImportFile_AndImport(t *testing.T) {
	s, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := s.Issue(ctx, IssueInput{CertID: "IMP-2", Name: "Existing"})
	require.NoError(t, err)

	f, err := ParseImportFile(strings.NewReader(`
certificates:
  - cert_id: IMP-1
    name: Margaret Hamilton
    project: Apollo Guidance
    start_date: 01 Jan 1965
    end_date: 16 Jul 1969
    issue_date: 20 Jul 1969
  - cert_id: IMP-2
    name: Duplicate Row
`))
	require.NoError(t, err)
	require.Len(t, f.Certificates, 2)
	assert.Equal(t, "Apollo Guidance", f.Certificates[0].Project)

	res, err := s.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"IMP-1"}, res.Created)
	assert.Equal(t, []string{"IMP-2"}, res.Duplicates)

	got, err := s.Get(ctx, "IMP-2")
	require.NoError(t, err)
	assert.Equal(t, "Existing", got.Name)
}

func TestParseImportFile_Invalid(t *testing.T) {
	_, err := ParseImportFile(strings.NewReader("certificates:\n  - name: No ID\n"))
	assert.Error(t, err)

	_, err = ParseImportFile(strings.NewReader("certificates:\n  - cert_id: X\n    nam: typo\n"))
	assert.Error(t, err)

	f, err := ParseImportFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Certificates)
}

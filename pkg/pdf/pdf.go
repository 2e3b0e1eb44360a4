package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/muxi-Infra/certportal/dao"
)

const (
	PageWidth  = 842.0
	PageHeight = 595.0
	fontFamily = "Times"
	marginLeft = 60.0
)

// ErrUnsupportedText 内置字体只能输出 cp1252 字符
var ErrUnsupportedText = errors.New("text contains characters outside the cp1252 font encoding")

// line 以左下角为原点的坐标, 与常见证书模板保持一致
type line struct {
	text string
	y    float64
	size float64
}

// Renderer 生成固定版式的单页证书.
// 字段过长时直接溢出页面, 不做换行.
type Renderer struct {
	compress bool
}

type Option func(*Renderer)

// WithCompression 关闭后页面内容以明文写入, 便于排查
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func layout(cert *dao.Certificate) []line {
	return []line{
		{text: "Certificate of Completion", y: 470, size: 28},
		{text: "This certifies that " + cert.Name, y: 420, size: 18},
		{text: "Project: " + cert.Project, y: 390, size: 14},
		{text: fmt.Sprintf("Duration: %s - %s", cert.StartDate, cert.EndDate), y: 360, size: 12},
		{text: "Issue Date: " + cert.IssueDate, y: 330, size: 12},
		{text: cert.SignatureLabel(), y: 240, size: 12},
	}
}

// Render 返回 PDF 字节
func (r *Renderer) Render(cert *dao.Certificate) ([]byte, error) {
	if cert == nil {
		return nil, dao.ErrNotFound
	}

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageHeight, Ht: PageWidth},
	})
	doc.SetCompression(r.compress)
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle("Certificate "+cert.CertID, true)
	doc.SetCreator("certportal", true)
	doc.AddPage()

	// 内置字体使用 cp1252 编码
	enc := charmap.Windows1252.NewEncoder()
	for _, l := range layout(cert) {
		text, err := enc.String(l.text)
		if err != nil {
			return nil, fmt.Errorf("render pdf for %s: %w: %q", cert.CertID, ErrUnsupportedText, l.text)
		}
		doc.SetFont(fontFamily, "", l.size)
		doc.Text(marginLeft, PageHeight-l.y, text)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf for %s: %w", cert.CertID, err)
	}
	return buf.Bytes(), nil
}

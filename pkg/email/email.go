package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/muxi-Infra/certportal/config"
	"github.com/muxi-Infra/certportal/dao"
)

// EmailClient SMTP 客户端, 465 端口走隐式 TLS
type EmailClient struct {
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	Sender   string // 发件人昵称
	Receiver []string

	send func(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error
}

func NewEmailClient(conf config.EmailConf) *EmailClient {
	var receivers []string
	for _, r := range strings.Split(conf.Receiver, ",") {
		if r = strings.TrimSpace(r); r != "" {
			receivers = append(receivers, r)
		}
	}
	return &EmailClient{
		SMTPHost: conf.SmtpHost,
		SMTPPort: conf.SmtpPort,
		SMTPUser: conf.UserName,
		SMTPPass: conf.Password,
		Sender:   conf.Sender,
		Receiver: receivers,
		send: func(e *email.Email, addr string, a smtp.Auth, t *tls.Config) error {
			return e.SendWithTLS(addr, a, t)
		},
	}
}

// Enabled 未配置 SMTP 或收件人时不发送
func (c *EmailClient) Enabled() bool {
	return c != nil && c.SMTPHost != "" && len(c.Receiver) > 0
}

// SendEmail 发送邮件
func (c *EmailClient) SendEmail(to []string, subject, text, html string) error {
	e := &email.Email{
		To:      to,
		From:    fmt.Sprintf("%s <%s>", c.Sender, c.SMTPUser),
		Subject: subject,
		Headers: textproto.MIMEHeader{},
		Text:    []byte(text),
	}
	if html != "" {
		e.HTML = []byte(html)
	}

	addr := c.SMTPHost + ":" + c.SMTPPort
	auth := smtp.PlainAuth("", c.SMTPUser, c.SMTPPass, c.SMTPHost)
	if err := c.send(e, addr, auth, &tls.Config{ServerName: c.SMTPHost}); err != nil {
		return fmt.Errorf("send email to %v: %w", to, err)
	}
	return nil
}

// NotifyIssued 新证书签发通知
func (c *EmailClient) NotifyIssued(cert *dao.Certificate) error {
	if !c.Enabled() {
		return nil
	}
	subject := fmt.Sprintf("Certificate %s issued", cert.CertID)
	return c.SendEmail(c.Receiver, subject, IssuedText(cert), "")
}

func IssuedText(cert *dao.Certificate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A certificate was issued.\n\n")
	fmt.Fprintf(&b, "Certificate ID: %s\n", cert.CertID)
	fmt.Fprintf(&b, "Recipient: %s\n", cert.Name)
	fmt.Fprintf(&b, "Project: %s\n", cert.Project)
	fmt.Fprintf(&b, "Duration: %s - %s\n", cert.StartDate, cert.EndDate)
	fmt.Fprintf(&b, "Issue Date: %s\n", cert.IssueDate)
	return b.String()
}

package mailer

import (
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// Config holds the SMTP settings. Injected at construction so no
// handler reads transport credentials from process state.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func New(cfg Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendCertificate mails the rendered PDF as an attachment.
func (m *Mailer) SendCertificate(to, name, category string, pdf []byte, fileName string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Your %s certificate is here!", category))
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Hi %s,</p><p>Congratulations on completing every lesson in <b>%s</b>! Your certificate is attached.</p>",
		name, category))
	msg.Attach(fileName, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(pdf)
		return err
	}))
	return m.dialer.DialAndSend(msg)
}

// SendPasswordReset mails a reset link to the user.
func (m *Mailer) SendPasswordReset(to, name, resetURL string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Reset your password")
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Hi %s,</p><p>Click <a href=%q>here</a> to reset your password. The link expires in one hour.</p>",
		name, resetURL))
	return m.dialer.DialAndSend(msg)
}

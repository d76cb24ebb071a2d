// Package notification sends the association's transactional mail. Every
// call site treats delivery as fire and forget: a failed send is logged
// and never rolls back the state change that triggered it.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"assoc-backend/internal/config"

	log "github.com/sirupsen/logrus"
)

type Sender interface {
	Send(to []string, subject, body string) error
}

var sender Sender = logSender{}

// SetSender replaces the active sender. Tests use it to capture outgoing
// mail instead of delivering it.
func SetSender(s Sender) {
	sender = s
}

// Init picks the SMTP sender when configured, the log-only sender otherwise.
func Init(cfg *config.Config) {
	if cfg.SMTPHost == "" {
		sender = logSender{}
		return
	}
	sender = &smtpSender{
		addr: cfg.SMTPHost + ":" + cfg.SMTPPort,
		auth: smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost),
		from: cfg.MailFrom,
	}
}

// Notify sends and swallows the error, logging it. The financial mutation
// that triggered the mail must already be committed.
func Notify(to []string, subject, body string) {
	if len(to) == 0 {
		return
	}
	if err := sender.Send(to, subject, body); err != nil {
		log.WithFields(log.Fields{
			"to":      strings.Join(to, ","),
			"subject": subject,
		}).Warnf("could not send mail: %v", err)
	}
}

type smtpSender struct {
	addr string
	auth smtp.Auth
	from string
}

func (s *smtpSender) Send(to []string, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.from, strings.Join(to, ", "), subject, body)
	return smtp.SendMail(s.addr, s.auth, s.from, to, []byte(msg))
}

// logSender is used in development and when SMTP is not configured.
type logSender struct{}

func (logSender) Send(to []string, subject, body string) error {
	log.WithFields(log.Fields{
		"to":      strings.Join(to, ","),
		"subject": subject,
	}).Info("mail (log-only mode)")
	return nil
}

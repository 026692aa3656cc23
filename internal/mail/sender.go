package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
)

// Sender отправляет одно HTML письмо.
type Sender interface {
	Send(ctx context.Context, from, to Address, subject, html string) error
}

// SMTPSender отправляет письма через SMTP сервер с PLAIN авторизацией.
// На порту 465 используется неявный TLS, на остальных STARTTLS.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	timeout  time.Duration
}

// NewSMTPSender создаёт отправителя. Учётные данные берутся только из конфигурации.
func NewSMTPSender(host, port, username, password string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		timeout:  15 * time.Second,
	}
}

// Send отправляет письмо.
func (s *SMTPSender) Send(ctx context.Context, from, to Address, subject, html string) error {
	addr := net.JoinHostPort(s.host, s.port)
	dialer := &net.Dialer{Timeout: s.timeout}

	var conn net.Conn
	var err error
	if s.port == "465" {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp: client: %w", err)
	}
	defer client.Close()

	if s.port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return fmt.Errorf("smtp: starttls: %w", err)
			}
		}
	}

	if s.username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}

	if err := client.Mail(string(from)); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	if err := client.Rcpt(string(to)); err != nil {
		return fmt.Errorf("smtp: rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := w.Write(buildMessage(from, to, subject, html)); err != nil {
		return fmt.Errorf("smtp: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: close data: %w", err)
	}

	return client.Quit()
}

// buildMessage собирает письмо с заголовками для HTML тела.
func buildMessage(from, to Address, subject, html string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(html)
	return []byte(sb.String())
}

// LogSender только пишет в лог адресата и тему. Тело не логируется:
// в нём одноразовые коды и коды доступа.
type LogSender struct{}

// NewLogSender создаёт LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send пишет запись в лог.
func (s *LogSender) Send(_ context.Context, from, to Address, subject, _ string) error {
	logger.Entry(logrus.Fields{
		"from":    from,
		"to":      to,
		"subject": subject,
	}).Info("mail: письмо не отправлено, SMTP не настроен")
	return nil
}

// SentMail: письмо, сохранённое MemorySender.
type SentMail struct {
	From    Address
	To      Address
	Subject string
	HTML    string
}

// MemorySender сохраняет письма в памяти. Используется в тестах.
type MemorySender struct {
	mu   sync.Mutex
	sent []SentMail
	Err  error
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, from, to Address, subject, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, SentMail{From: from, To: to, Subject: subject, HTML: html})
	return nil
}

// Sent возвращает копию отправленных писем.
func (s *MemorySender) Sent() []SentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMail, len(s.sent))
	copy(out, s.sent)
	return out
}

// Last возвращает последнее письмо или false, если писем не было.
func (s *MemorySender) Last() (SentMail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return SentMail{}, false
	}
	return s.sent[len(s.sent)-1], true
}

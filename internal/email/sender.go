package email

import (
	"net"
	"net/smtp"
	"strings"
	"time"
)

const defaultFrom = "no-reply@gestor-reservas.local"

// Message is one outbound notification mail. Reservation notifications are
// plain text; no HTML or attachments.
type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(msg Message) error
}

type Config struct {
	Host string
	Port string
	From string
}

// SMTPSender delivers through an unauthenticated relay. The default target
// is a local Mailpit instance.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(cfg Config) *SMTPSender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = defaultFrom
	}
	return &SMTPSender{
		addr: net.JoinHostPort(strings.TrimSpace(cfg.Host), strings.TrimSpace(cfg.Port)),
		from: from,
	}
}

func (s *SMTPSender) Send(msg Message) error {
	return smtp.SendMail(s.addr, nil, s.from, []string{msg.To}, s.render(msg))
}

func (s *SMTPSender) render(msg Message) []byte {
	var b strings.Builder
	writeHeader(&b, "From", s.from)
	writeHeader(&b, "To", msg.To)
	writeHeader(&b, "Subject", msg.Subject)
	writeHeader(&b, "Date", time.Now().UTC().Format(time.RFC1123Z))
	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/plain; charset=utf-8")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	// Header values must not smuggle in extra lines.
	b.WriteString(strings.NewReplacer("\r", " ", "\n", " ").Replace(value))
	b.WriteString("\r\n")
}

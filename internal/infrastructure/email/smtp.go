package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"DogDigest/internal/config"
	"DogDigest/internal/domain"
	"DogDigest/internal/infrastructure/render"
	"DogDigest/internal/ports"
)

// Message is a rendered e-mail ready for the wire.
type Message struct {
	From    mail.Address
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Sender hands raw RFC 5322 bytes to a mail server.
type Sender func(ctx context.Context, from string, to []string, raw []byte) error

// SMTPDelivery implements ports.Delivery over SMTP with STARTTLS.
type SMTPDelivery struct {
	cfg    config.SMTPConfig
	window time.Duration
	send   Sender
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.Delivery = (*SMTPDelivery)(nil)

// NewSMTPDelivery builds a delivery; window is the freshness window quoted in the subject.
func NewSMTPDelivery(cfg config.SMTPConfig, window time.Duration, logger *slog.Logger) *SMTPDelivery {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := &SMTPDelivery{cfg: cfg, window: window, logger: logger, now: time.Now}
	d.send = d.sendSMTP
	return d
}

// Deliver renders the digest and sends it to every recipient in one transaction.
func (d *SMTPDelivery) Deliver(ctx context.Context, digest domain.Digest) error {
	if len(d.cfg.Recipients) == 0 {
		return fmt.Errorf("smtp delivery: no recipients configured")
	}

	msg, err := d.compose(digest)
	if err != nil {
		return err
	}
	raw, err := msg.Bytes(d.now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	if err := d.send(ctx, msg.From.Address, msg.To, raw); err != nil {
		return &domain.TransportError{Op: "smtp send", Err: err}
	}
	d.logger.Info("digest e-mailed", "recipients", len(msg.To), "subject", msg.Subject)
	return nil
}

func (d *SMTPDelivery) compose(digest domain.Digest) (Message, error) {
	html, err := render.HTML(digest)
	if err != nil {
		return Message{}, err
	}
	text, err := render.Markdown(html)
	if err != nil {
		d.logger.Warn("plain-text part unavailable", "error", err)
		text = "Your e-mail client does not support HTML. Please open this digest in an HTML-capable client."
	}
	return Message{
		From:    mail.Address{Name: d.cfg.SenderName, Address: d.cfg.SenderEmail},
		To:      d.cfg.Recipients,
		Subject: render.Subject(digest, d.window),
		Text:    text,
		HTML:    html,
	}, nil
}

// Bytes encodes the message as multipart/alternative with quoted-printable parts.
func (m Message) Bytes(date time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", m.Text},
		{"text/html; charset=utf-8", m.HTML},
	}
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", p.contentType)
		header.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mw.CreatePart(header)
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", m.From.String())
	fmt.Fprintf(&out, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", date.Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func (d *SMTPDelivery) sendSMTP(ctx context.Context, from string, to []string, raw []byte) error {
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	timeout := d.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: d.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if d.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return client.Quit()
}

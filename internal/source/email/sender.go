package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/source"
)

// Sender delivers plain-text replies over SMTP.
type Sender struct {
	cfg SMTPConfig
	log logger.Logger
	now func() time.Time
}

// NewSender creates a Sender for the given relay settings.
func NewSender(cfg SMTPConfig, log logger.Logger) *Sender {
	if log == nil {
		log = logger.Nop()
	}
	return &Sender{
		cfg: cfg,
		log: log.With("component", "smtp", "addr", cfg.Addr()),
		now: time.Now,
	}
}

// SendReply sends msg.Draft to the original sender with a "Re: " subject.
// It does not touch the message's Replied flag.
func (s *Sender) SendReply(ctx context.Context, msg model.Message) error {
	if !msg.HasDraft() {
		return model.ErrNoDraft
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	to := msg.SenderAddress()
	data, err := composeReply(s.cfg.sender(), msg, s.now())
	if err != nil {
		return fmt.Errorf("composing reply: %w", err)
	}

	client, err := s.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.Username != "" {
		auth := sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
		if err := client.Auth(auth); err != nil {
			return &source.AuthError{
				Kind:    source.KindSMTP,
				Message: fmt.Sprintf("authentication failed for %s: %v", s.cfg.Username, err),
				Err:     err,
			}
		}
	}

	if err := client.SendMail(s.cfg.sender(), []string{to}, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("sending reply to %s: %w", to, err)
	}
	if err := client.Quit(); err != nil {
		s.log.Debug("SMTP QUIT failed after delivery", "error", err)
	}

	s.log.Info("reply sent", "to", to, "subject", msg.ReplySubject())
	return nil
}

// dial connects to the relay. Port 465 uses implicit TLS; other ports
// upgrade with STARTTLS when the server offers it.
func (s *Sender) dial() (*smtp.Client, error) {
	addr := s.cfg.Addr()
	tlsConfig := &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}

	if s.cfg.Port == "465" {
		client, err := smtp.DialTLS(addr, tlsConfig)
		if err != nil {
			return nil, &source.ConnectError{Kind: source.KindSMTP, Addr: addr, Err: err}
		}
		return client, nil
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, &source.ConnectError{Kind: source.KindSMTP, Addr: addr, Err: err}
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	return client, nil
}

// composeReply renders the RFC 5322 reply for msg.
func composeReply(from string, msg model.Message, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetSubject(msg.ReplySubject())
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.SenderAddress()}})
	if msg.MessageID != "" {
		h.SetMsgIDList("In-Reply-To", []string{msg.MessageID})
		h.SetMsgIDList("References", []string{msg.MessageID})
	}
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generating Message-ID: %w", err)
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(msg.Draft)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

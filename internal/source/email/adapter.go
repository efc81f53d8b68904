package email

import (
	"context"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
)

// Options carries process-level mail settings that are not part of the
// persisted Settings.
type Options struct {
	Mailbox            string
	Window             int
	InsecureSkipVerify bool
}

// Adapter pairs a Reader and a Sender built from one Settings value.
// The mailbox user doubles as the SMTP login and reply sender.
type Adapter struct {
	reader *Reader
	sender *Sender
}

// NewAdapter creates an email adapter for the given settings.
func NewAdapter(s model.Settings, opts Options, log logger.Logger) *Adapter {
	imapCfg := IMAPConfig{
		Host:               s.EmailHost,
		Port:               s.EmailPort,
		Username:           s.EmailUser,
		Password:           s.EmailPassword,
		Mailbox:            opts.Mailbox,
		Window:             opts.Window,
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}
	smtpCfg := SMTPConfig{
		Host:               s.SMTPHost,
		Port:               s.SMTPPort,
		Username:           s.EmailUser,
		Password:           s.EmailPassword,
		From:               s.EmailUser,
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}

	return &Adapter{
		reader: NewReader(imapCfg, log),
		sender: NewSender(smtpCfg, log),
	}
}

// FetchRecent returns the newest messages in the mailbox.
func (a *Adapter) FetchRecent(ctx context.Context) ([]model.Message, error) {
	return a.reader.FetchRecent(ctx)
}

// MarkAnswered flags the message with the given UID as answered.
func (a *Adapter) MarkAnswered(ctx context.Context, uid uint32) error {
	return a.reader.MarkAnswered(ctx, uid)
}

// SendReply delivers msg.Draft to the message's sender.
func (a *Adapter) SendReply(ctx context.Context, msg model.Message) error {
	return a.sender.SendReply(ctx, msg)
}

// ValidateConnection checks that the mailbox accepts the credentials.
func (a *Adapter) ValidateConnection(ctx context.Context) (string, error) {
	return a.reader.ValidateConnection(ctx)
}

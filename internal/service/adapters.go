package service

import (
	"github.com/nhle/mail-assistant/internal/ai"
	"github.com/nhle/mail-assistant/internal/config"
	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/source/email"
)

// NewAdapterFactory returns a factory that connects to the mailbox over
// IMAP and SMTP and to Claude for drafts.
func NewAdapterFactory(cfg *config.Config, log logger.Logger) AdapterFactory {
	opts := email.Options{
		Mailbox:            cfg.Mail.Mailbox,
		Window:             cfg.Mail.FetchWindow,
		InsecureSkipVerify: cfg.Mail.SkipTLSVerify,
	}

	return func(s model.Settings) Adapters {
		mail := email.NewAdapter(s, opts, log)
		drafter := ai.New(ai.Config{
			APIKey:    s.AnthropicKey,
			Model:     cfg.AI.Model,
			MaxTokens: cfg.AI.MaxDraftTokens,
			BaseURL:   cfg.AI.BaseURL,
		}, log)

		return Adapters{
			Reader:  mail,
			Drafter: drafter,
			Sender:  mail,
		}
	}
}

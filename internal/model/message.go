package model

import (
	"errors"
	"strings"
	"time"
)

// Placeholders used when a fetched message lacks the field.
const (
	UnknownSender    = "Unknown"
	DefaultSubject   = "No Subject"
	EmptyBodyContent = "No content"
)

// Message is a mailbox message as seen by the assistant. Its ID is only
// meaningful within the directory snapshot it was fetched into.
type Message struct {
	// ID is the IMAP sequence number at fetch time, rendered as a string.
	ID string `json:"id"`

	// UID is the IMAP UID, used to flag the message after a reply.
	UID uint32 `json:"uid,omitempty"`

	// MessageID is the Message-ID header, without angle brackets.
	MessageID string `json:"messageId,omitempty"`

	// Sender is the From header as received (display name and address).
	Sender string `json:"sender"`

	// Subject is the decoded subject line.
	Subject string `json:"subject"`

	// Body is the plain-text body, or the HTML body when no plain text
	// part exists.
	Body string `json:"body"`

	// ReceivedAt is the Date header, or the fetch time when absent.
	ReceivedAt time.Time `json:"receivedAt"`

	// Draft is the generated reply text. Empty until a draft is requested.
	Draft string `json:"draft,omitempty"`

	// Replied is set once a reply has been delivered.
	Replied bool `json:"replied"`
}

// ErrNoDraft is returned when a reply is requested for a message that has
// no draft yet.
var ErrNoDraft = errors.New("no draft available")

// HasDraft reports whether the message carries a non-blank draft.
func (m Message) HasDraft() bool {
	return strings.TrimSpace(m.Draft) != ""
}

// SenderAddress returns the address inside the first <...> token of the
// sender, or the raw sender when it has no such token.
func (m Message) SenderAddress() string {
	start := strings.IndexByte(m.Sender, '<')
	if start >= 0 {
		end := strings.IndexByte(m.Sender[start+1:], '>')
		if end > 0 {
			return strings.TrimSpace(m.Sender[start+1 : start+1+end])
		}
	}
	return strings.TrimSpace(m.Sender)
}

// ReplySubject returns the subject for a reply, adding a "Re: " prefix
// unless one is already present.
func (m Message) ReplySubject() string {
	if strings.HasPrefix(strings.ToLower(m.Subject), "re:") {
		return m.Subject
	}
	return "Re: " + m.Subject
}

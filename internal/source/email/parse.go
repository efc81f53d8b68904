package email

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/source"
)

// fetchRange returns the sequence range covering the last window
// messages of a mailbox holding total messages. ok is false for an
// empty mailbox.
func fetchRange(total uint32, window int) (start, stop uint32, ok bool) {
	if total == 0 {
		return 0, 0, false
	}
	if window < 1 {
		window = DefaultWindow
	}

	start = 1
	if total > uint32(window) {
		start = total - uint32(window) + 1
	}
	return start, total, true
}

// buildMessages parses every raw message, dropping and logging the ones
// that fail, and returns the rest newest first.
func buildMessages(
	raws []rawMessage, now time.Time, log logger.Logger,
) []model.Message {
	msgs := make([]model.Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := parseMessage(raw, now)
		if err != nil {
			log.Warn("dropping unparsable message", "seq", raw.SeqNum, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}

	sortNewestFirst(msgs)
	return msgs
}

// sortNewestFirst orders messages by ReceivedAt descending. Messages with
// equal timestamps keep their mailbox order.
func sortNewestFirst(msgs []model.Message) {
	slices.SortStableFunc(msgs, func(a, b model.Message) int {
		return b.ReceivedAt.Compare(a.ReceivedAt)
	})
}

// parseMessage decodes an RFC 5322 message into a model.Message.
func parseMessage(raw rawMessage, now time.Time) (model.Message, error) {
	if len(raw.Body) == 0 {
		return model.Message{}, &source.ParseError{
			SeqNum: raw.SeqNum, Err: errors.New("empty message body"),
		}
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw.Body))
	if err != nil && !message.IsUnknownCharset(err) {
		return model.Message{}, &source.ParseError{SeqNum: raw.SeqNum, Err: err}
	}
	defer mr.Close()

	msg := model.Message{
		ID:         strconv.FormatUint(uint64(raw.SeqNum), 10),
		UID:        raw.UID,
		Sender:     formatSender(mr.Header),
		Subject:    model.DefaultSubject,
		ReceivedAt: now,
		Replied:    hasFlag(raw.Flags, imap.FlagAnswered),
	}

	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		msg.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		msg.ReceivedAt = date
	}
	if id, err := mr.Header.MessageID(); err == nil {
		msg.MessageID = id
	}

	textBody, htmlBody, err := readBodies(mr)
	if err != nil {
		return model.Message{}, &source.ParseError{SeqNum: raw.SeqNum, Err: err}
	}

	switch {
	case textBody != "":
		msg.Body = textBody
	case htmlBody != "":
		msg.Body = htmlBody
	default:
		msg.Body = model.EmptyBodyContent
	}

	return msg, nil
}

// readBodies returns the first inline text/plain and text/html parts.
// An error is returned only when no part at all could be read.
func readBodies(mr *mail.Reader) (textBody, htmlBody string, err error) {
	readAny := false
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !readAny {
				return "", "", err
			}
			break
		}
		readAny = true

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		if contentType == "" {
			contentType = "text/plain"
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody, nil
}

// formatSender renders the From header as "Name <addr>" entries, falling
// back to the decoded raw header when it is not a valid address list.
func formatSender(h mail.Header) string {
	addrs, err := h.AddressList("From")
	if err == nil && len(addrs) > 0 {
		parts := make([]string, 0, len(addrs))
		for _, a := range addrs {
			if a.Name != "" {
				parts = append(parts, a.Name+" <"+a.Address+">")
			} else {
				parts = append(parts, a.Address)
			}
		}
		return strings.Join(parts, ", ")
	}

	if raw, err := h.Text("From"); err == nil && strings.TrimSpace(raw) != "" {
		return strings.TrimSpace(raw)
	}
	return model.UnknownSender
}

func hasFlag(flags []imap.Flag, want imap.Flag) bool {
	for _, f := range flags {
		if strings.EqualFold(string(f), string(want)) {
			return true
		}
	}
	return false
}

package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/source"
)

// Reader lists recent messages from an IMAP mailbox. Every call opens its
// own connection and logs out when done.
type Reader struct {
	cfg IMAPConfig
	log logger.Logger
	now func() time.Time
}

// NewReader creates a Reader for the given mailbox settings.
func NewReader(cfg IMAPConfig, log logger.Logger) *Reader {
	if cfg.Mailbox == "" {
		cfg.Mailbox = DefaultMailbox
	}
	if cfg.Window < 1 {
		cfg.Window = DefaultWindow
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Reader{
		cfg: cfg,
		log: log.With("component", "imap", "addr", cfg.Addr()),
		now: time.Now,
	}
}

// Connect establishes a connection to the IMAP server and authenticates.
// Port 143 negotiates STARTTLS; every other port uses implicit TLS. The
// caller is responsible for calling Logout on the returned client.
func (r *Reader) Connect(ctx context.Context) (*imapclient.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := r.cfg.Addr()
	opts := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         r.cfg.Host,
			InsecureSkipVerify: r.cfg.InsecureSkipVerify,
		},
	}

	var client *imapclient.Client
	var err error
	if r.cfg.Port == "143" {
		client, err = imapclient.DialStartTLS(addr, opts)
	} else {
		client, err = imapclient.DialTLS(addr, opts)
	}
	if err != nil {
		return nil, &source.ConnectError{Kind: source.KindIMAP, Addr: addr, Err: err}
	}

	if err := client.Login(r.cfg.Username, r.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, &source.AuthError{
			Kind:    source.KindIMAP,
			Message: fmt.Sprintf("authentication failed for %s: %v", r.cfg.Username, err),
			Err:     err,
		}
	}

	return client, nil
}

// FetchRecent selects the mailbox read-only and returns its most recent
// messages, newest first. Messages that fail to parse are logged and
// dropped. An empty mailbox yields an empty slice.
func (r *Reader) FetchRecent(ctx context.Context) ([]model.Message, error) {
	client, err := r.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	selected, err := client.Select(r.cfg.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %s: %w", r.cfg.Mailbox, err)
	}

	start, stop, ok := fetchRange(selected.NumMessages, r.cfg.Window)
	if !ok {
		r.log.Debug("mailbox is empty", "mailbox", r.cfg.Mailbox)
		return []model.Message{}, nil
	}

	raws, err := r.fetchRaw(ctx, client, start, stop)
	if err != nil {
		return nil, err
	}

	msgs := buildMessages(raws, r.now(), r.log)
	r.log.Info("fetched messages",
		"mailbox", r.cfg.Mailbox,
		"total", selected.NumMessages,
		"fetched", len(raws),
		"parsed", len(msgs),
	)

	return msgs, nil
}

// fetchRaw retrieves flags, UID, and the full body of every message in
// the sequence range start:stop without setting \Seen.
func (r *Reader) fetchRaw(
	ctx context.Context, client *imapclient.Client, start, stop uint32,
) ([]rawMessage, error) {
	var seqSet imap.SeqSet
	seqSet.AddRange(start, stop)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(seqSet, fetchOpts)
	defer fetchCmd.Close()

	var raws []rawMessage
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			r.log.Warn("dropping message that failed to download",
				"seq", msg.SeqNum, "error", err)
			continue
		}

		raws = append(raws, rawMessage{
			SeqNum: buf.SeqNum,
			UID:    uint32(buf.UID),
			Flags:  buf.Flags,
			Body:   buf.FindBodySection(bodySection),
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching messages %d:%d: %w", start, stop, err)
	}

	return raws, nil
}

// MarkAnswered adds the \Answered flag to the message with the given UID.
// It opens a separate read-write session.
func (r *Reader) MarkAnswered(ctx context.Context, uid uint32) error {
	if uid == 0 {
		return fmt.Errorf("marking answered: message has no UID")
	}

	client, err := r.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(r.cfg.Mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", r.cfg.Mailbox, err)
	}

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagAnswered},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging UID %d answered: %w", uid, err)
	}

	return nil
}

// ValidateConnection logs in and out again, returning the authenticated
// user name.
func (r *Reader) ValidateConnection(ctx context.Context) (string, error) {
	client, err := r.Connect(ctx)
	if err != nil {
		return "", err
	}
	if err := client.Logout().Wait(); err != nil {
		r.log.Debug("IMAP LOGOUT failed after validation", "error", err)
	}
	return r.cfg.Username, nil
}

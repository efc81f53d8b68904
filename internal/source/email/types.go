package email

import (
	"net"

	"github.com/emersion/go-imap/v2"
)

// DefaultWindow is how many of the most recent messages a fetch returns.
const DefaultWindow = 20

// DefaultMailbox is the folder the reader selects.
const DefaultMailbox = "INBOX"

// IMAPConfig holds the settings for reading the mailbox.
type IMAPConfig struct {
	Host     string
	Port     string
	Username string
	Password string

	// Mailbox is the folder to read; DefaultMailbox when empty.
	Mailbox string

	// Window is the number of most recent messages to fetch;
	// DefaultWindow when zero.
	Window int

	InsecureSkipVerify bool
}

// Addr returns host:port.
func (c IMAPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// SMTPConfig holds the SMTP server settings for sending replies.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string

	// From is the envelope and header sender; Username when empty.
	From string

	InsecureSkipVerify bool
}

// Addr returns host:port.
func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c SMTPConfig) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.Username
}

// rawMessage is one FETCH result before MIME parsing.
type rawMessage struct {
	SeqNum uint32
	UID    uint32
	Flags  []imap.Flag
	Body   []byte
}

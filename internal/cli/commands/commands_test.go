package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/service"
)

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"serve", "setup", "poll", "status"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRenderPollResult(t *testing.T) {
	out := renderPollResult(service.PollResult{
		NewEmails:   3,
		AutoReplied: 1,
		Outcomes: []service.Outcome{
			{EmailID: "1", Subject: "Thanks", Status: service.StatusSent},
			{EmailID: "2", Subject: "Contract", Status: service.StatusDrafted},
			{EmailID: "3", Subject: "Invoice", Status: service.StatusFailed, Error: "smtp down"},
		},
	})

	for _, want := range []string{"New emails", "Auto-replied", "Failed", "#1 Thanks", "#2 Contract", "smtp down"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderPollResult_NoFailures(t *testing.T) {
	out := renderPollResult(service.PollResult{NewEmails: 0})
	assert.NotContains(t, out, "Failed")
}

func TestRenderStatus(t *testing.T) {
	out := renderStatus(".env.local", false, model.Settings{})
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, ".env.local")
	assert.NotContains(t, out, "IMAP")

	out = renderStatus("/tmp/s.env", true, model.Settings{
		EmailHost:        "imap.example.com",
		EmailPort:        "993",
		SMTPHost:         "smtp.example.com",
		SMTPPort:         "587",
		EmailUser:        "me@example.com",
		AutoReplyEnabled: true,
	})
	for _, want := range []string{"imap.example.com:993", "smtp.example.com:587", "me@example.com"} {
		assert.Contains(t, out, want)
	}
}

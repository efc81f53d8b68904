package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/app"
	"github.com/nhle/mail-assistant/internal/service"
	"github.com/nhle/mail-assistant/internal/theme"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Fetch the inbox once and auto-reply to basic messages",
	Long: `Run a single poll-once pass: fetch the newest messages and, when
auto-reply is enabled, draft and send replies to messages Claude
classifies as basic. Prints one line per processed message.`,
	RunE: runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Settings.Configured() {
		return fmt.Errorf("no settings at %s; run 'mailassistant setup' first", a.Settings.Path())
	}

	result, err := a.Service.PollOnce(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), renderPollResult(result))
	return nil
}

func renderPollResult(r service.PollResult) string {
	var b strings.Builder

	b.WriteString(theme.HeaderStyle.Render("Poll complete"))
	b.WriteString("\n")
	b.WriteString(theme.KeyValue("New emails", fmt.Sprint(r.NewEmails)))
	b.WriteString("\n")
	b.WriteString(theme.KeyValue("Auto-replied", fmt.Sprint(r.AutoReplied)))
	b.WriteString("\n")
	if n := r.Failed(); n > 0 {
		b.WriteString(theme.KeyValue("Failed", theme.ErrorStyle.Render(fmt.Sprint(n))))
		b.WriteString("\n")
	}

	for _, o := range r.Outcomes {
		status := theme.OutcomeStyle(string(o.Status)).Render(string(o.Status))
		line := fmt.Sprintf("%s #%s %s", status, o.EmailID, o.Subject)
		if o.Error != "" {
			line += "  " + theme.ErrorStyle.Render(o.Error)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/app"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the assistant is configured",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	settings, err := app.OpenSettings(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderStatus(settings.Path(), settings.Configured(), settings.Current()))
	return nil
}

func renderStatus(path string, configured bool, s model.Settings) string {
	state := theme.ErrorStyle.Render("not configured")
	if configured {
		state = theme.SuccessStyle.Render("configured")
	}

	autoReply := "off"
	if s.AutoReplyEnabled {
		autoReply = "on"
	}

	lines := []string{
		theme.KeyValue("Status", state),
		theme.KeyValue("Settings", path),
	}
	if configured {
		lines = append(lines,
			theme.KeyValue("IMAP", s.EmailHost+":"+s.EmailPort),
			theme.KeyValue("SMTP", s.SMTPHost+":"+s.SMTPPort),
			theme.KeyValue("User", s.EmailUser),
			theme.KeyValue("Auto-reply", autoReply),
		)
	}

	return theme.PanelStyle.Render(strings.Join(lines, "\n"))
}

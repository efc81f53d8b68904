package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/app"
	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/source/email"
	"github.com/nhle/mail-assistant/internal/theme"
	"github.com/nhle/mail-assistant/internal/ui/setup"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure mailbox and API credentials interactively",
	Long: `Walk through the mailbox, SMTP, and Anthropic settings, check the
IMAP login, and write the settings file.`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	settings, err := app.OpenSettings(cfg)
	if err != nil {
		return err
	}

	opts := email.Options{
		Mailbox:            cfg.Mail.Mailbox,
		Window:             cfg.Mail.FetchWindow,
		InsecureSkipVerify: cfg.Mail.SkipTLSVerify,
	}
	validate := func(ctx context.Context, s model.Settings) (string, error) {
		return email.NewAdapter(s, opts, logger.Nop()).ValidateConnection(ctx)
	}

	saved, err := setup.Run(settings.Current(), validate, settings.Save)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !saved {
		fmt.Fprintln(out, theme.HelpStyle.Render("Setup cancelled; nothing was written."))
		return nil
	}
	fmt.Fprintln(out, theme.SuccessStyle.Render("Settings saved to "+settings.Path()))
	return nil
}

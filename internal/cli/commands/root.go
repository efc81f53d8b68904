// Package commands implements the mailassistant command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/nhle/mail-assistant/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "mailassistant",
	Short: "Draft and send email replies with Claude",
	Long: `Mail Assistant reads the newest messages from an IMAP inbox, drafts
replies with Claude, and sends them over SMTP. Simple messages can be
answered automatically when auto-reply is enabled.`,
	SilenceUsage: true,
}

var (
	settingsFile string
	logLevel     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "Settings file (overrides MAILASSISTANT_SETTINGS_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(statusCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the process configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if settingsFile != "" {
		cfg.Storage.SettingsFile = settingsFile
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

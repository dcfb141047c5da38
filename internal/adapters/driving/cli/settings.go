package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	configfile "github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/config/file"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage configuration",
	Long: `View and edit the nightidea configuration file.

Secrets can also be supplied through environment variables
(GITHUB_TOKEN, OPENAI_API_KEY, LINE_CHANNEL_ACCESS_TOKEN,
LINE_CHANNEL_SECRET), which override stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by dotted key, e.g.:

  nightidea settings set github.owner masapokki
  nightidea settings set github.repo line-night-idea-enhancer
  nightidea settings set store.local true`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key>",
	Short: "Set a secret value without echoing it",
	Long: `Prompt for a secret value and store it, e.g.:

  nightidea settings set-secret github.token
  nightidea settings set-secret openai.api_key
  nightidea settings set-secret line.channel_token
  nightidea settings set-secret line.channel_secret`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSetSecret,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsSetSecretCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	cmd.Println("GitHub:")
	cmd.Printf("  owner: %s\n", orUnset(cfg.GitHub.Owner))
	cmd.Printf("  repo:  %s\n", orUnset(cfg.GitHub.Repo))
	cmd.Printf("  path:  %s\n", orUnset(cfg.GitHub.Path))
	cmd.Printf("  token: %s\n", masked(cfg.GitHub.Token))
	cmd.Println("OpenAI:")
	cmd.Printf("  model:   %s\n", orUnset(cfg.OpenAI.Model))
	cmd.Printf("  api_key: %s\n", masked(cfg.OpenAI.APIKey))
	cmd.Println("LINE:")
	cmd.Printf("  channel_token:  %s\n", masked(cfg.LINE.ChannelToken))
	cmd.Printf("  channel_secret: %s\n", masked(cfg.LINE.ChannelSecret))
	cmd.Println("Render:")
	cmd.Printf("  url: %s\n", orUnset(cfg.Render.URL))
	cmd.Println("Store:")
	cmd.Printf("  local: %t\n", cfg.Store.Local)
	cmd.Printf("  file:  %s\n", orUnset(cfg.Store.File))
	return nil
}

func runSettingsSet(_ *cobra.Command, args []string) error {
	return persistConfigValue(args[0], args[1])
}

func runSettingsSetSecret(cmd *cobra.Command, args []string) error {
	key := args[0]
	switch key {
	case "github.token", "openai.api_key", "line.channel_token", "line.channel_secret":
	default:
		return fmt.Errorf("unknown secret key: %s", key)
	}

	cmd.Printf("Enter value for %s: ", key)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return fmt.Errorf("read secret: %w", err)
	}

	return persistConfigValue(key, string(value))
}

// persistConfigValue writes one key into the config file and mirrors it in
// the running configuration. The file is re-read without environment
// overrides first, so a secret injected via the environment is never
// silently persisted alongside the edited key.
func persistConfigValue(key, value string) error {
	fileCfg, err := configfile.LoadFile(cfgPath)
	if err != nil {
		return err
	}
	if err := setConfigValue(fileCfg, key, value); err != nil {
		return err
	}
	if err := configfile.Save(cfgPath, fileCfg); err != nil {
		return err
	}
	return setConfigValue(cfg, key, value)
}

func setConfigValue(c *configfile.Config, key, value string) error {
	switch key {
	case "github.token":
		c.GitHub.Token = value
	case "github.owner":
		c.GitHub.Owner = value
	case "github.repo":
		c.GitHub.Repo = value
	case "github.path":
		c.GitHub.Path = value
	case "openai.api_key":
		c.OpenAI.APIKey = value
	case "openai.model":
		c.OpenAI.Model = value
	case "openai.base_url":
		c.OpenAI.BaseURL = value
	case "line.channel_token":
		c.LINE.ChannelToken = value
	case "line.channel_secret":
		c.LINE.ChannelSecret = value
	case "render.url":
		c.Render.URL = value
	case "store.file":
		c.Store.File = value
	case "store.local":
		local, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("store.local must be true or false: %w", err)
		}
		c.Store.Local = local
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func orUnset(v string) string {
	if v == "" {
		return "(unset)"
	}
	return v
}

func masked(v string) string {
	if v == "" {
		return "(unset)"
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "****" + v[len(v)-4:]
}

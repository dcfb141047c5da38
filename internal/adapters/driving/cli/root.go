// Package cli implements the nightidea command-line interface. Each
// pipeline stage is a subcommand so schedulers can run enrichment and
// delivery as separate jobs against the shared document store.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/config/file"
	filestore "github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/docstore/file"
	githubstore "github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/docstore/github"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
	"github.com/masapokki/line-night-idea-enhancer/internal/logger"
)

var (
	cfg     *configfile.Config
	cfgPath string

	flagVerbose bool
	flagConfig  string
	flagLocal   bool
)

var rootCmd = &cobra.Command{
	Use:   "nightidea",
	Short: "Overnight idea enhancement pipeline",
	Long: `nightidea collects ideas over LINE, enhances them with an LLM while
you sleep, and delivers the results as morning push messages.

The pipeline state lives in a single JSON document, stored either in a
GitHub repository or a local file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"config file (default ~/.nightidea/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&flagLocal, "local", false,
		"use the local file store instead of GitHub")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	path := flagConfig
	if path == "" {
		var err error
		path, err = configfile.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}

	loaded, err := configfile.Load(path)
	if err != nil {
		return err
	}

	cfg = loaded
	cfgPath = path
	logger.Debug("config loaded from %s", path)
	return nil
}

// newDocumentStore builds the document store selected by configuration.
// commitMessage labels saves in the GitHub store; the file store ignores it.
func newDocumentStore(commitMessage string) (driven.DocumentStore, error) {
	if flagLocal || cfg.Store.Local {
		path := cfg.Store.File
		if path == "" {
			path = filestore.DefaultPath
		}
		logger.Debug("using local document store at %s", path)
		return filestore.New(path), nil
	}

	if cfg.GitHub.Token == "" || cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		return nil, fmt.Errorf(
			"github store not configured: set github.token, github.owner and github.repo, or pass --local")
	}

	store, err := githubstore.New(context.Background(), githubstore.Config{
		Token:         cfg.GitHub.Token,
		Owner:         cfg.GitHub.Owner,
		Repo:          cfg.GitHub.Repo,
		Path:          cfg.GitHub.Path,
		CommitMessage: commitMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("github store: %w", err)
	}
	return store, nil
}

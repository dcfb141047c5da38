package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/messaging/line"
	"github.com/masapokki/line-night-idea-enhancer/internal/adapters/driving/webhook"
)

// serveCommitMessage labels document commits written by the webhook server
// when it stores incoming ideas.
const serveCommitMessage = "Add new idea"

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LINE webhook server",
	Long: `Starts the webhook server that receives LINE messages, stores them
as unprocessed ideas, and answers detail requests with the stored
thinking process. Runs until interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", ":3000", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cfg.LINE.ChannelSecret == "" {
		return errors.New("line.channel_secret is required to verify webhook signatures")
	}

	store, err := newDocumentStore(serveCommitMessage)
	if err != nil {
		return err
	}

	messenger, err := line.New(line.Config{ChannelToken: cfg.LINE.ChannelToken})
	if err != nil {
		return fmt.Errorf("line client: %w", err)
	}

	server := webhook.New(webhook.Config{
		Addr:          flagServeAddr,
		ChannelSecret: cfg.LINE.ChannelSecret,
	}, store, messenger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}

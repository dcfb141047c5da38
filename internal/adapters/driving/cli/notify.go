package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/messaging/line"
	"github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/render/httprender"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/services"
	"github.com/masapokki/line-night-idea-enhancer/internal/logger"
)

// notifyCommitMessage labels the document commit written by a delivery run.
const notifyCommitMessage = "Update database with sent status"

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Deliver enhanced ideas as push messages",
	Long: `Runs the morning delivery stage: loads the document, pushes the
message sequence for every unsent result to its recipient, dispatches
mind-map images where available, and saves the updated flags in a single
commit.

Results whose delivery fails keep sent=false and are retried on the next
run.`,
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, _ []string) error {
	store, err := newDocumentStore(notifyCommitMessage)
	if err != nil {
		return err
	}

	messenger, err := line.New(line.Config{ChannelToken: cfg.LINE.ChannelToken})
	if err != nil {
		return fmt.Errorf("line client: %w", err)
	}

	var renderer driven.MindmapRenderer
	if cfg.Render.URL != "" {
		renderer, err = httprender.New(httprender.Config{BaseURL: cfg.Render.URL})
		if err != nil {
			return fmt.Errorf("render client: %w", err)
		}
	} else {
		logger.Debug("render service not configured, image delivery disabled")
	}

	delivery := services.NewDelivery(store, messenger, renderer)

	report, err := delivery.Run(context.Background())
	if err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	cmd.Printf("Sent %d results.\n", report.Sent)
	for _, failure := range report.Failures {
		cmd.Printf("  %s: %s\n", failure.ID, failure.Reason)
	}
	return nil
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/llm/openai"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/services"
)

// processCommitMessage labels the document commit written by an enrichment
// run.
const processCommitMessage = "Update database with processed ideas"

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Enhance unprocessed ideas",
	Long: `Runs the overnight enrichment stage: loads the document, enhances
every unprocessed idea through the LLM, generates a mind-map outline for
each, and saves the results in a single commit.

Ideas whose enhancement fails are still marked processed, with placeholder
text, so delivery is never blocked by a single bad record.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	store, err := newDocumentStore(processCommitMessage)
	if err != nil {
		return err
	}

	enhancer, err := openai.New(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("openai client: %w", err)
	}

	enrichment := services.NewEnrichment(store, enhancer)

	report, err := enrichment.Run(context.Background())
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	cmd.Printf("Processed %d ideas.\n", report.Processed)
	for _, failure := range report.Failures {
		cmd.Printf("  %s: %s\n", failure.ID, failure.Reason)
	}
	return nil
}

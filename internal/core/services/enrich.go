// Package services implements the two pipeline stages as orchestrators over
// the driven ports. Each stage performs one wide load-mutate-save cycle so
// a run commits as a whole or not at all.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driving"
	"github.com/masapokki/line-night-idea-enhancer/internal/logger"
)

// Ensure Enrichment implements the interface.
var _ driving.EnrichmentRunner = (*Enrichment)(nil)

// Placeholder texts substituted when an enrichment call fails. The idea is
// still marked processed; the failure is surfaced in the run report and in
// the delivered text, never by aborting the batch.
const (
	enhanceFailedText = "アイデアの処理中にエラーが発生しました。しばらくしてからもう一度お試しください。"
	mindmapFailedText = "マインドマップの生成中にエラーが発生しました。"
)

// Enrichment runs the enrichment stage: it scans the document for
// unprocessed ideas, invokes the enhancement and mind-map functions per
// idea, appends the derived result records, and saves once.
type Enrichment struct {
	store    driven.DocumentStore
	enhancer driven.IdeaEnhancer
	now      func() time.Time
}

// NewEnrichment creates the enrichment stage runner.
func NewEnrichment(store driven.DocumentStore, enhancer driven.IdeaEnhancer) *Enrichment {
	return &Enrichment{
		store:    store,
		enhancer: enhancer,
		now:      time.Now,
	}
}

// Run executes one enrichment batch. A load or save failure aborts the run
// with nothing committed; per-record enrichment failures degrade to
// placeholder text. On domain.ErrConflict the run reports failure without
// retrying, which is safe because the save committed nothing.
func (s *Enrichment) Run(ctx context.Context) (*driving.EnrichmentReport, error) {
	doc, token, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	report := &driving.EnrichmentReport{}

	ids := doc.UnprocessedIdeaIDs()
	if len(ids) == 0 {
		logger.Info("no unprocessed ideas found")
		return report, nil
	}
	logger.Info("found %d unprocessed ideas", len(ids))

	for _, id := range ids {
		idea := doc.Ideas[id]
		logger.Debug("processing idea %s", id)

		result := domain.Result{
			IdeaID:    id,
			CreatedAt: s.now(),
		}

		enhancement, err := s.enhancer.EnhanceIdea(ctx, idea.Content)
		if err != nil {
			logger.Warn("enhance idea %s: %v", id, err)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     id,
				Reason: fmt.Sprintf("enhance: %v", err),
			})
			result.EnhancedContent = enhanceFailedText
		} else {
			result.Analysis = enhancement.Analysis
			result.Evaluation = enhancement.Evaluation
			result.Expansion = enhancement.Expansion
			result.Feasibility = enhancement.Feasibility
			result.EnhancedContent = enhancement.Enhanced
		}

		mindmap, err := s.enhancer.GenerateMindmap(ctx, idea.Content)
		if err != nil {
			logger.Warn("generate mindmap for %s: %v", id, err)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     id,
				Reason: fmt.Sprintf("mindmap: %v", err),
			})
			mindmap = mindmapFailedText
		}
		result.MindmapContent = mindmap

		// The result identifier is derived from the idea identifier, so a
		// re-run can never create a second result for the same idea.
		doc.Results[domain.ResultIDForIdea(id)] = result

		idea.Processed = true
		doc.Ideas[id] = idea
		report.Processed++
	}

	if err := s.store.Save(ctx, doc, token); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	logger.Info("enrichment complete: %d ideas processed, %d failures",
		report.Processed, len(report.Failures))
	return report, nil
}

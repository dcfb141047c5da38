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

// Ensure Delivery implements the interface.
var _ driving.DeliveryRunner = (*Delivery)(nil)

// DefaultImageDelay is the fixed pause inserted before any image delivery
// to stay inside the push transport's rate limits. It is a flat delay, not
// a backoff policy.
const DefaultImageDelay = time.Second

// Delivery runs the delivery stage: it scans the document for unsent
// results, pushes the notification sequence per result, dispatches the
// mind-map image under the idempotency flags, and saves once.
type Delivery struct {
	store     driven.DocumentStore
	messenger driven.Messenger
	renderer  driven.MindmapRenderer

	imageDelay time.Duration
	sleep      func(time.Duration)
}

// NewDelivery creates the delivery stage runner. The renderer may be nil
// when no rendering collaborator is configured; image dispatch for results
// without a pre-rendered image then fails per-record and is retried on a
// later run.
func NewDelivery(store driven.DocumentStore, messenger driven.Messenger, renderer driven.MindmapRenderer) *Delivery {
	return &Delivery{
		store:      store,
		messenger:  messenger,
		renderer:   renderer,
		imageDelay: DefaultImageDelay,
		sleep:      time.Sleep,
	}
}

// Run executes one delivery batch. Per-record failures (push errors, missing
// parent ideas, absent recipients) leave the record unsent and continue; a
// save conflict aborts the whole run with nothing committed.
func (s *Delivery) Run(ctx context.Context) (*driving.DeliveryReport, error) {
	doc, token, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	report := &driving.DeliveryReport{}

	ids := doc.UnsentResultIDs()
	pending := doc.PendingImageResultIDs()
	if len(ids) == 0 && len(pending) == 0 {
		logger.Info("no unsent results found")
		return report, nil
	}
	logger.Info("found %d unsent results, %d pending images", len(ids), len(pending))

	for _, id := range ids {
		result := doc.Results[id]
		logger.Debug("sending result %s", id)

		idea, ok := doc.Ideas[result.IdeaID]
		if !ok {
			logger.Warn("result %s references missing idea %s", id, result.IdeaID)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     id,
				Reason: fmt.Sprintf("idea %s: %v", result.IdeaID, domain.ErrNotFound),
			})
			continue
		}
		if idea.UserID == "" {
			logger.Warn("idea %s has no recipient", result.IdeaID)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     id,
				Reason: fmt.Sprintf("idea %s: no recipient", result.IdeaID),
			})
			continue
		}

		if err := s.messenger.Push(ctx, idea.UserID, buildMessages(idea, result)); err != nil {
			logger.Warn("push result %s to %s: %v", id, idea.UserID, err)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     id,
				Reason: fmt.Sprintf("push: %v", err),
			})
			continue
		}

		// The text sequence is delivered: the result counts as sent even if
		// the image step below fails. Image failures only leave
		// mindmap_image_generated false so a later run retries the image.
		result.Sent = true
		report.Sent++

		if result.MindmapContent != "" {
			s.dispatchImage(ctx, &result, idea.UserID, id, report)
		}

		doc.Results[id] = result
	}

	// A result already sent on an earlier run may still owe its image.
	// Only the image step is repeated for those; the text sequence is
	// never resent.
	for _, id := range pending {
		result := doc.Results[id]
		logger.Debug("retrying mindmap image for %s", id)

		idea, ok := doc.Ideas[result.IdeaID]
		if !ok || idea.UserID == "" {
			logger.Warn("result %s has no reachable recipient for image retry", id)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     id,
				Reason: fmt.Sprintf("image retry: idea %s: %v", result.IdeaID, domain.ErrNotFound),
			})
			continue
		}

		s.dispatchImage(ctx, &result, idea.UserID, id, report)
		doc.Results[id] = result
	}

	if err := s.store.Save(ctx, doc, token); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	logger.Info("delivery complete: %d results sent, %d failures",
		report.Sent, len(report.Failures))
	return report, nil
}

// dispatchImage performs the idempotent mind-map image step for one result.
// The persisted flags decide the action: already generated means skip, a
// stored image reference is pushed directly, otherwise the rendering
// collaborator both renders and delivers.
func (s *Delivery) dispatchImage(ctx context.Context, result *domain.Result, userID, resultID string, report *driving.DeliveryReport) {
	switch {
	case result.MindmapImageGenerated:
		logger.Debug("mindmap image for %s already delivered", resultID)

	case result.MindmapImagePath != "":
		s.sleep(s.imageDelay)
		msg := driven.Message{Type: driven.MessageImage, ImageURL: result.MindmapImagePath}
		if err := s.messenger.Push(ctx, userID, []driven.Message{msg}); err != nil {
			logger.Warn("push mindmap image for %s: %v", resultID, err)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     resultID,
				Reason: fmt.Sprintf("image push: %v", err),
			})
			return
		}
		result.MindmapImageGenerated = true

	default:
		if s.renderer == nil {
			logger.Warn("no mindmap renderer configured, skipping image for %s", resultID)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     resultID,
				Reason: "image: renderer not configured",
			})
			return
		}
		s.sleep(s.imageDelay)
		path, err := s.renderer.RenderAndSend(ctx, userID, result.MindmapContent, resultID)
		if err != nil {
			logger.Warn("render mindmap image for %s: %v", resultID, err)
			report.Failures = append(report.Failures, driving.RecordFailure{
				ID:     resultID,
				Reason: fmt.Sprintf("image render: %v", err),
			})
			return
		}
		if path != "" {
			result.MindmapImagePath = path
		}
		result.MindmapImageGenerated = true
	}
}

package driven

import "context"

// MindmapRenderer turns a mind-map outline into an image and delivers it to
// the recipient in a single call. It may return a stored reference to the
// rendered image, which the caller persists for idempotent resends.
type MindmapRenderer interface {
	RenderAndSend(ctx context.Context, recipientID, mindmap, resultID string) (imagePath string, err error)
}

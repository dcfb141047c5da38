package driven

import "context"

// MessageType discriminates the notification message variants.
type MessageType string

// Message variants.
const (
	// MessageText is a plain text message.
	MessageText MessageType = "text"

	// MessageImage references a hosted image by URL.
	MessageImage MessageType = "image"

	// MessagePrompt is a text message carrying an interactive action the
	// recipient can tap to request more detail.
	MessagePrompt MessageType = "prompt"
)

// Message is one element of an ordered notification sequence.
type Message struct {
	Type MessageType

	// Text is the body for text and prompt messages.
	Text string

	// ImageURL is the image reference for image messages.
	ImageURL string

	// PromptLabel and PromptText describe the tap action of a prompt
	// message: the button label and the message text it sends back.
	PromptLabel string
	PromptText  string
}

// TextMessage builds a plain text message.
func TextMessage(text string) Message {
	return Message{Type: MessageText, Text: text}
}

// Messenger delivers ordered message sequences to a recipient over an
// external push transport. Delivery of a sequence is all-or-nothing from
// the pipeline's perspective: an error means nothing may be marked sent.
type Messenger interface {
	// Push sends messages to a recipient, in order, as one request.
	Push(ctx context.Context, recipientID string, messages []Message) error

	// Reply answers an inbound webhook event identified by its reply token.
	Reply(ctx context.Context, replyToken string, messages []Message) error
}

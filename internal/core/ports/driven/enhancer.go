package driven

import "context"

// Enhancement is the full output of the multi-step idea enhancement.
// Enhanced carries the final write-up delivered to the user; the four
// intermediate fields record the thinking process behind it and back the
// "show details" prompt.
type Enhancement struct {
	Analysis    string
	Evaluation  string
	Expansion   string
	Feasibility string
	Enhanced    string
}

// IdeaEnhancer elaborates a raw idea into enriched text and a mind-map
// outline. Both calls are blocking network requests; a failure is reported
// to the caller, which degrades that record rather than aborting its run.
type IdeaEnhancer interface {
	// EnhanceIdea develops the idea into a concrete, practical write-up.
	EnhanceIdea(ctx context.Context, content string) (*Enhancement, error)

	// GenerateMindmap produces a plain-text mind-map outline of the idea:
	// hierarchy by indentation, items prefixed with bullet markers.
	GenerateMindmap(ctx context.Context, content string) (string, error)
}

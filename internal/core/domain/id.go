package domain

import (
	"fmt"
	"strings"
	"time"
)

// Record identifier prefixes. A result identifier is derived from its idea
// identifier by substituting the prefix, so each idea maps to exactly one
// result no matter how often the enrichment stage runs.
const (
	IdeaIDPrefix   = "idea_"
	ResultIDPrefix = "result_"
)

// NewIdeaID builds an idea identifier of the form idea_<yyyymmdd>_<seq>.
func NewIdeaID(t time.Time, seq int) string {
	return fmt.Sprintf("%s%s_%03d", IdeaIDPrefix, t.Format("20060102"), seq)
}

// ResultIDForIdea derives the result identifier for an idea identifier.
// The derivation is deterministic: idea_20250406_001 -> result_20250406_001.
func ResultIDForIdea(ideaID string) string {
	return ResultIDPrefix + strings.TrimPrefix(ideaID, IdeaIDPrefix)
}

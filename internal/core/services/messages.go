package services

import (
	"fmt"
	"unicode/utf8"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
)

// MaxContentRunes is the hard per-message limit for enhanced content.
// Content longer than this is split into exactly two parts at the boundary.
// The limit and the split offset are counted in runes: a rune-boundary
// split can never cut a UTF-8 sequence in half, though it may still land
// mid-word or inside a combining sequence, which is accepted.
const MaxContentRunes = 4000

// Notification message frames. The greeting, section headers and prompt are
// product strings delivered to end users.
const (
	greetingFrame     = "おはようございます！昨晩のアイデアを処理しました。\n\n【元のアイデア】\n%s"
	enhancedFrame     = "【ブラッシュアップ】\n%s"
	enhancedPartFrame = "【ブラッシュアップ(%d/2)】\n%s"
	detailPromptText  = "思考プロセスの詳細を見るにはボタンを押してください。"
	detailPromptLabel = "詳細を見る"
)

// buildMessages assembles the ordered notification sequence for one result:
// the original idea framed as a greeting, the enhanced content in one or two
// messages, and the interactive detail prompt.
func buildMessages(idea domain.Idea, result domain.Result) []driven.Message {
	messages := []driven.Message{
		driven.TextMessage(fmt.Sprintf(greetingFrame, idea.Content)),
	}

	first, second, split := splitContent(result.EnhancedContent, MaxContentRunes)
	if split {
		messages = append(messages,
			driven.TextMessage(fmt.Sprintf(enhancedPartFrame, 1, first)),
			driven.TextMessage(fmt.Sprintf(enhancedPartFrame, 2, second)),
		)
	} else {
		messages = append(messages, driven.TextMessage(fmt.Sprintf(enhancedFrame, first)))
	}

	messages = append(messages, driven.Message{
		Type:        driven.MessagePrompt,
		Text:        detailPromptText,
		PromptLabel: detailPromptLabel,
		PromptText:  detailPromptLabel,
	})
	return messages
}

// splitContent splits text at exactly limit runes. The two parts concatenate
// back to the original text.
func splitContent(text string, limit int) (first, second string, split bool) {
	if utf8.RuneCountInString(text) <= limit {
		return text, "", false
	}
	runes := []rune(text)
	return string(runes[:limit]), string(runes[limit:]), true
}

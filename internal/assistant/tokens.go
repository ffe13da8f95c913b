package assistant

import (
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/Tiliavir/personal-assistant/internal/model"
)

// TokenCounter returns the token count of a text.
type TokenCounter func(text string) int

// NewTiktokenCounter picks the encoding for modelName. When the BPE ranks
// cannot be loaded (offline hosts) it falls back to a character heuristic.
func NewTiktokenCounter(modelName string) TokenCounter {
	enc, err := tiktoken.EncodingForModel(strings.TrimSpace(modelName))
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return HeuristicCount
	}
	return func(text string) int {
		if text == "" {
			return 0
		}
		return len(enc.Encode(text, nil, nil))
	}
}

// HeuristicCount estimates about four characters per token.
func HeuristicCount(text string) int {
	if text == "" {
		return 0
	}
	n := len([]rune(text)) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// messageTokens adds the ~4 token per-message overhead of the chat format.
func messageTokens(count TokenCounter, m model.ChatMessage) int {
	return 4 + count(m.Role) + count(m.Content)
}

// trimHistory drops the oldest non-system messages until the conversation
// fits in limit tokens. The final message is always kept.
func trimHistory(messages []model.ChatMessage, limit int, count TokenCounter) []model.ChatMessage {
	if limit <= 0 || len(messages) == 0 {
		return messages
	}
	total := 0
	for _, m := range messages {
		total += messageTokens(count, m)
	}
	out := append([]model.ChatMessage(nil), messages...)
	for i := 0; total > limit && i < len(out)-1; {
		if out[i].Role == model.RoleSystem {
			i++
			continue
		}
		total -= messageTokens(count, out[i])
		out = append(out[:i], out[i+1:]...)
	}
	return out
}

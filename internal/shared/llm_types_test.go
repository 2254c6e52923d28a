package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsageAdd(t *testing.T) {
	a := TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}
	b := TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30, Model: "gemini"}

	assert.Equal(t, TokenUsage{PromptTokens: 11, CompletionTokens: 22, TotalTokens: 33, Model: "gemini"}, a.Add(b))
	assert.Equal(t, "llama", TokenUsage{Model: "llama"}.Add(b).Model)
}

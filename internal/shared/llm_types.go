// Package shared holds types exchanged between the generators and the
// metrics store.
package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
	Model            string `json:"model,omitempty"`
}

// Add sums two usages. The model of u wins unless it is empty.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	sum := TokenUsage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
		Model:            u.Model,
	}
	if sum.Model == "" {
		sum.Model = other.Model
	}
	return sum
}

// AgentMeta holds operational metadata for a generator execution.
type AgentMeta struct {
	AgentName string        `json:"agentName"`
	Usage     TokenUsage    `json:"usage"`
	Latency   time.Duration `json:"latency"`
}

package chat

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a user's conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest carries the prior turns followed by the message to answer.
// The last entry in Messages is always the current user message.
type LLMRequest struct {
	Model       string
	Messages    []Turn
	MaxTokens   int32
	Temperature float32
	TopK        int32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// GenerationConfig holds the sampling settings applied to every completion.
type GenerationConfig struct {
	Temperature     float32
	TopK            int32
	TopP            float32
	MaxOutputTokens int32
}

// DefaultGeneration is the system-wide generation config.
var DefaultGeneration = GenerationConfig{
	Temperature:     0.9,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 2048,
}

func (g GenerationConfig) apply(req *LLMRequest) {
	req.Temperature = g.Temperature
	req.TopK = g.TopK
	req.TopP = g.TopP
	req.MaxTokens = g.MaxOutputTokens
}

package chat

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGeminiKey(t *testing.T) {
	assert.Error(t, ValidateGeminiKey(""))
	assert.Error(t, ValidateGeminiKey("   "))
	assert.Error(t, ValidateGeminiKey("sk-not-a-gemini-key"))
	assert.NoError(t, ValidateGeminiKey("AIzaSyExampleKey"))
	assert.NoError(t, ValidateGeminiKey(" AIzaSyExampleKey\n"))
}

func TestGeminiHistory_MapsRoles(t *testing.T) {
	history := geminiHistory([]Turn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello there"},
		{Role: RoleUser, Content: "   "},
		{Role: RoleUser, Content: "how are you?"},
	})

	require.Len(t, history, 3)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("hello there")}, history[1].Parts)
	assert.Equal(t, "user", history[2].Role)
}

func TestGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text("Go is "), genai.Text("a language. ")},
			},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 5,
			TotalTokenCount:      17,
		},
	}

	out, err := geminiResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", out.Text)
	assert.Equal(t, TokenUsage{InputTokens: 12, OutputTokens: 5, TotalTokens: 17}, out.Usage)
	assert.NotEmpty(t, out.StopReason)
}

func TestGeminiResponse_NoCandidates(t *testing.T) {
	_, err := geminiResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = geminiResponse(nil)
	assert.Error(t, err)
}

func TestGeminiResponse_BlockedCandidateHasNoText(t *testing.T) {
	out, err := geminiResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
	})
	require.NoError(t, err)
	assert.Equal(t, "", out.Text)
}

func TestConfigureGeminiModel_AppliesGeneration(t *testing.T) {
	req := LLMRequest{Model: "gemini-1.5-flash"}
	DefaultGeneration.apply(&req)

	model := &genai.GenerativeModel{}
	configureGeminiModel(model, req)

	require.NotNil(t, model.Temperature)
	require.NotNil(t, model.TopK)
	require.NotNil(t, model.TopP)
	require.NotNil(t, model.MaxOutputTokens)
	assert.Equal(t, float32(0.9), *model.Temperature)
	assert.Equal(t, int32(40), *model.TopK)
	assert.Equal(t, float32(0.95), *model.TopP)
	assert.Equal(t, int32(2048), *model.MaxOutputTokens)
}

func TestConfigureGeminiModel_ProbeKeepsDefaults(t *testing.T) {
	model := &genai.GenerativeModel{}
	configureGeminiModel(model, LLMRequest{
		Model:       "gemini-1.5-flash",
		Messages:    []Turn{{Role: RoleUser, Content: probePrompt}},
		Temperature: -1,
	})

	assert.Nil(t, model.Temperature)
	assert.Nil(t, model.TopK)
	assert.Nil(t, model.TopP)
	assert.Nil(t, model.MaxOutputTokens)
}

func TestGeminiClient_CompleteRejectsBadRequests(t *testing.T) {
	client := &GeminiClient{}

	_, err := client.Complete(context.Background(), LLMRequest{Messages: []Turn{{Role: RoleUser, Content: "hi"}}})
	assert.Error(t, err)

	_, err = client.Complete(context.Background(), LLMRequest{Model: "gemini-1.5-flash"})
	assert.Error(t, err)
}

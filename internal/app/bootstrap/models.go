package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/gemini-chat/internal/chat"
	appconfig "github.com/wolfman30/gemini-chat/internal/config"
	"github.com/wolfman30/gemini-chat/internal/observability/metrics"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

// Models bundles the resolved model selector with the clients it owns.
type Models struct {
	Selector *chat.ModelSelector
	gemini   *chat.GeminiClient
}

// Close releases the Gemini client.
func (m *Models) Close() error {
	if m == nil || m.gemini == nil {
		return nil
	}
	return m.gemini.Close()
}

// BuildModelSelector wires the configured preference list to Gemini and,
// for "bedrock:" entries, to Bedrock through awsCfg.
func BuildModelSelector(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, chatMetrics *metrics.ChatMetrics, logger *logging.Logger) (*Models, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	models := &Models{}
	var gemini, bedrock chat.LLMClient
	if cfg.UsesGemini() {
		client, err := chat.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		models.gemini = client
		gemini = client
	}
	if cfg.UsesBedrock() {
		if awsCfg == nil {
			_ = models.Close()
			return nil, fmt.Errorf("bootstrap: bedrock models configured without aws config")
		}
		bedrock = chat.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg))
	}

	candidates, err := chat.BuildCandidates(cfg.Models, gemini, bedrock)
	if err != nil {
		_ = models.Close()
		return nil, err
	}
	models.Selector = chat.NewModelSelector(candidates, logger,
		chat.WithProbeTimeout(cfg.ProbeTimeout),
		chat.WithSelectorMetrics(chatMetrics),
	)
	logger.Info("model preference configured", "models", cfg.Models)
	return models, nil
}

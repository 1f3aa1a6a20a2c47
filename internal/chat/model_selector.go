package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wolfman30/gemini-chat/internal/observability/metrics"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

const (
	bedrockPrefix       = "bedrock:"
	defaultProbeTimeout = 15 * time.Second
	probePrompt         = "Hello"
)

// Candidate is one entry of the model preference list.
type Candidate struct {
	// Name is the configured identifier, e.g. "gemini-1.5-flash" or
	// "bedrock:anthropic.claude-3-haiku-20240307-v1:0".
	Name string
	// Model is the identifier sent to the provider.
	Model  string
	Client LLMClient
}

// ModelHandle is a resolved, currently usable model. Handles are never
// mutated; re-resolution replaces the cached pointer.
type ModelHandle struct {
	Name   string
	Model  string
	Client LLMClient
}

// ModelResolver resolves and invalidates the process-wide model handle.
type ModelResolver interface {
	Resolve(ctx context.Context) (*ModelHandle, error)
	Invalidate()
}

// BuildCandidates turns the configured preference list into candidates.
// Identifiers prefixed with "bedrock:" are served by bedrock; everything else by gemini.
func BuildCandidates(names []string, gemini, bedrock LLMClient) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, bedrockPrefix) {
			model := strings.TrimSpace(strings.TrimPrefix(name, bedrockPrefix))
			if model == "" {
				return nil, fmt.Errorf("chat: empty bedrock model in %q", raw)
			}
			if bedrock == nil {
				return nil, fmt.Errorf("chat: %s requires a bedrock client", name)
			}
			candidates = append(candidates, Candidate{Name: name, Model: model, Client: bedrock})
			continue
		}
		if gemini == nil {
			return nil, fmt.Errorf("chat: %s requires a gemini client", name)
		}
		candidates = append(candidates, Candidate{Name: name, Model: name, Client: gemini})
	}
	if len(candidates) == 0 {
		return nil, errors.New("chat: at least one model candidate is required")
	}
	return candidates, nil
}

// ModelSelector probes candidates in preference order and caches the first
// one that answers. Resolve and Invalidate are safe for concurrent use.
type ModelSelector struct {
	candidates   []Candidate
	probeTimeout time.Duration
	logger       *logging.Logger
	metrics      *metrics.ChatMetrics

	// probeSlot holds one token; the caller holding it runs the probe pass.
	probeSlot chan struct{}
	cached    atomic.Pointer[ModelHandle]
}

type SelectorOption func(*ModelSelector)

// WithProbeTimeout bounds each probe call.
func WithProbeTimeout(d time.Duration) SelectorOption {
	return func(s *ModelSelector) {
		if d > 0 {
			s.probeTimeout = d
		}
	}
}

func WithSelectorMetrics(m *metrics.ChatMetrics) SelectorOption {
	return func(s *ModelSelector) {
		s.metrics = m
	}
}

func NewModelSelector(candidates []Candidate, logger *logging.Logger, opts ...SelectorOption) *ModelSelector {
	if len(candidates) == 0 {
		panic("chat: model selector requires candidates")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &ModelSelector{
		candidates:   append([]Candidate(nil), candidates...),
		probeTimeout: defaultProbeTimeout,
		logger:       logger,
		probeSlot:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the cached handle, or probes candidates top-down when the
// cache is empty. Concurrent callers on a cold cache share one probe pass.
func (s *ModelSelector) Resolve(ctx context.Context) (*ModelHandle, error) {
	if h := s.cached.Load(); h != nil {
		return h, nil
	}

	select {
	case s.probeSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, ctx.Err())
	}
	defer func() { <-s.probeSlot }()

	if h := s.cached.Load(); h != nil {
		return h, nil
	}

	var lastErr error
	for _, c := range s.candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		if err := s.probe(ctx, c); err != nil {
			s.logger.Warn("model not available", "model", c.Name, "error", err)
			s.metrics.ObserveProbe(c.Name, false)
			lastErr = err
			continue
		}
		s.metrics.ObserveProbe(c.Name, true)
		s.logger.Info("model available", "model", c.Name)

		h := &ModelHandle{Name: c.Name, Model: c.Model, Client: c.Client}
		s.cached.Store(h)
		return h, nil
	}
	if lastErr == nil {
		return nil, ErrModelUnavailable
	}
	return nil, fmt.Errorf("%w: last error: %v", ErrModelUnavailable, lastErr)
}

// Invalidate drops the cached handle so the next Resolve re-probes from the top.
func (s *ModelSelector) Invalidate() {
	if old := s.cached.Swap(nil); old != nil {
		s.logger.Info("model cache invalidated", "model", old.Name)
	}
}

// Current returns the cached model name without probing.
func (s *ModelSelector) Current() string {
	if h := s.cached.Load(); h != nil {
		return h.Name
	}
	return ""
}

func (s *ModelSelector) probe(ctx context.Context, c Candidate) error {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	_, err := c.Client.Complete(probeCtx, LLMRequest{
		Model:       c.Model,
		Messages:    []Turn{{Role: RoleUser, Content: probePrompt}},
		Temperature: -1,
	})
	return err
}

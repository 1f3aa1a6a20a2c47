package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/gemini-chat/internal/observability/metrics"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

const (
	DefaultContextWindow     = 9
	defaultCompletionTimeout = 60 * time.Second
	testModelPrompt          = "Test response: Hello!"
)

// TranscriptArchiver stores a copy of a conversation before it is cleared.
type TranscriptArchiver interface {
	ArchiveTranscript(ctx context.Context, userID string, turns []Turn) error
}

// OrchestratorConfig tunes the completion flow. Zero values fall back to defaults.
type OrchestratorConfig struct {
	// ContextWindow is the maximum number of prior turns sent to the model.
	ContextWindow     int
	CompletionTimeout time.Duration
	Generation        GenerationConfig
	Metrics           *metrics.ChatMetrics
	Archiver          TranscriptArchiver
}

// ModelProbe is the result of an explicit model connectivity test.
type ModelProbe struct {
	ModelName string
	Response  string
}

// Orchestrator turns one inbound user message into a persisted, answered
// conversation turn, rolling the user turn back when the model call fails.
type Orchestrator struct {
	store    Store
	models   ModelResolver
	cfg      OrchestratorConfig
	locks    *userLocks
	logger   *logging.Logger
	metrics  *metrics.ChatMetrics
	archiver TranscriptArchiver
	tracer   trace.Tracer
}

func NewOrchestrator(store Store, models ModelResolver, cfg OrchestratorConfig, logger *logging.Logger) *Orchestrator {
	if store == nil {
		panic("chat: store cannot be nil")
	}
	if models == nil {
		panic("chat: model resolver cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = DefaultContextWindow
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = defaultCompletionTimeout
	}
	if cfg.Generation == (GenerationConfig{}) {
		cfg.Generation = DefaultGeneration
	}
	return &Orchestrator{
		store:    store,
		models:   models,
		cfg:      cfg,
		locks:    newUserLocks(),
		logger:   logger,
		metrics:  cfg.Metrics,
		archiver: cfg.Archiver,
		tracer:   otel.Tracer("geminichat.internal.chat.orchestrator"),
	}
}

// Complete appends message as a user turn, asks the model for a reply and
// appends it. On any failure after the user turn is staged, the turn is removed
// before returning, so callers never observe a dangling user turn.
func (o *Orchestrator) Complete(ctx context.Context, userID, message string) ([]Turn, error) {
	ctx, span := o.tracer.Start(ctx, "chat.complete", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	if strings.TrimSpace(message) == "" {
		return nil, ErrInvalidInput
	}

	unlock := o.locks.lock(userID)
	defer unlock()

	started := time.Now()
	c := &completion{userID: userID, message: message, state: stateIdle}
	turns, err := o.run(ctx, c)

	model := ""
	if c.handle != nil {
		model = c.handle.Name
	}
	o.metrics.ObserveCompletion(c.outcome(), model, time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, c.state.String())
		return nil, err
	}
	span.SetAttributes(attribute.String("model", model))
	return turns, nil
}

func (o *Orchestrator) run(ctx context.Context, c *completion) ([]Turn, error) {
	history, err := o.store.Turns(ctx, c.userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "load turns", Err: err}
	}

	userTurn := Turn{Role: RoleUser, Content: c.message}
	if err := o.store.Append(ctx, c.userID, userTurn); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "append user turn", Err: err}
	}
	if err := c.advance(stateUserTurnStaged); err != nil {
		return nil, err
	}

	reply, err := o.invoke(ctx, c, contextWindow(history, o.cfg.ContextWindow))
	if err != nil {
		return nil, o.rollback(ctx, c, err)
	}

	assistantTurn := Turn{Role: RoleAssistant, Content: reply}
	if err := o.store.Append(ctx, c.userID, assistantTurn); err != nil {
		return nil, o.rollback(ctx, c, &StoreError{Op: "append assistant turn", Err: err})
	}
	if err := c.advance(stateCommitted); err != nil {
		return nil, err
	}

	o.logger.Info("chat completion committed",
		"user_id", c.userID,
		"model", c.handle.Name,
		"history_turns", len(history),
	)

	out := make([]Turn, 0, len(history)+2)
	out = append(out, history...)
	return append(out, userTurn, assistantTurn), nil
}

func (o *Orchestrator) invoke(ctx context.Context, c *completion, window []Turn) (string, error) {
	handle, err := o.models.Resolve(ctx)
	if err != nil {
		return "", err
	}
	c.handle = handle
	if err := c.advance(stateModelInvoked); err != nil {
		return "", err
	}

	req := LLMRequest{
		Model:    handle.Model,
		Messages: append(window, Turn{Role: RoleUser, Content: c.message}),
	}
	o.cfg.Generation.apply(&req)

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CompletionTimeout)
	defer cancel()

	resp, err := handle.Client.Complete(callCtx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", ErrEmptyModelResponse
	}
	return resp.Text, nil
}

// rollback removes the staged user turn and wraps cause as a CompletionError.
func (o *Orchestrator) rollback(ctx context.Context, c *completion, cause error) error {
	if modelFailure(cause) {
		o.models.Invalidate()
		o.metrics.ObserveInvalidation()
	}

	model := ""
	if c.handle != nil {
		model = c.handle.Name
	}

	// The request context may already be cancelled; the rollback must still run.
	if err := o.store.RemoveLast(context.WithoutCancel(ctx), c.userID); err != nil {
		o.logger.Error("failed to roll back user turn",
			"user_id", c.userID,
			"cause", cause,
			"error", err,
		)
		c.rollbackFailed = true
		return &CompletionError{Model: model, Err: errors.Join(cause, &StoreError{Op: "roll back user turn", Err: err})}
	}
	if err := c.advance(stateRolledBack); err != nil {
		return err
	}

	o.logger.Warn("chat completion rolled back",
		"user_id", c.userID,
		"model", model,
		"error", cause,
	)
	return &CompletionError{Model: model, Err: cause}
}

// History returns every turn for the user.
func (o *Orchestrator) History(ctx context.Context, userID string) ([]Turn, error) {
	turns, err := o.store.Turns(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, &StoreError{Op: "load turns", Err: err}
	}
	return turns, nil
}

// Clear deletes every turn for the user, archiving the transcript first when
// an archiver is configured. Archive failures do not block the delete.
func (o *Orchestrator) Clear(ctx context.Context, userID string) error {
	unlock := o.locks.lock(userID)
	defer unlock()

	turns, err := o.History(ctx, userID)
	if err != nil {
		return err
	}
	if o.archiver != nil && len(turns) > 0 {
		if err := o.archiver.ArchiveTranscript(ctx, userID, turns); err != nil {
			o.logger.Warn("failed to archive transcript", "user_id", userID, "error", err)
		}
	}
	if err := o.store.Clear(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return &StoreError{Op: "clear turns", Err: err}
	}
	o.logger.Info("chat history cleared", "user_id", userID, "turns", len(turns))
	return nil
}

// TestModel drops the cached model, re-probes and runs a test generation.
func (o *Orchestrator) TestModel(ctx context.Context) (ModelProbe, error) {
	o.models.Invalidate()
	handle, err := o.models.Resolve(ctx)
	if err != nil {
		return ModelProbe{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CompletionTimeout)
	defer cancel()

	req := LLMRequest{
		Model:    handle.Model,
		Messages: []Turn{{Role: RoleUser, Content: testModelPrompt}},
	}
	o.cfg.Generation.apply(&req)
	resp, err := handle.Client.Complete(callCtx, req)
	if err != nil {
		if modelFailure(err) {
			o.models.Invalidate()
		}
		return ModelProbe{ModelName: handle.Name}, fmt.Errorf("chat: test generation on %s: %w", handle.Name, err)
	}
	return ModelProbe{ModelName: handle.Name, Response: resp.Text}, nil
}

// contextWindow returns the trailing n turns of history in append order.
func contextWindow(history []Turn, n int) []Turn {
	if n <= 0 || len(history) == 0 {
		return []Turn{}
	}
	start := len(history) - n
	if start < 0 {
		start = 0
	}
	window := make([]Turn, len(history)-start, len(history)-start+1)
	copy(window, history[start:])
	return window
}

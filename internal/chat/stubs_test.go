package chat

import (
	"context"
	"errors"
	"sync"
)

// stubLLMClient answers probes and completions through respond and records every request.
type stubLLMClient struct {
	mu      sync.Mutex
	calls   []LLMRequest
	respond func(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

func (s *stubLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	copied := req
	copied.Messages = append([]Turn(nil), req.Messages...)
	s.calls = append(s.calls, copied)
	respond := s.respond
	s.mu.Unlock()

	if respond == nil {
		return LLMResponse{Text: "ok"}, nil
	}
	return respond(ctx, req)
}

func (s *stubLLMClient) requests() []LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LLMRequest(nil), s.calls...)
}

func (s *stubLLMClient) probes() int {
	n := 0
	for _, req := range s.requests() {
		if isProbe(req) {
			n++
		}
	}
	return n
}

func (s *stubLLMClient) completions() []LLMRequest {
	var out []LLMRequest
	for _, req := range s.requests() {
		if !isProbe(req) {
			out = append(out, req)
		}
	}
	return out
}

func isProbe(req LLMRequest) bool {
	return req.Temperature < 0 && len(req.Messages) == 1 && req.Messages[0].Content == probePrompt
}

// echoResponder answers probes with "hi" and completions with "echo: <message>".
func echoResponder(_ context.Context, req LLMRequest) (LLMResponse, error) {
	if isProbe(req) {
		return LLMResponse{Text: "hi"}, nil
	}
	last := req.Messages[len(req.Messages)-1]
	return LLMResponse{Text: "echo: " + last.Content}, nil
}

// failingModels makes probes fail for the listed models and passes the rest to next.
func failingModels(next func(context.Context, LLMRequest) (LLMResponse, error), models ...string) func(context.Context, LLMRequest) (LLMResponse, error) {
	down := map[string]bool{}
	for _, m := range models {
		down[m] = true
	}
	return func(ctx context.Context, req LLMRequest) (LLMResponse, error) {
		if down[req.Model] {
			return LLMResponse{}, errors.New("googleapi: Error 404: models/" + req.Model + " is not found")
		}
		return next(ctx, req)
	}
}

type staticDirectory map[string]bool

func (d staticDirectory) Exists(_ context.Context, userID string) (bool, error) {
	return d[userID], nil
}

// faultyStore wraps a Store and fails selected operations.
type faultyStore struct {
	Store
	mu              sync.Mutex
	appendCalls     int
	failAppendAt    int
	failRemoveLast  error
	honourCancelled bool
}

func (s *faultyStore) Turns(ctx context.Context, userID string) ([]Turn, error) {
	if s.honourCancelled && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return s.Store.Turns(ctx, userID)
}

func (s *faultyStore) Append(ctx context.Context, userID string, turn Turn) error {
	if s.honourCancelled && ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.Lock()
	s.appendCalls++
	n := s.appendCalls
	s.mu.Unlock()
	if s.failAppendAt > 0 && n == s.failAppendAt {
		return errors.New("connection reset by peer")
	}
	return s.Store.Append(ctx, userID, turn)
}

func (s *faultyStore) RemoveLast(ctx context.Context, userID string) error {
	if s.honourCancelled && ctx.Err() != nil {
		return ctx.Err()
	}
	if s.failRemoveLast != nil {
		return s.failRemoveLast
	}
	return s.Store.RemoveLast(ctx, userID)
}

type recordingArchiver struct {
	userID string
	turns  []Turn
	err    error
}

func (a *recordingArchiver) ArchiveTranscript(_ context.Context, userID string, turns []Turn) error {
	a.userID = userID
	a.turns = append([]Turn(nil), turns...)
	return a.err
}

// Package testutil provides fakes shared by the package tests: a scriptable
// model handle, a provider adapter wrapping it, and a recording dispatch sink.
package testutil

import (
	"context"
	"sync"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
)

// MockHandle is a scriptable core.ModelHandle. Each call to Stream pops the
// next event script; Generate delegates to GenerateFn when set.
type MockHandle struct {
	InfoValue  core.HandleInfo
	Scripts    [][]core.StreamEvent
	StreamErr  error
	GenerateFn func(req core.Request) (string, error)

	// Gate, when non-nil, blocks each Stream call until the channel is closed.
	Gate chan struct{}

	mu       sync.Mutex
	calls    int
	requests []core.Request
}

// Stream implements core.ModelHandle.
func (m *MockHandle) Stream(ctx context.Context, req core.Request) (<-chan core.StreamEvent, <-chan error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.requests = append(m.requests, req)
	var script []core.StreamEvent
	if idx < len(m.Scripts) {
		script = m.Scripts[idx]
	}
	m.mu.Unlock()

	events := make(chan core.StreamEvent)
	errs := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errs)
		if m.Gate != nil {
			select {
			case <-m.Gate:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if m.StreamErr != nil {
			errs <- m.StreamErr
			return
		}
		for _, ev := range script {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, errs
}

// Generate implements core.ModelHandle.
func (m *MockHandle) Generate(_ context.Context, req core.Request) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.GenerateFn != nil {
		return m.GenerateFn(req)
	}
	return "", nil
}

// Info implements core.ModelHandle.
func (m *MockHandle) Info() core.HandleInfo { return m.InfoValue }

// StreamCalls returns how many times Stream was invoked.
func (m *MockHandle) StreamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of every request seen.
func (m *MockHandle) Requests() []core.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Request(nil), m.requests...)
}

// FakeAdapter is a provider.Adapter returning a fixed handle.
type FakeAdapter struct {
	Desc      provider.Descriptor
	Handle    core.ModelHandle
	CreateErr error
	Models    []provider.ModelInfo
}

// Descriptor implements provider.Adapter.
func (a *FakeAdapter) Descriptor() provider.Descriptor { return a.Desc }

// CreateModel implements provider.Adapter.
func (a *FakeAdapter) CreateModel(modelID string, creds core.Credentials) (core.ModelHandle, error) {
	if err := provider.RequireCredentials(a.Desc, creds); err != nil {
		return nil, err
	}
	if a.CreateErr != nil {
		return nil, a.CreateErr
	}
	return a.Handle, nil
}

// AvailableModels implements provider.Adapter.
func (a *FakeAdapter) AvailableModels(context.Context, core.Credentials) []provider.ModelInfo {
	return a.Models
}

// ValidateCredentials implements provider.Adapter.
func (a *FakeAdapter) ValidateCredentials(creds core.Credentials) bool {
	return provider.RequireCredentials(a.Desc, creds) == nil
}

// CaptureSink records everything a dispatch emits, including the correlation
// id carried by each call.
type CaptureSink struct {
	mu          sync.Mutex
	ids         []string
	chunks      []string
	steps       []string
	results     []core.ToolResult
	completions []string
	errors      []string
}

// Chunk implements dispatch.Sink.
func (s *CaptureSink) Chunk(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.chunks = append(s.chunks, text)
}

// Thinking implements dispatch.Sink.
func (s *CaptureSink) Thinking(id, step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.steps = append(s.steps, step)
}

// ToolResult implements dispatch.Sink.
func (s *CaptureSink) ToolResult(id string, result core.ToolResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.results = append(s.results, result)
}

// Complete implements dispatch.Sink.
func (s *CaptureSink) Complete(id, finishReason string, _ *core.TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.completions = append(s.completions, finishReason)
}

// Error implements dispatch.Sink.
func (s *CaptureSink) Error(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.errors = append(s.errors, message)
}

// IDs returns the correlation id of every recorded call, in emission order.
func (s *CaptureSink) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

// Chunks returns the recorded text deltas.
func (s *CaptureSink) Chunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chunks...)
}

// Steps returns the recorded thinking steps.
func (s *CaptureSink) Steps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.steps...)
}

// Results returns the recorded tool results.
func (s *CaptureSink) Results() []core.ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ToolResult(nil), s.results...)
}

// Completions returns the recorded finish reasons.
func (s *CaptureSink) Completions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.completions...)
}

// Errors returns the recorded error messages.
func (s *CaptureSink) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errors...)
}

// Text concatenates all chunks.
func (s *CaptureSink) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := ""
	for _, c := range s.chunks {
		out += c
	}
	return out
}

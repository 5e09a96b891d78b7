// Package openai provides provider adapters built on the OpenAI Chat
// Completions API (including streaming + function/tool calling): the OpenAI
// platform itself, Azure OpenAI, and a reusable Handle that the compat and
// ollama adapters construct against alternative base URLs.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sidekick-ai/sidekick/core"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// allowing reconstruction of complete function calls when the finish reason
// is emitted.
type aggCall struct{ id, name, args string }

// HandleConfig configures a chat-completions Handle.
type HandleConfig struct {
	// Provider is the canonical id reported through HandleInfo.
	Provider string
	// Model is the model (or deployment) id sent with every request.
	Model string
	// Temperature defaults to 0.7 when zero-valued handles are built through
	// NewHandle with an explicit value; adapters always set it.
	Temperature float64
	// MaxCompletionTokens bounds the response size.
	MaxCompletionTokens int64
	// EmptyStreamFallback is copied onto HandleInfo; see core.HandleInfo.
	EmptyStreamFallback bool
	// ClientOptions configure the underlying SDK client (API key, base URL,
	// Azure endpoint wiring).
	ClientOptions []option.RequestOption
}

// Handle wraps an OpenAI-protocol client behind the core.ModelHandle
// interface. It is shared by every adapter speaking the Chat Completions
// wire protocol.
type Handle struct {
	client *openai.Client
	cfg    HandleConfig
}

// NewHandle constructs a handle from a config, applying defaults for
// temperature and token limits.
func NewHandle(cfg HandleConfig) *Handle {
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxCompletionTokens == 0 {
		cfg.MaxCompletionTokens = 4096
	}
	client := openai.NewClient(cfg.ClientOptions...)
	return &Handle{client: &client, cfg: cfg}
}

// Info returns metadata describing this handle.
func (h *Handle) Info() core.HandleInfo {
	return core.HandleInfo{
		Provider:            h.cfg.Provider,
		Model:               h.cfg.Model,
		SupportsTools:       true,
		EmptyStreamFallback: h.cfg.EmptyStreamFallback,
	}
}

// Stream implements streaming generation, adapting Chat Completions chunks
// (with function/tool calling) into core.StreamEvent values.
func (h *Handle) Stream(ctx context.Context, req core.Request) (<-chan core.StreamEvent, <-chan error) {
	out := make(chan core.StreamEvent, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := h.buildParams(req)
		stream := h.client.Chat.Completions.NewStreaming(ctx, params)

		toolAgg := map[int64]*aggCall{}
		var aggOrder []int64
		terminal := false

		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Delta.Content != "" {
					out <- core.TextDeltaEvent(ch.Delta.Content)
				}
				for _, tc := range ch.Delta.ToolCalls {
					ac, ok := toolAgg[tc.Index]
					if !ok {
						ac = &aggCall{}
						toolAgg[tc.Index] = ac
						aggOrder = append(aggOrder, tc.Index)
					}
					if tc.ID != "" {
						ac.id = tc.ID
					}
					if tc.Function.Name != "" {
						ac.name = tc.Function.Name
					}
					if tc.Function.Arguments != "" {
						ac.args += tc.Function.Arguments
					}
				}
				if ch.FinishReason != "" && !terminal {
					terminal = true
					emitToolCalls(out, toolAgg, aggOrder)
					out <- core.CompletionEvent(ch.FinishReason, chunkUsage(ck))
				}
			}
		}

		if err := stream.Err(); err != nil {
			errCh <- &core.StreamError{Message: h.cfg.Provider + " streaming error", Err: err}
			return
		}
		if !terminal {
			// Some compatible backends close the stream without a finish
			// reason; still honor the one-terminal-event contract.
			emitToolCalls(out, toolAgg, aggOrder)
			out <- core.CompletionEvent("stop", nil)
		}
	}()

	return out, errCh
}

func emitToolCalls(out chan<- core.StreamEvent, agg map[int64]*aggCall, order []int64) {
	for _, idx := range order {
		ac := agg[idx]
		if ac.name == "" {
			continue
		}
		id := ac.id
		if id == "" {
			id = core.NewID()
		}
		out <- core.ToolCallEvent(core.ToolCall{ID: id, Name: ac.name, Arguments: ac.args})
	}
}

func chunkUsage(ck openai.ChatCompletionChunk) *core.TokenUsage {
	if ck.Usage.TotalTokens == 0 {
		return nil
	}
	return &core.TokenUsage{
		PromptTokens:     int(ck.Usage.PromptTokens),
		CompletionTokens: int(ck.Usage.CompletionTokens),
		TotalTokens:      int(ck.Usage.TotalTokens),
	}
}

// Generate performs a non-streaming completion and returns the text of the
// first choice.
func (h *Handle) Generate(ctx context.Context, req core.Request) (string, error) {
	params := h.buildParams(req)
	resp, err := h.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s api error: %w", h.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s api error: no choices returned", h.cfg.Provider)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildParams assembles the request parameters including tool definitions.
func (h *Handle) buildParams(req core.Request) openai.ChatCompletionNewParams {
	maxTokens := h.cfg.MaxCompletionTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := h.cfg.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               h.cfg.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts the normalized conversation into Chat Completions
// messages, attaching tool call parameters to assistant turns and tool
// results as tool-role messages.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "user":
			out = append(out, openai.UserMessage(msg.Content))
		case "assistant":
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCalls,
			}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case "tool":
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			if strings.TrimSpace(msg.Content) != "" {
				out = append(out, openai.UserMessage(msg.Content))
			}
		}
	}
	return out
}

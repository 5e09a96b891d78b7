// Package anthropic provides a provider adapter for the Anthropic Messages
// API, including streaming with tool use.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/sidekick-ai/sidekick/core"
	"github.com/sidekick-ai/sidekick/provider"
)

var anthropicModels = []string{
	"claude-sonnet-4-20250514",
	"claude-opus-4-20250514",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
}

// Adapter implements provider.Adapter for Anthropic.
type Adapter struct {
	descriptor provider.Descriptor
}

// NewAdapter constructs the Anthropic adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		descriptor: provider.Descriptor{
			ID:                       "anthropic",
			DisplayName:              "Anthropic",
			RequiredCredentialFields: []string{"apiKey"},
			AllowsCustomModel:        true,
			DefaultModel:             "claude-3-5-sonnet-20241022",
		},
	}
}

// Descriptor implements provider.Adapter.
func (a *Adapter) Descriptor() provider.Descriptor { return a.descriptor }

// CreateModel implements provider.Adapter.
func (a *Adapter) CreateModel(modelID string, creds core.Credentials) (core.ModelHandle, error) {
	if err := provider.RequireCredentials(a.descriptor, creds); err != nil {
		return nil, err
	}
	if modelID == "" {
		modelID = a.descriptor.DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(creds.Get("apiKey"))}
	if base := creds.Get("baseUrl"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(opts...)

	return &Handle{client: &client, model: modelID}, nil
}

// AvailableModels implements provider.Adapter.
func (a *Adapter) AvailableModels(context.Context, core.Credentials) []provider.ModelInfo {
	return provider.StaticModels(anthropicModels...)
}

// ValidateCredentials implements provider.Adapter.
func (a *Adapter) ValidateCredentials(creds core.Credentials) bool {
	return provider.RequireCredentials(a.descriptor, creds) == nil
}

// Handle wraps the Anthropic Messages API behind core.ModelHandle.
type Handle struct {
	client *anthropic.Client
	model  string
}

// Info implements core.ModelHandle.
func (h *Handle) Info() core.HandleInfo {
	return core.HandleInfo{Provider: "anthropic", Model: h.model, SupportsTools: true}
}

// Stream implements streaming generation. Text deltas are forwarded as they
// arrive; tool use blocks are accumulated and emitted complete once the
// message ends, followed by the terminal completion event.
func (h *Handle) Stream(ctx context.Context, req core.Request) (<-chan core.StreamEvent, <-chan error) {
	out := make(chan core.StreamEvent, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := h.client.Messages.NewStreaming(ctx, h.buildParams(req))

		message := anthropic.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				errCh <- &core.StreamError{Message: "anthropic stream accumulation failed", Err: err}
				return
			}
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := eventVariant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					out <- core.TextDeltaEvent(delta.Text)
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- &core.StreamError{Message: "anthropic streaming error", Err: err}
			return
		}

		for _, block := range message.Content {
			if block.Type != "tool_use" {
				continue
			}
			toolBlock := block.AsToolUse()
			args := ""
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(argsBytes)
				}
			}
			out <- core.ToolCallEvent(core.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}

		finishReason := "stop"
		if message.StopReason != "" {
			finishReason = string(message.StopReason)
		}
		out <- core.CompletionEvent(finishReason, &core.TokenUsage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		})
	}()

	return out, errCh
}

// Generate performs a non-streaming completion and returns the concatenated
// text blocks of the response.
func (h *Handle) Generate(ctx context.Context, req core.Request) (string, error) {
	resp, err := h.client.Messages.New(ctx, h.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	return text, nil
}

func (h *Handle) buildParams(req core.Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(h.model),
		Messages:    buildMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if system := systemBlocks(req.Messages); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	return params
}

// buildMessages converts the normalized conversation to Anthropic messages.
// Tool results become tool_result blocks inside user-role messages, which is
// where the Messages API expects them.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			continue // handled separately via the system parameter
		case "user":
			if msg.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		case "assistant":
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input any
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
						input = tc.Arguments // fallback to string
					}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) > 0 {
				out = append(out, anthropic.NewAssistantMessage(content...))
			}
		case "tool":
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)))
		default:
			if msg.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		}
	}
	return out
}

func systemBlocks(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, msg := range messages {
		if msg.Role == "system" && msg.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	return blocks
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []core.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if tool.Parameters != nil {
			if properties, exists := tool.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := tool.Parameters["required"]; exists {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []any:
					for _, r := range req {
						if s, ok := r.(string); ok {
							inputSchema.Required = append(inputSchema.Required, s)
						}
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
	}
	return out
}

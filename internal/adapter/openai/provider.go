// Package openai implements the llm and embedding ports using the
// official OpenAI SDK.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/Gladowsky-Labs/brane/internal/domain/chat"
	"github.com/Gladowsky-Labs/brane/internal/port/llm"
)

// Provider implements llm.Provider over the chat completions API.
type Provider struct {
	client openai.Client
	model  string
}

// NewProvider creates a chat completion provider for the given model.
func NewProvider(apiKey, model string) *Provider {
	return &Provider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Stream sends one model turn and returns its event stream.
func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	messages := buildMessages(req)

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			var schema map[string]any
			if err := json.Unmarshal(tool.Schema, &schema); err != nil {
				return nil, fmt.Errorf("parse schema for tool %s: %w", tool.Name, err)
			}
			tools = append(tools, openai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  shared.FunctionParameters(schema),
				},
			})
		}
		params.Tools = tools
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	events := make(chan llm.StreamEvent, 100)
	go handleStream(stream, events)

	return events, nil
}

// buildMessages converts the transcript to the SDK message union. Tool
// calls without a matching result are dropped so an aborted run cannot
// produce a transcript the API rejects.
func buildMessages(req *llm.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	responded := make(map[string]bool)
	for _, msg := range req.Messages {
		for _, tr := range msg.ToolResults {
			responded[tr.ToolCallID] = true
		}
	}

	var result []openai.ChatCompletionMessageParamUnion

	if req.System != "" {
		result = append(result, openai.SystemMessage(req.System))
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case chat.RoleUser:
			result = append(result, openai.UserMessage(msg.Content))

		case chat.RoleAssistant:
			var toolCalls []openai.ChatCompletionMessageToolCallParam
			for _, tc := range msg.ToolCalls {
				if !responded[tc.ID] {
					slog.Debug("dropping unanswered tool call from transcript", "id", tc.ID)
					continue
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				})
			}

			if msg.Content == "" && len(toolCalls) == 0 {
				continue
			}
			assistantMsg := openai.ChatCompletionAssistantMessageParam{
				Role: "assistant",
			}
			if msg.Content != "" {
				assistantMsg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			if len(toolCalls) > 0 {
				assistantMsg.ToolCalls = toolCalls
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &assistantMsg,
			})

		case chat.RoleTool:
			for _, tr := range msg.ToolResults {
				result = append(result, openai.ToolMessage(tr.Content, tr.ToolCallID))
			}

		case chat.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		}
	}

	return result
}

// handleStream pumps SDK chunks into port-level events.
func handleStream(stream *ssestream.Stream[openai.ChatCompletionChunk], events chan<- llm.StreamEvent) {
	defer close(events)

	acc := openai.ChatCompletionAccumulator{}

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tool, ok := acc.JustFinishedToolCall(); ok {
			events <- llm.StreamEvent{
				Type: llm.EventTypeToolCall,
				ToolCall: &chat.ToolCall{
					ID:   tool.ID,
					Name: tool.Name,
					Args: json.RawMessage(tool.Arguments),
				},
			}
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			events <- llm.StreamEvent{
				Type: llm.EventTypeText,
				Text: chunk.Choices[0].Delta.Content,
			}
		}
	}

	if err := stream.Err(); err != nil {
		events <- llm.StreamEvent{Type: llm.EventTypeError, Err: err}
		return
	}

	events <- llm.StreamEvent{Type: llm.EventTypeDone}
}

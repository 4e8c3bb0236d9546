package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	braneotel "github.com/Gladowsky-Labs/brane/internal/adapter/otel"
	"github.com/Gladowsky-Labs/brane/internal/domain/chat"
	"github.com/Gladowsky-Labs/brane/internal/port/broadcast"
	"github.com/Gladowsky-Labs/brane/internal/port/llm"
)

// toolCallGrace bounds tool execution after the request context is
// detached. It caps how long a run can hold its SSE goroutine on a hung
// store or provider call once the request deadline no longer applies.
const toolCallGrace = 30 * time.Second

// Event types streamed to the caller during an agent run.
const (
	RunEventText       = "text"
	RunEventToolCall   = "tool_call"
	RunEventToolResult = "tool_result"
	RunEventDone       = "done"
	RunEventError      = "error"
)

// RunEvent is one item of an agent run's output stream. The HTTP adapter
// forwards these as SSE; the ws hub mirrors the tool activity.
type RunEvent struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
	Tool       string `json:"tool,omitempty"`
	Args       string `json:"args,omitempty"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// AgentService drives bounded multi-step agent runs: one loop instance
// per inbound chat request, no shared mutable state between runs other
// than the durable store.
type AgentService struct {
	provider llm.Provider
	hub      broadcast.Broadcaster
	metrics  *braneotel.Metrics
	maxSteps int
}

// NewAgentService creates a new AgentService. hub and metrics may be nil.
func NewAgentService(provider llm.Provider, hub broadcast.Broadcaster, metrics *braneotel.Metrics, maxSteps int) *AgentService {
	return &AgentService{
		provider: provider,
		hub:      hub,
		metrics:  metrics,
		maxSteps: maxSteps,
	}
}

// Run executes one conversation turn to completion and closes events when
// done. History must already be validated. Each step streams one model
// turn; tool calls from a turn run concurrently and their results are
// merged back in request order before the next turn. The loop stops when
// a turn requests no tools, when the step budget is exhausted, or when
// ctx is cancelled. On cancellation, in-flight tool calls still complete
// on a detached context so no partial writes are left behind, but no
// further step is scheduled.
func (s *AgentService) Run(ctx context.Context, ts *Toolset, history []chat.Message, events chan<- RunEvent) {
	defer close(events)

	runID := uuid.NewString()
	start := time.Now()
	ctx, span := braneotel.StartRunSpan(ctx, runID)
	defer span.End()

	if s.metrics != nil {
		s.metrics.RunsStarted.Add(ctx, 1)
	}
	s.broadcast(ctx, "run.started", map[string]string{"run_id": runID})

	msgs := make([]chat.Message, len(history))
	copy(msgs, history)

	system := SystemPrompt(time.Now())
	defs := ts.Definitions()

	var lastText string
	steps := 0

	for steps < s.maxSteps {
		if err := ctx.Err(); err != nil {
			slog.Info("agent run cancelled", "run_id", runID, "steps", steps)
			events <- RunEvent{Type: RunEventError, Error: "run cancelled: " + err.Error()}
			s.finish(ctx, runID, steps, start, false)
			return
		}
		steps++

		turnText, calls, err := s.step(ctx, system, msgs, defs, events)
		if err != nil {
			events <- RunEvent{Type: RunEventError, Error: err.Error()}
			s.finish(ctx, runID, steps, start, false)
			return
		}

		if turnText != "" {
			lastText = turnText
		}

		if len(calls) == 0 {
			events <- RunEvent{Type: RunEventDone, Text: lastText}
			s.finish(ctx, runID, steps, start, true)
			return
		}

		results := s.dispatch(ctx, ts, calls, events)
		msgs = append(msgs,
			chat.AssistantMessage(turnText, calls),
			chat.ToolMessage(results),
		)
	}

	// Step budget exhausted: stop regardless of what the model wants and
	// return whatever text is available.
	slog.Warn("agent run hit step budget", "run_id", runID, "max_steps", s.maxSteps)
	events <- RunEvent{Type: RunEventDone, Text: lastText}
	s.finish(ctx, runID, steps, start, true)
}

// step streams a single model turn, forwarding text deltas and collecting
// tool calls in the order the model issued them.
func (s *AgentService) step(ctx context.Context, system string, msgs []chat.Message, defs []llm.ToolDefinition, events chan<- RunEvent) (string, []chat.ToolCall, error) {
	stream, err := s.provider.Stream(ctx, &llm.ChatRequest{
		System:   system,
		Messages: msgs,
		Tools:    defs,
	})
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var calls []chat.ToolCall
	var streamErr error

	for ev := range stream {
		switch ev.Type {
		case llm.EventTypeText:
			text.WriteString(ev.Text)
			events <- RunEvent{Type: RunEventText, Text: ev.Text}
		case llm.EventTypeToolCall:
			call := *ev.ToolCall
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			calls = append(calls, call)
			events <- RunEvent{Type: RunEventToolCall, ToolCallID: call.ID, Tool: call.Name, Args: string(call.Args)}
		case llm.EventTypeError:
			streamErr = ev.Err
		case llm.EventTypeDone:
		}
	}

	return text.String(), calls, streamErr
}

// dispatch executes one turn's tool calls concurrently and returns their
// results positionally, so the transcript order matches the order the
// model requested them. The calls run on a context detached from request
// cancellation, since an abort must not interrupt a write mid-flight, but
// rebounded by toolCallGrace so a hung call cannot block the run forever.
func (s *AgentService) dispatch(ctx context.Context, ts *Toolset, calls []chat.ToolCall, events chan<- RunEvent) []chat.ToolResult {
	toolCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), toolCallGrace)
	defer cancel()
	results := make([]chat.ToolResult, len(calls))

	g := new(errgroup.Group)
	for i, call := range calls {
		g.Go(func() error {
			callCtx, span := braneotel.StartToolCallSpan(toolCtx, call.ID, call.Name)
			defer span.End()

			results[i] = ts.Execute(callCtx, call)
			if s.metrics != nil {
				s.metrics.ToolCalls.Add(callCtx, 1)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		events <- RunEvent{Type: RunEventToolResult, ToolCallID: res.ToolCallID, Tool: res.Name, Result: res.Content}
		s.broadcast(ctx, "tool.executed", map[string]string{"tool": res.Name})
	}
	return results
}

func (s *AgentService) finish(ctx context.Context, runID string, steps int, start time.Time, ok bool) {
	if s.metrics != nil {
		if ok {
			s.metrics.RunsCompleted.Add(ctx, 1)
		} else {
			s.metrics.RunsFailed.Add(ctx, 1)
		}
		s.metrics.RunSteps.Record(ctx, int64(steps))
		s.metrics.RunDuration.Record(ctx, time.Since(start).Seconds())
	}
	s.broadcast(ctx, "run.finished", map[string]any{"run_id": runID, "steps": steps, "ok": ok})
}

func (s *AgentService) broadcast(ctx context.Context, eventType string, payload any) {
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, eventType, payload)
	}
}

// Package toolloop drives the tool-calling conversation loop: when a
// completion comes back with pending tool calls, it executes them, appends
// the results to the history, and resubmits until the model stops asking or
// the round cap is hit.
package toolloop

import (
	"context"
	"log/slog"

	"github.com/minechat/llmbridge/providers/ai"
)

// MaxRounds caps tool-calling round-trips per conversation turn. On
// exhaustion the last result is returned as-is; a model stuck requesting
// tools yields a degraded answer, not an error.
const MaxRounds = 10

// Completer is the orchestrator-shaped dependency the loop resubmits through.
type Completer interface {
	Complete(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (*ai.CompletionResult, error)
}

// Executor runs one tool call and reports the outcome. Failures are returned
// inside the ExecutionResult, not as an error; the loop feeds them back to
// the model as data.
type Executor interface {
	Execute(ctx context.Context, call ai.ToolCall) ai.ExecutionResult
}

// Runner executes the tool-call loop over a Completer and an Executor.
type Runner struct {
	completer Completer
	executor  Executor
	maxRounds int
	logger    *slog.Logger
}

// New returns a Runner with the standard round cap.
func New(completer Completer, executor Executor) *Runner {
	return &Runner{
		completer: completer,
		executor:  executor,
		maxRounds: MaxRounds,
		logger:    slog.Default(),
	}
}

// WithMaxRounds overrides the round cap. Values below 1 are clamped to 1.
func (r *Runner) WithMaxRounds(maxRounds int) *Runner {
	if maxRounds < 1 {
		maxRounds = 1
	}
	r.maxRounds = maxRounds
	return r
}

// WithLogger replaces the default logger.
func (r *Runner) WithLogger(logger *slog.Logger) *Runner {
	r.logger = logger
	return r
}

// Run performs the initial completion and then up to maxRounds-1 further
// round-trips while the model keeps requesting tools. Tool-calling rounds
// never stream; the caller's Stream option applies only to a final response
// it issues itself. The returned messages slice is the full extended history
// including assistant tool-call turns and tool results, so callers can
// persist or replay the transcript.
func (r *Runner) Run(ctx context.Context, provider ai.ProviderID, request ai.ChatRequest) (*ai.CompletionResult, []ai.Message, error) {
	messages := make([]ai.Message, len(request.Messages))
	copy(messages, request.Messages)

	request.Options.Stream = false

	var result *ai.CompletionResult

	for round := 0; round < r.maxRounds; round++ {
		request.Messages = messages

		var err error
		result, err = r.completer.Complete(ctx, provider, request)
		if err != nil {
			return nil, messages, err
		}

		pending := result.PendingToolCalls()
		if len(pending) == 0 {
			return result, messages, nil
		}

		// On the final round the pending calls are left unexecuted and the
		// result goes back as-is, a degraded but valid answer.
		if round == r.maxRounds-1 {
			break
		}

		r.logger.DebugContext(ctx, "executing tool round",
			"round", round+1,
			"pending_calls", len(pending))

		choice := result.First()
		messages = append(messages, ai.Message{
			Role:      ai.RoleAssistant,
			Text:      choice.Message.Text,
			ToolCalls: pending,
		})

		// Calls execute sequentially; results keep the original call order so
		// the appended history is deterministic.
		results := make([]ai.ToolResult, 0, len(pending))
		for _, call := range pending {
			execution := r.executor.Execute(ctx, call)
			if !execution.Success {
				r.logger.WarnContext(ctx, "tool execution failed",
					"tool", call.Function.Name,
					"error", execution.Error)
			}
			results = append(results, ai.ToolResult{
				CallID:  call.ID,
				Name:    call.Function.Name,
				Content: execution.Content(),
				IsError: !execution.Success,
			})
		}

		messages = append(messages, ai.Message{
			Role:        ai.RoleTool,
			ToolResults: results,
		})
	}

	r.logger.WarnContext(ctx, "tool loop round cap reached", "rounds", r.maxRounds)
	return result, messages, nil
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/soyeahso/certagent/internal/domain"
	"github.com/soyeahso/certagent/internal/llm"
	"github.com/soyeahso/certagent/internal/logging"
)

// DefaultMaxToolIterations limits how many LLM rounds a single query may use.
const DefaultMaxToolIterations = 5

// DefaultSource is the session source used by Run and RunStream.
const DefaultSource = "cli"

// ErrNoResponse is returned when the LLM produced nothing usable, including
// when it spent every round on tool calls without answering.
var ErrNoResponse = errors.New("no response from LLM")

// finalRoundNote is appended to the system prompt on the last allowed round.
// Tool calls made in that round are not executed.
const finalRoundNote = "\n\n## Final Round\n\n" +
	"The tool budget for this question is used up. Do not call any more tools. " +
	"Answer now using the tool results already in the conversation, and say so if they are not enough."

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	AgentID           string
	AgentName         string
	Model             string
	Fallbacks         []string
	MaxTokens         int
	Temperature       *float64
	ExtraPrompt       string
	MaxToolIterations int
	Source            string
}

// RunResult is the outcome of answering one query.
type RunResult struct {
	Response  string        `json:"response"`
	SessionID string        `json:"sessionId"`
	Model     string        `json:"model,omitempty"`
	Usage     llm.Usage     `json:"usage"`
	Rounds    int           `json:"rounds"`
	ToolCalls int           `json:"toolCalls"`
	Duration  time.Duration `json:"duration"`
}

// StreamCallback is called for each streaming event during RunStream execution.
// Event types:
//   - "delta": Incremental text output (Content field contains the text)
//   - "tool_start": Tool execution is beginning (Content describes the tool)
//   - "tool_result": Tool completed successfully (Content describes completion)
//   - "tool_error": Tool execution failed (Content describes the error)
type StreamCallback func(event llm.StreamEvent)

// Runner is the agent orchestration loop.
// It takes a user query, calls the LLM, executes any requested tools and
// feeds their results back until the LLM answers without a tool call.
type Runner struct {
	cfg      RunnerConfig
	client   *FailoverClient
	sessions SessionStore
	tools    *ToolRegistry
	log      *logging.Logger
}

// NewRunner creates an agent runner.
func NewRunner(
	cfg RunnerConfig,
	registry *llm.Registry,
	sessions SessionStore,
	tools *ToolRegistry,
	log *logging.Logger,
) *Runner {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = DefaultMaxToolIterations
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	fc := NewFailoverClient(registry, cfg.Model, cfg.Fallbacks, log)
	return &Runner{
		cfg:      cfg,
		client:   fc,
		sessions: sessions,
		tools:    tools,
		log:      log.Sub("agent." + cfg.AgentID),
	}
}

// Run answers query in the runner's default session.
func (r *Runner) Run(ctx context.Context, query string) (*RunResult, error) {
	return r.RunSession(ctx, domain.SessionKey{Source: r.cfg.Source}, query)
}

// RunStream answers query in the runner's default session, forwarding
// output to cb as it arrives.
func (r *Runner) RunStream(ctx context.Context, query string, cb StreamCallback) (*RunResult, error) {
	return r.RunSessionStream(ctx, domain.SessionKey{Source: r.cfg.Source}, query, cb)
}

// completeFunc performs one LLM round.
type completeFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)

// RunSession answers query within the session identified by key.
func (r *Runner) RunSession(ctx context.Context, key domain.SessionKey, query string) (*RunResult, error) {
	complete := func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		resp, err := r.client.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("LLM completion: %w", err)
		}
		return resp, nil
	}
	return r.run(ctx, key, query, complete, nil)
}

// RunSessionStream is RunSession with streaming output.
func (r *Runner) RunSessionStream(ctx context.Context, key domain.SessionKey, query string, cb StreamCallback) (*RunResult, error) {
	complete := func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		req.Stream = true
		return r.streamRound(ctx, req, cb)
	}
	return r.run(ctx, key, query, complete, cb)
}

func (r *Runner) run(ctx context.Context, key domain.SessionKey, query string, complete completeFunc, cb StreamCallback) (*RunResult, error) {
	start := time.Now()

	session := r.sessions.GetOrCreate(key, r.cfg.AgentID)

	r.log.Info().
		Str("sessionId", session.ID).
		Str("source", key.Source).
		Int("historyLen", len(session.Messages)).
		Bool("stream", cb != nil).
		Msg("processing query")

	r.sessions.Append(session.ID, domain.Message{
		Role:      llm.RoleUser,
		Content:   query,
		Timestamp: time.Now(),
	})

	system := BuildSystemPrompt(PromptConfig{
		AgentName:   r.cfg.AgentName,
		AgentID:     r.cfg.AgentID,
		Model:       r.cfg.Model,
		Tools:       r.tools.Definitions(),
		Source:      key.Source,
		UserName:    key.UserID,
		ExtraPrompt: r.cfg.ExtraPrompt,
	})

	var (
		finalResp *llm.CompletionResponse
		usage     llm.Usage
		rounds    int
		toolCalls int
	)

	for i := 0; i < r.cfg.MaxToolIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lastRound := i == r.cfg.MaxToolIterations-1
		roundSystem := system
		if lastRound {
			roundSystem += finalRoundNote
		}

		req := llm.CompletionRequest{
			Model:       r.cfg.Model,
			System:      roundSystem,
			Messages:    r.sessions.History(session.ID),
			MaxTokens:   r.cfg.MaxTokens,
			Temperature: r.cfg.Temperature,
		}

		resp, err := complete(ctx, req)
		if err != nil {
			return nil, err
		}
		rounds++
		usage = usage.Add(resp.Usage)
		finalResp = resp

		calls := parseToolCalls(resp.Content)
		if len(calls) == 0 {
			break
		}
		if lastRound {
			r.log.Warn().
				Int("round", rounds).
				Int("toolCalls", len(calls)).
				Msg("tool budget exhausted, ignoring tool calls")
			break
		}
		toolCalls += len(calls)

		r.log.Info().Int("round", rounds).Int("toolCalls", len(calls)).Msg("executing tool calls")

		if cb != nil {
			cb(llm.StreamEvent{
				Type:    "tool_start",
				Content: fmt.Sprintf("Executing %d tool(s)...", len(calls)),
			})
		}

		r.sessions.Append(session.ID, domain.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			Timestamp: time.Now(),
		})

		results := r.executeToolCalls(ctx, calls)

		if cb != nil {
			for _, tr := range results {
				if tr.Err != nil {
					cb(llm.StreamEvent{
						Type:    "tool_error",
						Content: fmt.Sprintf("Tool %s failed: %v", tr.Tool, tr.Err),
					})
				} else {
					cb(llm.StreamEvent{
						Type:    "tool_result",
						Content: fmt.Sprintf("Tool %s completed", tr.Tool),
					})
				}
			}
		}

		r.sessions.Append(session.ID, domain.Message{
			Role:      llm.RoleUser,
			Content:   formatToolResults(results),
			Timestamp: time.Now(),
		})
	}

	if finalResp == nil {
		return nil, ErrNoResponse
	}

	cleanResponse := stripToolCalls(finalResp.Content, r.log)
	if strings.TrimSpace(cleanResponse) == "" {
		r.log.Warn().
			Str("sessionId", session.ID).
			Int("rounds", rounds).
			Int("toolCalls", toolCalls).
			Msg("no answer produced")
		return nil, fmt.Errorf("%w after %d round(s)", ErrNoResponse, rounds)
	}

	r.sessions.Append(session.ID, domain.Message{
		Role:      llm.RoleAssistant,
		Content:   cleanResponse,
		Timestamp: time.Now(),
	})

	r.log.Info().
		Str("sessionId", session.ID).
		Str("model", finalResp.Model).
		Int("rounds", rounds).
		Int("toolCalls", toolCalls).
		Int("inputTokens", usage.InputTokens).
		Int("outputTokens", usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("response generated")

	return &RunResult{
		Response:  cleanResponse,
		SessionID: session.ID,
		Model:     finalResp.Model,
		Usage:     usage,
		Rounds:    rounds,
		ToolCalls: toolCalls,
		Duration:  time.Since(start),
	}, nil
}

// streamRound runs one streaming LLM round, forwarding deltas to cb and
// returning the assembled response.
func (r *Runner) streamRound(ctx context.Context, req llm.CompletionRequest, cb StreamCallback) (*llm.CompletionResponse, error) {
	ch, err := r.client.Stream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM stream: %w", err)
	}

	var content strings.Builder
	var streamResp *llm.CompletionResponse

	for evt := range ch {
		switch evt.Type {
		case "delta":
			content.WriteString(evt.Content)
			if cb != nil {
				cb(evt)
			}
		case "done":
			if evt.Response != nil {
				streamResp = evt.Response
			}
		case "error":
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("stream error: %s", evt.Error)
		}
	}

	// A stream cut short by cancellation may close without an error event;
	// its partial text is not an answer.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if streamResp == nil {
		return &llm.CompletionResponse{Content: content.String(), Model: req.Model}, nil
	}
	if streamResp.Content == "" {
		streamResp.Content = content.String()
	}
	return streamResp, nil
}

// toolCall is a parsed tool invocation from the LLM response.
type toolCall struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// toolResult holds the output from executing a tool.
type toolResult struct {
	Tool   string
	Output string
	Err    error
}

// toolCallRe matches ```tool_call\n{...}\n``` blocks in LLM output.
var toolCallRe = regexp.MustCompile("(?s)```tool_call\\s*\n(\\{.*?\\})\n\\s*```")

// xmlFuncCallRe matches <function_calls>...</function_calls> XML blocks in LLM output.
var xmlFuncCallRe = regexp.MustCompile(`(?s)<function_calls>.*?</function_calls>`)

// xmlBlockLevelRe matches self-contained XML blocks that some models emit
// for tool use instead of the fenced form.
var xmlBlockLevelRe = regexp.MustCompile(`(?s)(?:` +
	`<invoke\b[^>]*>.*?</invoke>` +
	`|<tool_call\b[^>]*>.*?</tool_call>` +
	`|<tool_use\b[^>]*>.*?</tool_use>` +
	`)`)

// xmlInlineTagRe matches parameter tags that can appear inline within text.
var xmlInlineTagRe = regexp.MustCompile(`(?s)<parameter\b[^>]*>.*?</parameter>`)

// codeFenceRe matches fenced code block opening/closing markers on their own line.
// Only the markers are stripped; content between fences is preserved.
var codeFenceRe = regexp.MustCompile(`(?m)^\s*` + "```" + `\w*\s*$`)

// whitespaceLineRe matches lines containing only horizontal whitespace.
var whitespaceLineRe = regexp.MustCompile(`(?m)^[ \t]+$`)

// blankLineCollapseRe collapses 3+ consecutive newlines to a single blank line.
var blankLineCollapseRe = regexp.MustCompile(`\n{3,}`)

// parseToolCalls extracts tool_call blocks from LLM response text.
func parseToolCalls(text string) []toolCall {
	matches := toolCallRe.FindAllStringSubmatch(text, -1)
	var calls []toolCall
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		var tc toolCall
		if err := json.Unmarshal([]byte(match[1]), &tc); err != nil {
			continue
		}
		if tc.Tool != "" {
			calls = append(calls, tc)
		}
	}
	return calls
}

// executeToolCalls runs each tool and returns results.
func (r *Runner) executeToolCalls(ctx context.Context, calls []toolCall) []toolResult {
	var results []toolResult
	for _, tc := range calls {
		tool, ok := r.tools.Get(tc.Tool)
		if !ok {
			results = append(results, toolResult{
				Tool: tc.Tool,
				Err:  fmt.Errorf("unknown tool: %s", tc.Tool),
			})
			continue
		}

		input := string(tc.Input)
		if input == "" {
			input = "{}"
		}

		r.log.Debug().Str("tool", tc.Tool).Str("input", input).Msg("executing tool")
		output, err := tool.Execute(ctx, input)
		if err != nil {
			r.log.Warn().Str("tool", tc.Tool).Err(err).Msg("tool failed")
		}
		results = append(results, toolResult{
			Tool:   tc.Tool,
			Output: output,
			Err:    err,
		})
	}
	return results
}

// formatToolResults renders tool execution results for the LLM.
func formatToolResults(results []toolResult) string {
	var b strings.Builder
	b.WriteString("Tool execution results:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "### %s\n", r.Tool)
		if r.Err != nil {
			fmt.Fprintf(&b, "Error: %s\n", r.Err)
		} else {
			b.WriteString(r.Output)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// stripToolCalls removes tool_call code blocks and XML function_calls blocks
// from the response, leaving surrounding text. Stripped XML blocks are logged
// so they remain visible for debugging.
func stripToolCalls(text string, log *logging.Logger) string {
	// Block-level elements become a paragraph break; inline tags a space.
	cleaned := toolCallRe.ReplaceAllString(text, "\n\n")

	xmlMatches := xmlFuncCallRe.FindAllString(cleaned, -1)
	if len(xmlMatches) > 0 && log != nil {
		for _, m := range xmlMatches {
			log.Info().Str("xml", m).Msg("stripped XML function_calls from LLM response")
		}
	}
	cleaned = xmlFuncCallRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = xmlBlockLevelRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = xmlInlineTagRe.ReplaceAllString(cleaned, " ")

	// Terminal output does not render markdown, so fence markers are dropped
	// and the fenced content kept.
	cleaned = codeFenceRe.ReplaceAllString(cleaned, "")

	cleaned = whitespaceLineRe.ReplaceAllString(cleaned, "")
	cleaned = blankLineCollapseRe.ReplaceAllString(cleaned, "\n\n")

	return strings.TrimSpace(cleaned)
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/certagent/internal/domain"
	"github.com/soyeahso/certagent/internal/llm"
	"github.com/soyeahso/certagent/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func testRegistry(mock llm.Client) *llm.Registry {
	reg := llm.NewRegistry(silentLog())
	reg.Register("mock", mock)
	reg.SetFallback("mock")
	return reg
}

func toolCallBlock(tool, input string) string {
	return fmt.Sprintf("```tool_call\n{\"tool\": %q, \"input\": %s}\n```", tool, input)
}

// --- Runner tests ---

func TestRunnerComplete(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			assert.NotEmpty(t, req.System)
			require.NotEmpty(t, req.Messages)
			last := req.Messages[len(req.Messages)-1]
			assert.Equal(t, "user", last.Role)
			assert.Equal(t, "How many points is CKA worth?", last.Content)

			return &llm.CompletionResponse{
				Content: "It is worth 2.5 points.",
				Model:   "mock-model",
				Usage:   llm.Usage{InputTokens: 20, OutputTokens: 10},
			}, nil
		},
	}

	runner := NewRunner(
		RunnerConfig{AgentID: "test-agent", AgentName: "Test Bot", Model: "mock"},
		testRegistry(mock),
		NewMemorySessionStore(),
		NewToolRegistry(),
		silentLog(),
	)

	result, err := runner.Run(context.Background(), "How many points is CKA worth?")
	require.NoError(t, err)
	assert.Equal(t, "It is worth 2.5 points.", result.Response)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 20, result.Usage.InputTokens)
	assert.Equal(t, 1, result.Rounds)
	assert.Zero(t, result.ToolCalls)
}

func TestRunnerExecutesToolsAndFeedsResultsBack(t *testing.T) {
	call := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			call++
			switch call {
			case 1:
				return &llm.CompletionResponse{Content: "Checking.\n\n" + toolCallBlock("get_certification_points", `{"cert_name": "AWS Solutions Architect Professional"}`)}, nil
			default:
				last := req.Messages[len(req.Messages)-1]
				assert.Equal(t, "user", last.Role)
				assert.Contains(t, last.Content, "Tool execution results:")
				assert.Contains(t, last.Content, "### get_certification_points")
				assert.Contains(t, last.Content, `"points":10`)
				return &llm.CompletionResponse{Content: "That certification is worth 10 points."}, nil
			}
		},
	}

	var executed []string
	tools := NewToolRegistry()
	tools.Register(&mockTool{
		name: "get_certification_points",
		handler: func(ctx context.Context, input string) (string, error) {
			executed = append(executed, input)
			return `{"category":"Any Professional or Specialty","points":10}`, nil
		},
	})

	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock"}, testRegistry(mock), NewMemorySessionStore(), tools, silentLog())

	result, err := runner.Run(context.Background(), "How many points for AWS SA Pro?")
	require.NoError(t, err)
	assert.Equal(t, "That certification is worth 10 points.", result.Response)
	assert.Equal(t, 2, result.Rounds)
	assert.Equal(t, 1, result.ToolCalls)
	require.Len(t, executed, 1)
	assert.JSONEq(t, `{"cert_name": "AWS Solutions Architect Professional"}`, executed[0])
}

// countingTool records how many times it ran.
func countingTool(name string, runs *int) *mockTool {
	return &mockTool{
		name:   name,
		schema: `{"type":"object"}`,
		handler: func(ctx context.Context, input string) (string, error) {
			*runs++
			return `{"category":"Anything Else","points":2.5}`, nil
		},
	}
}

func TestRunnerStopsAfterMaxIterations(t *testing.T) {
	runs := 0
	var systems []string
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			systems = append(systems, req.System)
			return &llm.CompletionResponse{Content: "Still looking.\n\n" + toolCallBlock("get_certification_points", `{}`)}, nil
		},
	}
	tools := NewToolRegistry()
	tools.Register(countingTool("get_certification_points", &runs))

	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock"}, testRegistry(mock), NewMemorySessionStore(), tools, silentLog())

	result, err := runner.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	require.Len(t, systems, DefaultMaxToolIterations)
	assert.Equal(t, DefaultMaxToolIterations, result.Rounds)
	assert.Equal(t, "Still looking.", result.Response)

	// Tools requested in the final round are never run.
	assert.Equal(t, DefaultMaxToolIterations-1, runs)
	assert.Equal(t, DefaultMaxToolIterations-1, result.ToolCalls)

	for _, s := range systems[:len(systems)-1] {
		assert.NotContains(t, s, "Final Round")
	}
	assert.Contains(t, systems[len(systems)-1], "Do not call any more tools")
}

func TestRunnerToolOnlyRepliesExhaustBudget(t *testing.T) {
	runs := 0
	calls := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			return &llm.CompletionResponse{Content: toolCallBlock("parse_credly_badge", `{"url":"https://www.credly.com/badges/x"}`)}, nil
		},
	}
	tools := NewToolRegistry()
	tools.Register(countingTool("parse_credly_badge", &runs))

	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock", MaxToolIterations: 2}, testRegistry(mock), NewMemorySessionStore(), tools, silentLog())

	result, err := runner.Run(context.Background(), "Is this badge expired?")
	require.ErrorIs(t, err, ErrNoResponse)
	assert.Nil(t, result)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, runs, "the last round's tool call must not run")
}

func TestRunnerAnswersInFinalRound(t *testing.T) {
	runs := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if strings.Contains(req.System, "Final Round") {
				last := req.Messages[len(req.Messages)-1]
				assert.Contains(t, last.Content, "Anything Else")
				return &llm.CompletionResponse{Content: "It falls under Anything Else: 2.5 points."}, nil
			}
			return &llm.CompletionResponse{Content: toolCallBlock("get_certification_points", `{"cert_name":"Scrum Master"}`)}, nil
		},
	}
	tools := NewToolRegistry()
	tools.Register(countingTool("get_certification_points", &runs))

	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock", MaxToolIterations: 3}, testRegistry(mock), NewMemorySessionStore(), tools, silentLog())

	result, err := runner.Run(context.Background(), "Points for Scrum Master?")
	require.NoError(t, err)
	assert.Equal(t, "It falls under Anything Else: 2.5 points.", result.Response)
	assert.Equal(t, 3, result.Rounds)
	assert.Equal(t, 2, runs)
}

func TestRunnerEmptyAnswerIsError(t *testing.T) {
	mock := &llm.MockClient{ProviderName: "mock", CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "  \n"}, nil
	}}
	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock"}, testRegistry(mock), NewMemorySessionStore(), NewToolRegistry(), silentLog())

	_, err := runner.Run(context.Background(), "q")
	require.ErrorIs(t, err, ErrNoResponse)
}

func TestRunnerUnknownToolReportedToLLM(t *testing.T) {
	call := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			call++
			if call == 1 {
				return &llm.CompletionResponse{Content: toolCallBlock("web_search", `{"q": "x"}`)}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "Error: unknown tool: web_search")
			return &llm.CompletionResponse{Content: "I cannot search the web."}, nil
		},
	}

	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock"}, testRegistry(mock), NewMemorySessionStore(), NewToolRegistry(), silentLog())

	result, err := runner.Run(context.Background(), "search")
	require.NoError(t, err)
	assert.Equal(t, "I cannot search the web.", result.Response)
}

func TestRunnerToolErrorReportedToLLM(t *testing.T) {
	call := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			call++
			if call == 1 {
				return &llm.CompletionResponse{Content: toolCallBlock("broken", `{}`)}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "Error: boom")
			return &llm.CompletionResponse{Content: "The tool failed."}, nil
		},
	}
	tools := NewToolRegistry()
	tools.Register(&mockTool{name: "broken", handler: func(context.Context, string) (string, error) {
		return "", errors.New("boom")
	}})

	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock"}, testRegistry(mock), NewMemorySessionStore(), tools, silentLog())

	result, err := runner.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "The tool failed.", result.Response)
}

func TestRunnerMissingToolInputDefaultsToEmptyObject(t *testing.T) {
	call := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			call++
			if call == 1 {
				return &llm.CompletionResponse{Content: "```tool_call\n{\"tool\": \"echo\"}\n```"}, nil
			}
			return &llm.CompletionResponse{Content: "done"}, nil
		},
	}
	var got string
	tools := NewToolRegistry()
	tools.Register(&mockTool{name: "echo", handler: func(_ context.Context, in string) (string, error) {
		got = in
		return in, nil
	}})

	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock"}, testRegistry(mock), NewMemorySessionStore(), tools, silentLog())
	_, err := runner.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "{}", got)
}

func TestRunnerSessionPersistence(t *testing.T) {
	callCount := 0
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			if callCount == 2 {
				assert.GreaterOrEqual(t, len(req.Messages), 3, "second call should include history")
			}
			return &llm.CompletionResponse{
				Content: fmt.Sprintf("Response %d", callCount),
			}, nil
		},
	}

	runner := NewRunner(
		RunnerConfig{AgentID: "test-agent", AgentName: "Test Bot", Model: "mock"},
		testRegistry(mock),
		NewMemorySessionStore(),
		NewToolRegistry(),
		silentLog(),
	)

	r1, err := runner.Run(context.Background(), "First question")
	require.NoError(t, err)
	assert.Equal(t, "Response 1", r1.Response)

	r2, err := runner.Run(context.Background(), "Follow up question")
	require.NoError(t, err)
	assert.Equal(t, "Response 2", r2.Response)
	assert.Equal(t, r1.SessionID, r2.SessionID, "should reuse session")
	assert.Equal(t, 2, callCount)
}

func TestRunnerSeparateSessionsPerKey(t *testing.T) {
	runner := NewRunner(
		RunnerConfig{AgentID: "a", Model: "mock"},
		testRegistry(&llm.MockClient{ProviderName: "mock"}),
		NewMemorySessionStore(),
		NewToolRegistry(),
		silentLog(),
	)

	r1, err := runner.RunSession(context.Background(), domain.SessionKey{Source: "cli", UserID: "alice"}, "q")
	require.NoError(t, err)
	r2, err := runner.RunSession(context.Background(), domain.SessionKey{Source: "cli", UserID: "bob"}, "q")
	require.NoError(t, err)
	assert.NotEqual(t, r1.SessionID, r2.SessionID)
}

func TestRunnerLLMError(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, &llm.ProviderError{Provider: "mock", Message: "service down", Code: 400}
		},
	}

	runner := NewRunner(
		RunnerConfig{AgentID: "test", AgentName: "Test", Model: "mock"},
		testRegistry(mock),
		NewMemorySessionStore(),
		NewToolRegistry(),
		silentLog(),
	)

	_, err := runner.Run(context.Background(), "hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LLM completion")
}

func TestRunnerCanceledContext(t *testing.T) {
	called := false
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			called = true
			return &llm.CompletionResponse{Content: "x"}, nil
		},
	}
	runner := NewRunner(RunnerConfig{AgentID: "a", Model: "mock"}, testRegistry(mock), NewMemorySessionStore(), NewToolRegistry(), silentLog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// --- SessionStore tests ---

func TestMemorySessionStoreGetOrCreate(t *testing.T) {
	store := NewMemorySessionStore()
	key := domain.SessionKey{Source: "cli", UserID: "user1"}

	s1 := store.GetOrCreate(key, "agent-1")
	assert.NotEmpty(t, s1.ID)
	assert.Equal(t, "agent-1", s1.AgentID)

	s2 := store.GetOrCreate(key, "agent-1")
	assert.Equal(t, s1.ID, s2.ID)

	s3 := store.GetOrCreate(domain.SessionKey{Source: "cli", UserID: "user2"}, "agent-1")
	assert.NotEqual(t, s1.ID, s3.ID)
}

func TestMemorySessionStoreAppendAndHistory(t *testing.T) {
	store := NewMemorySessionStore()
	session := store.GetOrCreate(domain.SessionKey{Source: "cli"}, "agent-1")

	store.Append(session.ID, domain.Message{Role: "user", Content: "hi", Timestamp: time.Now()})
	store.Append(session.ID, domain.Message{Role: "assistant", Content: "hello!", Timestamp: time.Now()})

	history := store.History(session.ID)
	assert.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)

	assert.Nil(t, store.History("missing"))
}

func TestMemorySessionStoreList(t *testing.T) {
	store := NewMemorySessionStore()

	store.GetOrCreate(domain.SessionKey{Source: "a"}, "agent")
	store.GetOrCreate(domain.SessionKey{Source: "b"}, "agent")

	assert.Len(t, store.List(), 2)
}

func TestMemorySessionStoreGet(t *testing.T) {
	store := NewMemorySessionStore()
	session := store.GetOrCreate(domain.SessionKey{Source: "cli"}, "agent-1")

	got := store.Get(session.ID)
	require.NotNil(t, got)
	assert.Equal(t, session.ID, got.ID)

	assert.Nil(t, store.Get("nonexistent"))
}

func TestMemorySessionStoreReset(t *testing.T) {
	store := NewMemorySessionStore()
	key := domain.SessionKey{Source: "cli"}
	s1 := store.GetOrCreate(key, "agent")

	store.Reset(key)
	assert.Nil(t, store.Get(s1.ID))

	s2 := store.GetOrCreate(key, "agent")
	assert.NotEqual(t, s1.ID, s2.ID)

	store.Reset(domain.SessionKey{Source: "never-seen"})
	assert.Len(t, store.List(), 1)
}

func TestMemorySessionStoreHistoryWindow(t *testing.T) {
	store := NewMemorySessionStore()
	store.MaxHistory = 2
	session := store.GetOrCreate(domain.SessionKey{Source: "cli"}, "agent")

	for _, c := range []string{"AWS Solutions Architect Associate?", "5 points.", "And CKA?"} {
		store.Append(session.ID, domain.Message{Role: "user", Content: c})
	}

	history := store.History(session.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "5 points.", history[0].Content)
	assert.Equal(t, "And CKA?", history[1].Content)
	assert.Len(t, store.Get(session.ID).Messages, 3)
	assert.False(t, store.Get(session.ID).Messages[0].Timestamp.IsZero())
}

// --- SystemPrompt tests ---

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(PromptConfig{
		AgentName:   "TestBot",
		AgentID:     "test-agent",
		Source:      "cli",
		UserName:    "Alice",
		ExtraPrompt: "Always answer in one sentence.",
		Tools: []ToolDef{
			{Name: "get_certification_points", Description: "Look up points", InputSchema: `{"type":"object"}`},
		},
	})

	assert.Contains(t, prompt, "TestBot")
	assert.Contains(t, prompt, "Source: cli")
	assert.Contains(t, prompt, "User: Alice")
	assert.Contains(t, prompt, "one sentence")
	assert.Contains(t, prompt, "Current date:")
	assert.Contains(t, prompt, "### get_certification_points")
	assert.Contains(t, prompt, "```tool_call")
}

func TestBuildSystemPromptMinimal(t *testing.T) {
	prompt := BuildSystemPrompt(PromptConfig{})
	assert.Contains(t, prompt, "certagent")
	assert.Contains(t, prompt, "Guidelines:")
	assert.NotContains(t, prompt, "## Available Tools")
}

// --- ToolRegistry tests ---

type echoTool struct{}

func (e *echoTool) Name() string        { return "echo" }
func (e *echoTool) Description() string { return "Echoes input" }
func (e *echoTool) InputSchema() string {
	return `{"type":"object","properties":{"text":{"type":"string"}}}`
}
func (e *echoTool) Execute(ctx context.Context, input string) (string, error) {
	return input, nil
}

func TestToolRegistry(t *testing.T) {
	reg := NewToolRegistry()
	reg.Register(&echoTool{})
	reg.Register(&mockTool{name: "alpha"})

	tool, ok := reg.Get("echo")
	assert.True(t, ok)
	assert.Equal(t, "echo", tool.Name())

	_, ok = reg.Get("nonexistent")
	assert.False(t, ok)

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "echo", defs[1].Name)
	assert.Equal(t, []string{"alpha", "echo"}, reg.Names())
}

// --- Failover tests ---

func TestFailoverSuccess(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "ok"}, nil
		},
	}

	fc := NewFailoverClient(testRegistry(mock), "mock", nil, silentLog())

	resp, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestFailoverTriesFallback(t *testing.T) {
	var callOrder []string

	primary := &llm.MockClient{
		ProviderName: "primary",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callOrder = append(callOrder, "primary:"+req.Model)
			return nil, &llm.ProviderError{Provider: "primary", Message: "rate limited", Code: 429}
		},
	}
	fallback := &llm.MockClient{
		ProviderName: "fallback",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callOrder = append(callOrder, "fallback:"+req.Model)
			return &llm.CompletionResponse{Content: "fallback response"}, nil
		},
	}

	reg := llm.NewRegistry(silentLog())
	reg.Register("primary", primary)
	reg.Register("fallback", fallback)
	reg.Alias("openai/gpt-oss-20b", "primary")
	reg.Alias("llama-3.1-8b-instant", "fallback")

	fc := NewFailoverClient(reg, "openai/gpt-oss-20b", []string{"llama-3.1-8b-instant"}, silentLog())

	resp, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "fallback response", resp.Content)
	assert.Equal(t, []string{"primary:openai/gpt-oss-20b", "fallback:llama-3.1-8b-instant"}, callOrder)
}

func TestFailoverNonRetryableStops(t *testing.T) {
	callCount := 0

	primary := &llm.MockClient{
		ProviderName: "primary",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			return nil, fmt.Errorf("non-retryable error")
		},
	}
	fallback := &llm.MockClient{
		ProviderName: "fallback",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			callCount++
			return &llm.CompletionResponse{Content: "should not reach"}, nil
		},
	}

	reg := llm.NewRegistry(silentLog())
	reg.Register("primary", primary)
	reg.Register("fallback", fallback)

	fc := NewFailoverClient(reg, "primary", []string{"fallback"}, silentLog())

	_, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	assert.Error(t, err)
	assert.Equal(t, 1, callCount, "should not try fallback on non-retryable error")
}

func TestFailoverStreamFallsBack(t *testing.T) {
	primary := &llm.MockClient{
		ProviderName: "primary",
		StreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
			return nil, &llm.ProviderError{Provider: "primary", Message: "unavailable", Code: 503}
		},
	}
	reg := llm.NewRegistry(silentLog())
	reg.Register("primary", primary)
	fallback := &llm.MockClient{ProviderName: "fallback", Replies: []string{"Anything Else is worth 2.5 points."}}
	reg.Register("fallback", fallback)

	fc := NewFailoverClient(reg, "primary", []string{"fallback"}, silentLog())
	ch, err := fc.Stream(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)

	var sb strings.Builder
	for evt := range ch {
		sb.WriteString(evt.Content)
	}
	assert.Equal(t, "Anything Else is worth 2.5 points.", sb.String())
	assert.Len(t, fallback.Requests(), 1)
}

func TestFailoverAllUnresolvable(t *testing.T) {
	fc := NewFailoverClient(llm.NewRegistry(silentLog()), "x", []string{"y"}, silentLog())
	_, err := fc.Complete(context.Background(), llm.CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&llm.ProviderError{Code: 429}))
	assert.True(t, isRetryable(&llm.ProviderError{Code: 529}))
	assert.True(t, isRetryable(&llm.ProviderError{Code: 503}))
	assert.True(t, isRetryable(fmt.Errorf("server overloaded")))
	assert.True(t, isRetryable(fmt.Errorf("rate limit exceeded")))
	assert.False(t, isRetryable(&llm.ProviderError{Code: 400}))
	assert.False(t, isRetryable(fmt.Errorf("invalid input")))
	assert.False(t, isRetryable(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.False(t, isRetryable(nil))
}

// --- parseToolCalls / stripToolCalls tests ---

func TestParseToolCalls(t *testing.T) {
	text := "First.\n\n" +
		toolCallBlock("get_certification_points", `{"cert_name": "CKA"}`) +
		"\n\nThen.\n\n" +
		toolCallBlock("parse_credly_badge", `{"url": "https://www.credly.com/badges/abc/public_url"}`) +
		"\n\n```tool_call\n{not json}\n```"

	calls := parseToolCalls(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "get_certification_points", calls[0].Tool)
	assert.JSONEq(t, `{"cert_name": "CKA"}`, string(calls[0].Input))
	assert.Equal(t, "parse_credly_badge", calls[1].Tool)
}

func TestParseToolCallsNone(t *testing.T) {
	assert.Empty(t, parseToolCalls("Just an answer."))
	assert.Empty(t, parseToolCalls("```tool_call\n{\"input\": {}}\n```"))
}

func TestFormatToolResults(t *testing.T) {
	out := formatToolResults([]toolResult{
		{Tool: "a", Output: `{"ok":true}`},
		{Tool: "b", Err: errors.New("nope")},
	})
	assert.Equal(t, "Tool execution results:\n\n### a\n{\"ok\":true}\n\n### b\nError: nope\n\n", out)
}

func TestStripNoChanges(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		input := "Just a normal response with no tool calls."
		assert.Equal(t, input, stripToolCalls(input, nil))
	})
	t.Run("markdown preserved", func(t *testing.T) {
		input := "The badge is **not expired** and worth `10` points."
		assert.Equal(t, input, stripToolCalls(input, nil))
	})
}

func TestStripToolCallCodeBlock(t *testing.T) {
	input := "Here is my answer.\n\n" + toolCallBlock("echo", `{"text": "hi"}`) + "\n\nDone."
	assert.Equal(t, "Here is my answer.\n\nDone.", stripToolCalls(input, nil))
}

func TestStripFenceMarkersKeepsContent(t *testing.T) {
	input := "Example:\n\n```json\n{\"key\": \"value\"}\n```\n\nDone."
	assert.Equal(t, "Example:\n\n{\"key\": \"value\"}\n\nDone.", stripToolCalls(input, nil))
}

func TestStripXMLFunctionCalls(t *testing.T) {
	t.Run("single block", func(t *testing.T) {
		input := "I'll look that up.\n\n<function_calls>\n<invoke name=\"lookup\">\n" +
			"<parameter name=\"cert\">CKA</parameter>\n</invoke>\n</function_calls>\n\nIt is worth 2.5 points."
		assert.Equal(t, "I'll look that up.\n\nIt is worth 2.5 points.", stripToolCalls(input, silentLog()))
	})
	t.Run("multiple blocks", func(t *testing.T) {
		input := "Checking.\n\n<function_calls>\n<invoke name=\"a\"/>\n</function_calls>\n\n" +
			"Middle.\n\n<function_calls>\n<invoke name=\"b\"/>\n</function_calls>\n\nFinal."
		assert.Equal(t, "Checking.\n\nMiddle.\n\nFinal.", stripToolCalls(input, nil))
	})
	t.Run("mixed with tool_call", func(t *testing.T) {
		input := "Intro.\n\n```tool_call\n{\"tool\": \"echo\"}\n```\n\n<function_calls>\n<invoke name=\"x\"/>\n</function_calls>\n\nEnd."
		assert.Equal(t, "Intro.\n\nEnd.", stripToolCalls(input, nil))
	})
}

func TestStripParameterTags(t *testing.T) {
	input := "Badge parsed.\n\n<parameter name=\"url\">https://credly.com/x</parameter>\n\nIt expired."
	got := stripToolCalls(input, nil)
	assert.NotContains(t, got, "<parameter")
	assert.Contains(t, got, "Badge parsed.")
	assert.Contains(t, got, "It expired.")
}

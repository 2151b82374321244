package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	Name       string // provider name reported by Name() and in errors
	APIKey     string
	BaseURL    string
	Model      string // used when a request carries no model
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint,
// such as Groq's.
type OpenAIClient struct {
	name  string
	model string
	sdk   openai.Client
}

// NewOpenAIClient creates a client from cfg.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &OpenAIClient{
		name:  name,
		model: cfg.Model,
		sdk:   openai.NewClient(opts...),
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return c.name }

// Complete sends a non-streaming chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.sdk.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return nil, c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: c.name, Message: "response contained no choices"}
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Model:      resp.Model,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		Duration: time.Since(start),
	}, nil
}

// Stream sends a streaming chat completion request. Deltas are forwarded as
// they arrive; the channel ends with a single "done" or "error" event. When
// ctx is cancelled the terminal event is an error carrying ctx.Err(), handed
// over only if the reader is still receiving.
func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	stream := c.sdk.Chat.Completions.NewStreaming(ctx, c.params(req))
	if err := stream.Err(); err != nil {
		return nil, c.wrapError(err)
	}

	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		defer stream.Close()

		start := time.Now()
		acc := openai.ChatCompletionAccumulator{}
		var content strings.Builder

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			content.WriteString(delta)
			select {
			case ch <- StreamEvent{Type: "delta", Content: delta}:
			case <-ctx.Done():
				finishStream(ctx, ch, StreamEvent{Type: "error", Error: ctx.Err().Error()})
				return
			}
		}

		if err := ctx.Err(); err != nil {
			finishStream(ctx, ch, StreamEvent{Type: "error", Error: err.Error()})
			return
		}
		if err := stream.Err(); err != nil {
			finishStream(ctx, ch, StreamEvent{Type: "error", Error: c.wrapError(err).Error()})
			return
		}

		final := &CompletionResponse{
			Content:  content.String(),
			Model:    acc.Model,
			Duration: time.Since(start),
			Usage: Usage{
				InputTokens:  int(acc.Usage.PromptTokens),
				OutputTokens: int(acc.Usage.CompletionTokens),
			},
		}
		if final.Model == "" {
			final.Model = c.modelFor(req)
		}
		if len(acc.Choices) > 0 {
			final.StopReason = string(acc.Choices[0].FinishReason)
		}

		finishStream(ctx, ch, StreamEvent{Type: "done", Response: final})
	}()
	return ch, nil
}

// finishStream delivers the terminal event. Once ctx is done it only hands
// the event to a reader that is already waiting, so an abandoned channel
// never blocks the producer.
func finishStream(ctx context.Context, ch chan<- StreamEvent, evt StreamEvent) {
	select {
	case ch <- evt:
		return
	case <-ctx.Done():
	}
	if evt.Type == "done" {
		evt = StreamEvent{Type: "error", Error: ctx.Err().Error()}
	}
	select {
	case ch <- evt:
	default:
	}
}

func (c *OpenAIClient) modelFor(req CompletionRequest) string {
	// The registry routes provider names and aliases here too; only a real
	// model id is forwarded to the API.
	if req.Model != "" && req.Model != c.name {
		return req.Model
	}
	return c.model
}

func (c *OpenAIClient) params(req CompletionRequest) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.modelFor(req)),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		p.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		p.Temperature = openai.Float(*req.Temperature)
	}
	return p
}

// wrapError converts SDK API errors into a ProviderError so failover can
// inspect the status code.
func (c *OpenAIClient) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = err.Error()
		}
		return &ProviderError{Provider: c.name, Message: msg, Code: apiErr.StatusCode, Err: err}
	}
	return &ProviderError{Provider: c.name, Message: err.Error(), Err: err}
}

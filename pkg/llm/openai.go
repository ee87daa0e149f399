package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig points an OpenAI client at any chat-completions compatible
// endpoint.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAI streams chat completions with the openai-go SDK. Reasoning models
// served behind compatible endpoints send their thinking trace as a
// reasoning_content delta field, which the SDK leaves in the raw JSON.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI returns a Streamer for config.
func NewOpenAI(config OpenAIConfig, opts ...option.RequestOption) (*OpenAI, error) {
	if config.Model == "" {
		return nil, errors.New("llm model is required")
	}

	reqOpts := []option.RequestOption{}
	if config.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(config.APIKey))
	}
	if config.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(config.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  config.Model,
	}, nil
}

func (o *OpenAI) Stream(ctx context.Context, req Request, fn func(Fragment) error) error {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.System),
	}
	if req.User != "" {
		msgs = append(msgs, openai.UserMessage(req.User))
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: msgs,
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		frag, ok := splitDelta(chunk.Choices[0].Delta.RawJSON())
		if !ok {
			continue
		}
		if err := fn(frag); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("streaming completion: %w", err)
	}
	return nil
}

type rawDelta struct {
	ReasoningContent *string `json:"reasoning_content"`
	Content          *string `json:"content"`
}

// splitDelta classifies one choice delta. A reasoning_content field wins over
// content; a delta carrying neither (role-only, tool calls) yields nothing.
func splitDelta(raw string) (Fragment, bool) {
	if raw == "" {
		return Fragment{}, false
	}

	var d rawDelta
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Fragment{}, false
	}

	switch {
	case d.ReasoningContent != nil:
		return Fragment{Reasoning: true, Text: *d.ReasoningContent}, true
	case d.Content != nil:
		return Fragment{Text: *d.Content}, true
	default:
		return Fragment{}, false
	}
}

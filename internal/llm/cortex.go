package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"snowdemo/cli/internal/errors"

	"github.com/kaptinlin/jsonrepair"
)

// DefaultModel is the Cortex model used when none is configured.
const DefaultModel = "claude-3-7-sonnet"

// Completer runs Cortex COMPLETE over a warehouse session.
type Completer interface {
	UseWarehouse(ctx context.Context, name string) error
	Complete(ctx context.Context, model string, messages, options []byte) (string, error)
}

// AcquireFunc hands out a session for one model call. release is called when
// the call finishes and must be safe to call on reused sessions.
type AcquireFunc func(ctx context.Context) (c Completer, release func(), err error)

// Cortex is a ChatModel backed by SNOWFLAKE.CORTEX.COMPLETE.
type Cortex struct {
	Model   string
	Options Options
	// Warehouse is activated before every call; empty keeps the session's warehouse.
	Warehouse string
	Acquire   AcquireFunc
	Logger    *slog.Logger
}

// Usage is the token accounting returned with a completion.
type Usage struct {
	CompletionTokens int `json:"completion_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is a decoded Cortex response.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

type cortexResponse struct {
	Choices []struct {
		Messages string `json:"messages"`
	} `json:"choices"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// DecodeCompletion parses the value returned by COMPLETE. With options the
// function returns a JSON document; a bare string is accepted as the content.
func DecodeCompletion(raw string) (Completion, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Completion{Content: raw}, nil
	}
	var resp cortexResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		// VARIANT text occasionally arrives truncated or with stray commas.
		repaired, repairErr := jsonrepair.JSONRepair(trimmed)
		if repairErr != nil {
			return Completion{}, fmt.Errorf("decode completion: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &resp); err != nil {
			return Completion{}, fmt.Errorf("decode repaired completion: %w", err)
		}
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("decode completion: no choices in response")
	}
	return Completion{
		Content: resp.Choices[0].Messages,
		Model:   resp.Model,
		Usage:   resp.Usage,
	}, nil
}

func (c *Cortex) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Cortex) model() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

// Generate sends the conversation to Cortex and returns the assistant reply.
func (c *Cortex) Generate(ctx context.Context, messages []Message) (Message, error) {
	if c.Acquire == nil {
		return Message{}, errors.New(errors.ConfigInvalid, "cortex model has no session source")
	}
	msgs, err := json.Marshal(messages)
	if err != nil {
		return Message{}, err
	}
	opts, err := json.Marshal(c.Options)
	if err != nil {
		return Message{}, err
	}

	sess, release, err := c.Acquire(ctx)
	if err != nil {
		return Message{}, err
	}
	defer release()

	if c.Warehouse != "" {
		if err := sess.UseWarehouse(ctx, c.Warehouse); err != nil {
			return Message{}, err
		}
	}

	start := time.Now()
	raw, err := sess.Complete(ctx, c.model(), msgs, opts)
	if err != nil {
		return Message{}, errors.Wrap(errors.RemoteCallFailed, "cortex complete", err)
	}
	out, err := DecodeCompletion(raw)
	if err != nil {
		return Message{}, errors.Wrap(errors.RemoteCallFailed, "cortex complete", err)
	}
	c.logger().Debug("cortex completion",
		"model", c.model(),
		"messages", len(messages),
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"elapsed", time.Since(start))

	return Assistant(out.Content), nil
}

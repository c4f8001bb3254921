package generator

import (
	"context"
	"time"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// LLMFunc adapts a plain function to LLMClient.
type LLMFunc func(ctx context.Context, prompt Prompt) (string, error)

func (f LLMFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// complete issues one bounded call and normalises the completion text.
// A zero timeout leaves the caller's deadline in charge.
func complete(ctx context.Context, llm LLMClient, timeout time.Duration, prompt Prompt) (string, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	raw, err := llm.Complete(callCtx, prompt)
	if err != nil {
		return "", err
	}
	return PostProcess(raw)
}

package agent

import (
	"context"
	"fmt"

	"github.com/BaSui01/agentmesh/llm"
	"github.com/BaSui01/agentmesh/types"
	"go.uber.org/zap"
)

// LLMAgent 将一个 llm.Provider 包装为 Agent：能力描述即系统提示词。
type LLMAgent struct {
	name        string
	description string
	provider    llm.Provider
	model       string
	logger      *zap.Logger
}

// LLMAgentConfig LLM agent 配置
type LLMAgentConfig struct {
	// Name agent 唯一名称
	Name string
	// Description 能力描述，同时作为系统提示词
	Description string
	// Model 模型名（可选，由 Provider 解释）
	Model string
}

// NewLLMAgent 创建由外部推理服务驱动的 agent。
func NewLLMAgent(cfg LLMAgentConfig, provider llm.Provider, logger *zap.Logger) (*LLMAgent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMAgent{
		name:        cfg.Name,
		description: cfg.Description,
		provider:    provider,
		model:       cfg.Model,
		logger:      logger.With(zap.String("component", "llm_agent"), zap.String("agent", cfg.Name)),
	}, nil
}

func (a *LLMAgent) Name() string        { return a.name }
func (a *LLMAgent) Description() string { return a.description }

// Respond 调用 Provider 并返回首个文本回复。
func (a *LLMAgent) Respond(ctx context.Context, input string) (string, error) {
	req := &llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.description},
			{Role: llm.RoleUser, Content: input},
		},
	}
	if traceID, ok := types.TraceID(ctx); ok {
		req.TraceID = traceID
	}

	resp, err := a.provider.Completion(ctx, req)
	if err != nil {
		a.logger.Error("completion failed", zap.Error(err))
		return "", fmt.Errorf("agent %s: %w", a.name, err)
	}

	a.logger.Debug("completion ok",
		zap.String("provider", a.provider.Name()),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Content, nil
}

package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nerdneilsfield/go-page-translator/pkg/providers"
)

// Config OpenAI 提供商配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// defaultModel 默认模型
// 客户端库的常量表没有收录该模型，直接用字面量
const defaultModel = "gpt-4o-mini"

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultBaseConfig(),
		Model:       defaultModel,
		Temperature: 0.3,
		MaxTokens:   4096,
	}
}

// systemPromptTemplate 翻译系统提示词
// 索引标记必须原样保留，流水线靠它把结果映射回各个片段
const systemPromptTemplate = `You are a professional translator. Translate the user's text from %s to %s.
Rules:
- Preserve any [N] index markers exactly as they appear, one per fragment.
- Do not merge, split, or reorder fragments.
- Output only the translation, no explanations.`

// Provider 基于 OpenAI Chat Completions 的翻译提供商
type Provider struct {
	config Config
	client *openai.Client
}

// New 创建 OpenAI 提供商
func New(config Config) *Provider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.APIEndpoint != "" {
		clientConfig.BaseURL = config.APIEndpoint
	}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Translate 执行一次翻译调用
func (p *Provider) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", providers.NewError(providers.ErrCodeInvalid, "empty text provided", nil)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.Model,
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPromptTemplate,
					p.config.SourceLang, p.config.TargetLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", providers.NewError(providers.ErrCodeServerError, "no completion choices returned", nil)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Name 返回提供商名称
func (p *Provider) Name() string {
	return "openai"
}

// classifyError 把 OpenAI API 错误映射到提供商错误分类
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return providers.NewError(providers.ErrCodeRateLimit, "rate limited by API", err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return providers.NewError(providers.ErrCodeAuth, "authentication failed", err)
		case http.StatusBadRequest:
			return providers.NewError(providers.ErrCodeInvalid, "invalid request", err)
		default:
			if apiErr.HTTPStatusCode >= 500 {
				return providers.NewError(providers.ErrCodeServerError, "API server error", err)
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return providers.NewError(providers.ErrCodeTimeout, "translation request timed out", err)
	}

	return providers.NewError(providers.ErrCodeUnavailable, "translation request failed", err)
}

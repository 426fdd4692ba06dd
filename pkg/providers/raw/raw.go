package raw

import (
	"context"
)

// Provider 原样返回输入的翻译提供商，用于调试和预演模式
type Provider struct{}

// New 创建原样提供商
func New() *Provider {
	return &Provider{}
}

// Translate 原样返回输入
func (p *Provider) Translate(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

// Name 返回提供商名称
func (p *Provider) Name() string {
	return "raw"
}

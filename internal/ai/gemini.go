package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient 基于 google.golang.org/genai 的补全客户端
type GeminiClient struct {
	client *genai.Client
	model  string
}

// GeminiConfig 配置
type GeminiConfig struct {
	APIKey string
	Model  string
}

// NewGeminiClient 创建客户端；未配置 API Key 时返回未配置的客户端而非错误
func NewGeminiClient(ctx context.Context, cfg *GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	g := &GeminiClient{model: cfg.Model}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	g.client = client
	return g, nil
}

// Complete 发送补全请求
func (g *GeminiClient) Complete(ctx context.Context, in CompletionRequest) (string, error) {
	if !g.IsConfigured() {
		return "", ErrNotConfigured
	}
	in = in.withDefaults(g.model)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(in.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(*in.Temperature)),
		MaxOutputTokens:   int32(in.MaxTokens),
	}

	result, err := g.client.Models.GenerateContent(ctx, in.Model, genai.Text(in.User), config)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", &CompletionError{Kind: KindUnknown, Err: fmt.Errorf("无响应内容")}
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return "", &CompletionError{Kind: KindUnknown, Err: fmt.Errorf("响应内容为空")}
	}

	slog.Debug("Gemini API 调用成功", "model", in.Model)
	return content, nil
}

// IsConfigured 检查是否已配置
func (g *GeminiClient) IsConfigured() bool {
	return g != nil && g.client != nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &CompletionError{Kind: classifyStatus(apiErr.Code, apiErr.Status+" "+apiErr.Message), Status: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &CompletionError{Kind: classifyStatus(apiErrPtr.Code, apiErrPtr.Status+" "+apiErrPtr.Message), Status: apiErrPtr.Code, Err: err}
	}
	return wrapTransportError(err)
}

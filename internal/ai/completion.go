package ai

import "context"

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.8
)

// CompletionRequest 一次文本补全请求
// Model/MaxTokens 为零值、Temperature 为 nil 时使用客户端默认值；Temperature 指向 0 表示确定性输出
type CompletionRequest struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Completer 补全服务的最小契约
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	IsConfigured() bool
}

func (r CompletionRequest) withDefaults(model string) CompletionRequest {
	if r.Model == "" {
		r.Model = model
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = defaultMaxTokens
	}
	if r.Temperature == nil {
		r.Temperature = Ptr(defaultTemperature)
	}
	return r
}

// Ptr 返回 v 的指针，用于设置可选请求参数
func Ptr[T any](v T) *T {
	return &v
}

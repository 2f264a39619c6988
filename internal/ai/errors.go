package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrorKind 补全失败的分类
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindQuota     ErrorKind = "quota"
	KindNetwork   ErrorKind = "network"
	KindUnknown   ErrorKind = "unknown"
)

// ErrNotConfigured API Key 未配置
var ErrNotConfigured = &CompletionError{Kind: KindAuth, Err: errors.New("补全服务未配置 API Key")}

// CompletionError 已分类的补全错误
type CompletionError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *CompletionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status != 0 {
		return fmt.Sprintf("补全服务错误 (%s, HTTP %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("补全服务错误 (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Hint 面向用户的重试提示
func (e *CompletionError) Hint() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindAuth:
		return "Invalid API key. Please check your settings."
	case KindRateLimit:
		return "Rate limit reached. Please wait a moment and try again."
	case KindQuota:
		return "Insufficient credits. Please check your API account."
	case KindNetwork:
		return "Network error. Please check your connection and base URL."
	default:
		return "An unexpected error occurred while generating content."
	}
}

// KindOf 返回任意错误的分类，未分类错误归为 unknown
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if isNetworkError(err) {
		return KindNetwork
	}
	return KindUnknown
}

// classifyStatus 根据 HTTP 状态码与响应体归类
func classifyStatus(status int, body string) ErrorKind {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusPaymentRequired:
		return KindQuota
	case status == http.StatusTooManyRequests:
		// OpenAI 兼容接口额度耗尽同样返回 429
		if strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "exhausted") {
			return KindQuota
		}
		return KindRateLimit
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		return KindNetwork
	default:
		return KindUnknown
	}
}

func newStatusError(status int, body string) *CompletionError {
	return &CompletionError{
		Kind:   classifyStatus(status, body),
		Status: status,
		Err:    errors.New(truncate(body, 300)),
	}
}

func wrapTransportError(err error) *CompletionError {
	kind := KindUnknown
	if isNetworkError(err) {
		kind = KindNetwork
	}
	return &CompletionError{Kind: kind, Err: err}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yuqie6/LearnFeed/internal/bootstrap"
)

type LocalServer struct {
	srv     *http.Server
	baseURL string
}

type Options struct {
	ListenAddr string // 例如 "127.0.0.1:7381"，端口为 0 时随机分配
	UIDir      string // 前端构建产物目录，为空时查找可执行文件同级 frontend/dist
}

// Start 启动本地 HTTP API；ctx 结束时自动关闭
func Start(ctx context.Context, rt *bootstrap.AgentRuntime, opts Options) (*LocalServer, error) {
	if rt == nil || rt.Core == nil {
		return nil, fmt.Errorf("rt 不能为空")
	}
	addr := strings.TrimSpace(opts.ListenAddr)
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	tcp, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		_ = ln.Close()
		return nil, fmt.Errorf("非 TCP 监听地址: %s", ln.Addr())
	}

	mux := NewHandler(rt.Core, rt.StartedAt)
	if dir, ok := findUIDir(opts.UIDir); ok {
		mux.Handle("/", uiHandler(dir))
		slog.Info("UI 资源来源", "dir", dir)
	}

	ls := &LocalServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", tcp.Port),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ls.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := ls.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server 异常退出", "error", err)
		}
	}()

	slog.Info("本地 HTTP 已启动", "base_url", ls.baseURL)
	return ls, nil
}

func (s *LocalServer) BaseURL() string {
	if s == nil {
		return ""
	}
	return s.baseURL
}

func (s *LocalServer) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// NewHandler 构建 JSON 路由与事件流；不包含静态 UI
func NewHandler(core *bootstrap.Core, startedAt time.Time) *http.ServeMux {
	api := newAPI(core, startedAt)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", api.handleHealth)
	mux.HandleFunc("/api/events", api.handleEvents)
	api.registerJSONRoutes(mux)
	return mux
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         !a.core.SafeMode(),
		"name":       a.core.Cfg.App.Name,
		"version":    a.core.Cfg.App.Version,
		"started_at": a.startTime.Format(time.RFC3339),
	})
}

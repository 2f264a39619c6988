package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/yuqie6/LearnFeed/internal/bootstrap"
	"github.com/yuqie6/LearnFeed/internal/httpapi"
	"github.com/yuqie6/LearnFeed/internal/pkg/buildinfo"
	"github.com/yuqie6/LearnFeed/internal/pkg/config"
)

func main() {
	var (
		cfgPath    string
		listenAddr string
	)
	flag.StringVar(&cfgPath, "config", "", "配置文件路径（默认可执行文件同级 config/config.yaml）")
	flag.StringVar(&listenAddr, "listen", "", "监听地址，覆盖 http.listen_addr")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 首次启动写出默认配置，便于 UI 设置页直接编辑
	if cfgPath == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			cfgPath = p
			if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
				if def, err := config.Load(cfgPath); err == nil {
					_ = config.WriteFile(cfgPath, def)
				}
			}
		}
	}

	rt, err := bootstrap.NewAgentRuntime(ctx, cfgPath)
	if err != nil {
		slog.Error("启动 Agent 失败", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	slog.Info("LearnFeed Agent 启动中...", "name", rt.Cfg.App.Name, "version", buildinfo.String())
	if err := rt.RequireAIConfigured(); err != nil {
		slog.Warn("AI 未配置，刷新与问答不可用", "error", err)
	}

	if listenAddr == "" {
		listenAddr = rt.Cfg.HTTP.ListenAddr
	}
	server, err := httpapi.Start(ctx, rt, httpapi.Options{ListenAddr: listenAddr})
	if err != nil {
		slog.Error("启动本地 API 失败", "error", err)
		os.Exit(1)
	}
	slog.Info("LearnFeed Agent 已启动", "url", server.BaseURL())

	<-ctx.Done()
	slog.Info("正在关闭...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = server.Shutdown(shutdownCtx)
	shutdownCancel()
	slog.Info("LearnFeed Agent 已退出")
}

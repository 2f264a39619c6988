package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.BatchSize != 3 || cfg.Feed.Language != "en" || cfg.Feed.PostLength != "medium" {
		t.Fatalf("unexpected feed defaults: %+v", cfg.Feed)
	}
	if cfg.AI.OpenAI.BaseURL != "https://openrouter.ai/api/v1" || cfg.AI.OpenAI.Model != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected ai defaults: %+v", cfg.AI.OpenAI)
	}
	if cfg.Storage.Driver != "sqlite" || !filepath.IsAbs(cfg.Storage.DBPath) {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
}

func TestWriteFileThenLoad_RoundTripsAndExpandsEnv(t *testing.T) {
	t.Setenv("LF_TEST_KEY", "secret")
	path := filepath.Join(t.TempDir(), "config", "config.yaml")

	in := &Config{
		App:     AppConfig{Name: "learnfeed", Version: "1.2.3", LogLevel: "debug"},
		Storage: StorageConfig{Driver: "sqlite", DBPath: ":memory:"},
		AI: AIConfig{
			Provider: "gemini",
			OpenAI:   OpenAIConfig{APIKey: "${LF_TEST_KEY}", BaseURL: "http://x", Model: "m"},
			Gemini:   GeminiConfig{Model: "g"},
		},
		Feed: FeedConfig{BatchSize: 5, Language: "pt-BR", PostLength: "long", MaxConcurrency: 2},
		HTTP: HTTPConfig{ListenAddr: "127.0.0.1:9999"},
	}
	if err := WriteFile(path, in); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.AI.OpenAI.APIKey != "secret" {
		t.Fatalf("api key not expanded: %q", out.AI.OpenAI.APIKey)
	}
	if out.AI.Provider != "gemini" || out.Feed != in.Feed || out.HTTP != in.HTTP || out.Storage.DBPath != ":memory:" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LEARNFEED_FEED_BATCH_SIZE", "7")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feed.BatchSize != 7 {
		t.Fatalf("batch size=%d", cfg.Feed.BatchSize)
	}
}

func TestFeedConfigNormalize(t *testing.T) {
	f := FeedConfig{BatchSize: -1, Language: "fr", PostLength: "huge"}
	f.normalize()
	if f.BatchSize != 3 || f.MaxConcurrency != 3 || f.Language != "en" || f.PostLength != "medium" {
		t.Fatalf("normalize=%+v", f)
	}
}

func TestSetupLogger_WritesFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "logs", "feed.log")
	closer, err := SetupLogger(LoggerOptions{Level: "debug", Path: path, Component: "test"})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	slog.Debug("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("expected log output")
	}
	if ParseLevel("WARN") != slog.LevelWarn || ParseLevel("?") != slog.LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}

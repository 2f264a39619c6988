package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yuqie6/LearnFeed/internal/eventbus"
)

const ssePingInterval = 15 * time.Second

// sseStream 按 text/event-stream 格式写出并立即 flush
type sseStream struct {
	w io.Writer
	f http.Flusher
}

func (s sseStream) send(name string, data []byte) error {
	name = strings.NewReplacer("\n", "", "\r", "").Replace(strings.TrimSpace(name))
	if name == "" {
		name = "message"
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// handleEvents 推送事件总线上的事件；?types=a,b 只订阅指定类型
func (a *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream not supported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	ctx := r.Context()
	events := a.core.Hub.Subscribe(ctx, 32, splitTypes(r.URL.Query().Get("types"))...)
	stream := sseStream{w: w, f: flusher}
	if err := stream.send("ready", []byte("{}")); err != nil {
		return
	}

	ticker := time.NewTicker(ssePingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := stream.send("ping", []byte("{}")); err != nil {
				return
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := stream.send(evt.Type, mustJSON(evt)); err != nil {
				return
			}
		}
	}
}

func splitTypes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func mustJSON(evt eventbus.Event) []byte {
	b, err := json.Marshal(evt)
	if err != nil {
		return []byte(`{"type":"` + evt.Type + `"}`)
	}
	return b
}

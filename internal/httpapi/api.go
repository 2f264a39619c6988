package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuqie6/LearnFeed/internal/ai"
	"github.com/yuqie6/LearnFeed/internal/bootstrap"
	"github.com/yuqie6/LearnFeed/internal/dto"
	"github.com/yuqie6/LearnFeed/internal/eventbus"
	"github.com/yuqie6/LearnFeed/internal/observability"
	"github.com/yuqie6/LearnFeed/internal/pkg/config"
	"github.com/yuqie6/LearnFeed/internal/schema"
	"github.com/yuqie6/LearnFeed/internal/service"
)

type apiServer struct {
	core      *bootstrap.Core
	startTime time.Time
	now       func() time.Time
}

func newAPI(core *bootstrap.Core, startedAt time.Time) *apiServer {
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return &apiServer{
		core:      core,
		startTime: startedAt,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (a *apiServer) registerJSONRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", a.wrapGET(a.getStatus))

	mux.HandleFunc("/api/topics", a.wrapAny(a.topics))
	mux.HandleFunc("/api/topics/update", a.wrapPOST(a.updateTopic))
	mux.HandleFunc("/api/topics/delete", a.wrapPOST(a.deleteTopic))

	mux.HandleFunc("/api/feed", a.wrapGET(a.getFeed))
	mux.HandleFunc("/api/feed/refresh", a.wrapPOST(a.refreshFeed))

	mux.HandleFunc("/api/posts/detail", a.wrapGET(a.getPostDetail))
	mux.HandleFunc("/api/posts/thread", a.wrapGET(a.getPostThread))
	mux.HandleFunc("/api/posts/status", a.wrapGET(a.getPostStatus))
	mux.HandleFunc("/api/posts/like", a.wrapPOST(a.toggleLike))
	mux.HandleFunc("/api/posts/bookmark", a.wrapPOST(a.toggleBookmark))
	mux.HandleFunc("/api/posts/feedback", a.wrapPOST(a.submitFeedback))
	mux.HandleFunc("/api/posts/read", a.wrapPOST(a.markRead))
	mux.HandleFunc("/api/posts/discussion", a.wrapPOST(a.generateDiscussion))
	mux.HandleFunc("/api/posts/ask", a.wrapPOST(a.askQuestion))

	mux.HandleFunc("/api/reviews", a.wrapGET(a.listReviews))
	mux.HandleFunc("/api/reviews/advance", a.wrapPOST(a.advanceReview))
	mux.HandleFunc("/api/reviews/reset", a.wrapPOST(a.resetReview))
	mux.HandleFunc("/api/reviews/skip", a.wrapPOST(a.skipReview))

	mux.HandleFunc("/api/recap/stats", a.wrapGET(a.getWeeklyStats))
	mux.HandleFunc("/api/recap", a.wrapPOST(a.generateRecap))

	mux.HandleFunc("/api/bookmarks", a.wrapGET(a.searchBookmarks))
	mux.HandleFunc("/api/bookmarks/reindex", a.wrapPOST(a.reindexBookmarks))

	mux.HandleFunc("/api/personalities", a.wrapGET(a.listPersonalities))
	mux.HandleFunc("/api/personalities/follow", a.wrapPOST(a.followPersonality))

	mux.HandleFunc("/api/settings", a.wrapAny(a.settings))
}

func (a *apiServer) wrapGET(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapPOST(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if a.core.SafeMode() {
			writeError(w, http.StatusServiceUnavailable, "database is in safe mode")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapAny(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { fn(w, r) }
}

// writeServiceError 将服务层错误映射为 HTTP 状态码
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrTopicNotFound),
		errors.Is(err, service.ErrPersonalityNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, service.ErrInvalidTopicName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ai.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": err.Error(),
			"kind":  string(ai.KindAuth),
			"hint":  "AI is not configured. Add an API key in settings.",
		})
		return
	}

	var ce *ai.CompletionError
	if errors.As(err, &ce) {
		status := http.StatusBadGateway
		switch ce.Kind {
		case ai.KindRateLimit, ai.KindQuota:
			status = http.StatusTooManyRequests
		case ai.KindAuth:
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]any{
			"error": err.Error(),
			"kind":  string(ce.Kind),
			"hint":  ce.Hint(),
		})
		return
	}
	if errors.Is(err, service.ErrBatchFailed) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ========== handlers ==========

func (a *apiServer) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := observability.BuildStatus(r.Context(), a.core, a.startTime)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *apiServer) topics(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listTopics(w, r)
	case http.MethodPost:
		a.wrapPOST(a.createTopic)(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *apiServer) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := a.core.Services.Progress.ListTopics(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.TopicDTO, 0, len(topics))
	for _, t := range topics {
		out = append(out, toTopicDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) createTopic(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTopicRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Difficulty == 0 {
		req.Difficulty = schema.MinDifficulty
	}
	topic, err := a.core.Services.Progress.AddTopic(r.Context(), req.Name, req.Difficulty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTopicDTO(*topic))
}

func (a *apiServer) updateTopic(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTopicRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "id 不能为空")
		return
	}
	ctx := r.Context()
	if req.IsActive != nil {
		if err := a.core.Services.Progress.SetTopicActive(ctx, req.ID, *req.IsActive); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Difficulty != nil {
		if err := a.core.Services.Progress.SetTopicDifficulty(ctx, req.ID, *req.Difficulty); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	topic, err := a.core.Repos.Topic.GetByID(ctx, req.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if topic == nil {
		writeServiceError(w, service.ErrTopicNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTopicDTO(*topic))
}

func (a *apiServer) deleteTopic(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "缺少 id")
		return
	}
	if err := a.core.Services.Progress.RemoveTopic(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) getFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	views, err := a.core.Services.Feed.Page(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.PostDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toPostDTO(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) refreshFeed(w http.ResponseWriter, r *http.Request) {
	res, err := a.core.Services.Feed.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := dto.RefreshResponseDTO{
		Requested: res.Requested,
		Generated: len(res.Posts),
		Posts:     make([]dto.PostDTO, 0, len(res.Posts)),
	}
	for _, p := range res.Posts {
		out.Posts = append(out.Posts, toPostDTO(service.PostView{Post: p}))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) getPostDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	view, replies, err := a.core.Services.Feed.PostDetail(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PostDetailDTO{Post: toPostDTO(*view), Replies: toReplyDTOs(replies)})
}

func (a *apiServer) getPostThread(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	views, err := a.core.Services.Feed.Thread(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.PostDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toPostDTO(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) getPostStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	st, err := a.core.Services.Interactions.PostStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *apiServer) toggleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	active, err := a.core.Services.Interactions.ToggleLike(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToggleResponseDTO{PostID: id, Active: active})
}

func (a *apiServer) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	active, err := a.core.Services.Interactions.ToggleBookmark(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToggleResponseDTO{PostID: id, Active: active})
}

func (a *apiServer) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var req dto.FeedbackRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t := schema.InteractionType(req.Type)
	if _, ok := service.FeedbackDirection(t); !ok {
		writeError(w, http.StatusBadRequest, "type 只能是 too_easy 或 too_hard")
		return
	}
	if err := a.core.Services.Interactions.SubmitFeedback(r.Context(), req.PostID, t); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if err := a.core.Services.Interactions.MarkRead(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) generateDiscussion(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	replies, err := a.core.Services.Generator.GenerateDiscussion(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReplyDTOs(replies))
}

func (a *apiServer) askQuestion(w http.ResponseWriter, r *http.Request) {
	var req dto.AskRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question 不能为空")
		return
	}
	answer, err := a.core.Services.Generator.GenerateUserReply(r.Context(), req.PostID, req.Question)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AskResponseDTO{Answer: answer})
}

func (a *apiServer) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := a.now()
	var (
		items []schema.SpacedRepetitionItem
		err   error
	)
	if r.URL.Query().Get("due") == "1" {
		items, err = a.core.Services.Reviews.DueReviews(ctx, now)
	} else {
		items, err = a.core.Services.Reviews.ListReviews(ctx)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.ReviewDTO, 0, len(items))
	for _, it := range items {
		out = append(out, toReviewDTO(it, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) advanceReview(w http.ResponseWriter, r *http.Request) {
	raw, ok := requireID(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id 必须是正整数")
		return
	}
	if err := a.core.Services.Reviews.AdvanceReview(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) resetReview(w http.ResponseWriter, r *http.Request) {
	a.reviewByPost(w, r, a.core.Services.Reviews.ResetReview)
}

func (a *apiServer) skipReview(w http.ResponseWriter, r *http.Request) {
	a.reviewByPost(w, r, a.core.Services.Reviews.SkipReviewAhead)
}

// reviewByPost 按 post_id（可选 topic，默认取帖子主题）定位复习项
func (a *apiServer) reviewByPost(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, postID, topic string) error) {
	ctx := r.Context()
	postID := strings.TrimSpace(r.URL.Query().Get("post_id"))
	if postID == "" {
		writeError(w, http.StatusBadRequest, "缺少 post_id")
		return
	}
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		post, err := a.core.Repos.Post.GetByID(ctx, postID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if post == nil {
			writeServiceError(w, fmt.Errorf("%w: %s", service.ErrPostNotFound, postID))
			return
		}
		topic = post.Topic
	}
	if err := fn(ctx, postID, topic); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) getWeeklyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.core.Services.Recap.WeeklyStats(r.Context(), a.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeeklyStatsDTO(*stats))
}

func (a *apiServer) generateRecap(w http.ResponseWriter, r *http.Request) {
	recap, err := a.core.Services.Recap.GenerateRecap(r.Context(), a.now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RecapDTO{Stats: toWeeklyStatsDTO(recap.Stats), Summary: recap.Summary})
}

func (a *apiServer) searchBookmarks(w http.ResponseWriter, r *http.Request) {
	posts, err := a.core.Services.Bookmarks.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.PostDTO, 0, len(posts))
	for _, p := range posts {
		v := toPostDTO(service.PostView{Post: p})
		v.Bookmarked = true
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) reindexBookmarks(w http.ResponseWriter, r *http.Request) {
	if err := a.core.Services.Bookmarks.Reindex(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "semantic": a.core.SemanticSearchEnabled()})
}

func (a *apiServer) listPersonalities(w http.ResponseWriter, r *http.Request) {
	views, err := a.core.Services.Progress.ListPersonalities(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.PersonalityDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toPersonalityDTO(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *apiServer) followPersonality(w http.ResponseWriter, r *http.Request) {
	var req dto.FollowRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.core.Services.Progress.FollowPersonality(r.Context(), req.ID, req.Follow); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *apiServer) settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getSettings(w, r)
	case http.MethodPost:
		a.saveSettings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (a *apiServer) configPath() (string, error) {
	if a.core.CfgPath != "" {
		return a.core.CfgPath, nil
	}
	return config.DefaultConfigPath()
}

func (a *apiServer) getSettings(w http.ResponseWriter, r *http.Request) {
	path, err := a.configPath()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cfg, err := config.Load(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(path, cfg))
}

func (a *apiServer) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveSettingsRequestDTO
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := a.configPath()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cur, err := config.Load(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	next := *cur
	restart := applySettings(&next, &req)
	if err := config.WriteFile(path, &next); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// 生成偏好立即生效，不依赖文件监听
	prefs := bootstrap.SettingsFromConfig(&next)
	a.core.Settings.Update(prefs)
	a.core.Hub.Publish(eventbus.Event{Type: eventbus.TypeSettingsUpdated, Data: map[string]any{
		"language":    string(prefs.Language),
		"post_length": string(prefs.PostLength),
		"model":       prefs.Model,
	}})
	writeJSON(w, http.StatusOK, &dto.SaveSettingsResponseDTO{RestartRequired: restart})
}

// applySettings 合并非空字段，返回是否需要重启
func applySettings(next *config.Config, req *dto.SaveSettingsRequestDTO) bool {
	restart := false
	setString := func(dst *string, v *string, needsRestart bool) {
		if v == nil || *dst == *v {
			return
		}
		*dst = *v
		if needsRestart {
			restart = true
		}
	}

	setString(&next.AI.Provider, req.Provider, true)
	setString(&next.AI.OpenAI.APIKey, req.OpenAIAPIKey, true)
	setString(&next.AI.OpenAI.BaseURL, req.OpenAIBaseURL, true)
	setString(&next.AI.OpenAI.Model, req.OpenAIModel, false)
	setString(&next.AI.Gemini.APIKey, req.GeminiAPIKey, true)
	setString(&next.AI.Gemini.Model, req.GeminiModel, false)
	setString(&next.AI.Embedding.APIKey, req.EmbeddingAPIKey, true)
	setString(&next.AI.Embedding.BaseURL, req.EmbeddingBaseURL, true)
	setString(&next.AI.Embedding.Model, req.EmbeddingModel, true)
	setString(&next.Feed.Language, req.Language, false)
	setString(&next.Feed.PostLength, req.PostLength, false)

	if req.BatchSize != nil && *req.BatchSize > 0 && *req.BatchSize != next.Feed.BatchSize {
		next.Feed.BatchSize = *req.BatchSize
		restart = true
	}
	if req.MaxConcurrency != nil && *req.MaxConcurrency > 0 && *req.MaxConcurrency != next.Feed.MaxConcurrency {
		next.Feed.MaxConcurrency = *req.MaxConcurrency
		restart = true
	}
	return restart
}

func requireID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "缺少 id")
		return "", false
	}
	return id, true
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " 必须是非负整数")
	}
	return n, nil
}

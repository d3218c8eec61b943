package router

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reelnotes/internal/models"
	"reelnotes/internal/services"
	"reelnotes/internal/store"
	"reelnotes/internal/testutil"
	"reelnotes/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

const identityHeader = "X-User-ID"

type staticSource struct {
	items []services.ContentItem
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Fetch(ctx context.Context) (*services.FetchResult, error) {
	return &services.FetchResult{Items: s.items, Source: "static"}, nil
}

type testServer struct {
	engine *gin.Engine
	cache  *utils.Cache
}

func newTestServer(t *testing.T, limiter *services.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(testutil.NewDB(t))
	backend, err := utils.NewLRUBackend(100)
	if err != nil {
		t.Fatalf("NewLRUBackend failed: %v", err)
	}
	cache := utils.NewCache(backend)

	now := time.Now()
	src := &staticSource{}
	for i := 0; i < 3; i++ {
		src.items = append(src.items, services.ContentItem{
			Title:       fmt.Sprintf("Movie %d", i),
			URL:         fmt.Sprintf("https://example.com/m/%d", i),
			SourceName:  "TMDB",
			PublishedAt: now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	refresh := services.NewRefreshService(st, cache, services.NewRanker(utils.DefaultConfig, nil, 50),
		map[models.Section]services.ContentSource{models.SectionTrendingMovies: src},
		services.RefreshConfig{TTLs: map[models.Section]time.Duration{models.SectionTrendingMovies: time.Minute}})

	if limiter == nil {
		limiter = services.NewRateLimiter(1000, 100, 100)
	}
	engine := New(Deps{
		Comments:       services.NewCommentService(st, services.CommentConfig{}),
		Content:        services.NewContentService(st, cache, nil, services.ContentConfig{ArticleTTL: time.Hour, CollectionTTL: time.Minute}),
		Likes:          services.NewLikeService(st),
		Refresh:        refresh,
		Cache:          cache,
		Limiter:        limiter,
		SessionSecret:  "test-secret",
		IdentityHeader: identityHeader,
		AdminIDs:       []string{"admin"},
	})
	return &testServer{engine: engine, cache: cache}
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(identityHeader, user)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	expectStatus(t, s.do(t, http.MethodGet, "/healthz", "", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodGet, "/metrics", "", nil), http.StatusOK)
}

func TestCommentFlow(t *testing.T) {
	s := newTestServer(t, nil)

	expectStatus(t, s.do(t, http.MethodPost, "/api/articles", "", map[string]string{"slug": "x", "title": "X"}), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodPost, "/api/articles", "alice", map[string]string{"slug": "x", "title": "X"}), http.StatusCreated)

	w := s.do(t, http.MethodPost, "/api/articles/x/comments", "bob", map[string]string{"content": "Great movie"})
	expectStatus(t, w, http.StatusCreated)
	var root struct {
		ID string `json:"id"`
	}
	decode(t, w, &root)

	w = s.do(t, http.MethodPost, "/api/comments/"+root.ID+"/replies", "alice", map[string]string{"content": "I disagree"})
	expectStatus(t, w, http.StatusCreated)

	w = s.do(t, http.MethodGet, "/api/articles/x/comments", "", nil)
	expectStatus(t, w, http.StatusOK)
	var page struct {
		Comments []struct {
			ID         string `json:"id"`
			ReplyCount int64  `json:"reply_count"`
		} `json:"comments"`
		Total int64 `json:"total"`
	}
	decode(t, w, &page)
	if page.Total != 1 || len(page.Comments) != 1 || page.Comments[0].ReplyCount != 1 {
		t.Errorf("Unexpected page: %+v", page)
	}

	w = s.do(t, http.MethodGet, "/api/comments/"+root.ID+"/replies?nested=true", "", nil)
	expectStatus(t, w, http.StatusOK)

	expectStatus(t, s.do(t, http.MethodPut, "/api/comments/"+root.ID, "alice", map[string]string{"content": "hijack"}), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPost, "/api/articles/x/comments", "bob", map[string]string{"content": ""}), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodGet, "/api/articles/missing/comments", "", nil), http.StatusNotFound)

	w = s.do(t, http.MethodDelete, "/api/comments/"+root.ID, "bob", nil)
	expectStatus(t, w, http.StatusOK)
	var del struct {
		Tombstoned bool `json:"tombstoned"`
	}
	decode(t, w, &del)
	if !del.Tombstoned {
		t.Error("Expected tombstone for comment with replies")
	}

	w = s.do(t, http.MethodGet, "/api/comments/"+root.ID+"/thread", "", nil)
	expectStatus(t, w, http.StatusOK)
	var thread struct {
		Content string        `json:"content"`
		Replies []interface{} `json:"replies"`
	}
	decode(t, w, &thread)
	if thread.Content != models.DeletedCommentContent || len(thread.Replies) != 1 {
		t.Errorf("Unexpected thread: %+v", thread)
	}
}

func TestLikeToggle(t *testing.T) {
	s := newTestServer(t, nil)
	expectStatus(t, s.do(t, http.MethodPost, "/api/articles", "alice", map[string]string{"slug": "liked", "title": "Liked"}), http.StatusCreated)

	w := s.do(t, http.MethodGet, "/api/articles/liked", "", nil)
	var article struct {
		ID        string `json:"id"`
		ViewCount int64  `json:"view_count"`
	}
	decode(t, w, &article)
	if article.ViewCount != 1 {
		t.Errorf("Expected 1 view, got %d", article.ViewCount)
	}

	path := "/api/likes/article/" + article.ID
	expectStatus(t, s.do(t, http.MethodPost, path, "", nil), http.StatusUnauthorized)

	var state services.LikeState
	w = s.do(t, http.MethodPost, path, "bob", nil)
	expectStatus(t, w, http.StatusOK)
	decode(t, w, &state)
	if !state.IsLiked || state.LikeCount != 1 {
		t.Errorf("Unexpected state: %+v", state)
	}

	w = s.do(t, http.MethodGet, path, "", nil)
	decode(t, w, &state)
	if state.IsLiked || state.LikeCount != 1 {
		t.Errorf("Unexpected anonymous state: %+v", state)
	}

	expectStatus(t, s.do(t, http.MethodPost, "/api/likes/story/1", "bob", nil), http.StatusBadRequest)
}

func TestRateLimitedComments(t *testing.T) {
	s := newTestServer(t, services.NewRateLimiter(1, 1, 100))
	expectStatus(t, s.do(t, http.MethodPost, "/api/articles", "alice", map[string]string{"slug": "rl", "title": "RL"}), http.StatusCreated)

	body := map[string]string{"content": "first"}
	expectStatus(t, s.do(t, http.MethodPost, "/api/articles/rl/comments", "bob", body), http.StatusCreated)
	expectStatus(t, s.do(t, http.MethodPost, "/api/articles/rl/comments", "bob", body), http.StatusTooManyRequests)
	expectStatus(t, s.do(t, http.MethodPost, "/api/articles/rl/comments", "carol", body), http.StatusCreated)
}

func TestTrendingAndCacheAdmin(t *testing.T) {
	s := newTestServer(t, nil)

	expectStatus(t, s.do(t, http.MethodPost, "/api/trending/trending_movies/refresh", "bob", nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPost, "/api/trending/trending_movies/refresh", "", nil), http.StatusUnauthorized)

	w := s.do(t, http.MethodPost, "/api/trending/trending_movies/refresh", "admin", nil)
	expectStatus(t, w, http.StatusOK)
	var entry models.RefreshLog
	decode(t, w, &entry)
	if entry.Status != models.RefreshSuccess || entry.RecordsUpdated != 3 {
		t.Errorf("Unexpected refresh log: %+v", entry)
	}

	w = s.do(t, http.MethodGet, "/api/trending/trending_movies?limit=2", "", nil)
	expectStatus(t, w, http.StatusOK)
	var list struct {
		Items []models.RankedItem `json:"items"`
	}
	decode(t, w, &list)
	if len(list.Items) != 2 || list.Items[0].Rank != 1 {
		t.Errorf("Unexpected trending list: %+v", list.Items)
	}
	expectStatus(t, s.do(t, http.MethodGet, "/api/trending/unknown", "", nil), http.StatusNotFound)

	w = s.do(t, http.MethodPut, "/api/trending/trending_movies/"+list.Items[1].ID+"/rank", "admin", map[string]int{"rank": 1})
	expectStatus(t, w, http.StatusOK)

	expectStatus(t, s.do(t, http.MethodGet, "/api/trending/trending_movies/status", "", nil), http.StatusOK)

	s.cache.Set("article:a", "a", time.Minute)
	s.cache.Set("article:b", "b", time.Minute)
	s.cache.Set("top_picks", []string{}, time.Minute)

	expectStatus(t, s.do(t, http.MethodGet, "/api/admin/cache/keys", "bob", nil), http.StatusForbidden)

	w = s.do(t, http.MethodGet, "/api/admin/cache/keys", "admin", nil)
	expectStatus(t, w, http.StatusOK)
	var keys struct {
		Keys  []string `json:"keys"`
		Count int      `json:"count"`
	}
	decode(t, w, &keys)
	if keys.Count != 3 {
		t.Errorf("Expected 3 keys, got %v", keys.Keys)
	}

	expectStatus(t, s.do(t, http.MethodGet, "/api/admin/cache/keys/article:a", "admin", nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodGet, "/api/admin/cache/keys/nope", "admin", nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/admin/cache", "admin", nil), http.StatusBadRequest)

	w = s.do(t, http.MethodDelete, "/api/admin/cache?pattern=article:*", "admin", nil)
	expectStatus(t, w, http.StatusOK)
	var deleted struct {
		Deleted int `json:"deleted"`
	}
	decode(t, w, &deleted)
	if deleted.Deleted != 2 {
		t.Errorf("Expected 2 deleted, got %d", deleted.Deleted)
	}

	expectStatus(t, s.do(t, http.MethodDelete, "/api/admin/cache/all", "admin", nil), http.StatusOK)
	if len(s.cache.ListKeys()) != 0 {
		t.Errorf("Expected empty cache, got %v", s.cache.ListKeys())
	}
}

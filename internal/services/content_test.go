package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"reelnotes/internal/models"
	"reelnotes/internal/utils"
)

type fakeImages struct {
	mu      sync.Mutex
	n       int
	deleted []string
	fail    error
}

func (f *fakeImages) Upload(ctx context.Context, filename string, r io.Reader) (*UploadedImage, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	key := filename + "-" + string(rune('0'+f.n))
	return &UploadedImage{URL: "https://img.test/" + key, Key: key}, nil
}

func (f *fakeImages) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func newContentService(t *testing.T) (*ContentService, *utils.Cache, *fakeImages) {
	t.Helper()
	cache := newTestCache(t)
	images := &fakeImages{}
	svc := NewContentService(newTestStore(t), cache, images, ContentConfig{
		ArticleTTL:       time.Hour,
		CollectionTTL:    time.Minute,
		TopPicksTTL:      time.Minute,
		LatestReviewsTTL: time.Minute,
	})
	return svc, cache, images
}

func TestGetArticleCountsEveryRead(t *testing.T) {
	ctx := context.Background()
	svc, cache, _ := newContentService(t)

	created, err := svc.CreateArticle(ctx, "author", ArticleInput{
		Slug:  "dune",
		Title: "Dune",
		Blocks: []BlockInput{
			{Body: "first"},
			{Kind: "quote", Body: "second"},
		},
	})
	if err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}

	for i := 1; i <= 3; i++ {
		a, err := svc.GetArticleBySlug(ctx, "dune")
		if err != nil {
			t.Fatalf("GetArticleBySlug failed: %v", err)
		}
		if a.ViewCount != int64(i) {
			t.Errorf("Read %d: expected %d views, got %d", i, i, a.ViewCount)
		}
		if len(a.Blocks) != 2 || a.Blocks[0].Kind != "text" || a.Blocks[1].Body != "second" {
			t.Errorf("Unexpected blocks: %+v", a.Blocks)
		}
	}
	if _, ok := cache.Info(ArticleKey("dune")); !ok {
		t.Error("Expected article to be cached")
	}

	// 按 id 读取同样可用
	byID, err := svc.GetArticleBySlug(ctx, created.ID)
	if err != nil || byID.Slug != "dune" {
		t.Errorf("Expected lookup by id, got %+v %v", byID, err)
	}

	if _, err := svc.GetArticleBySlug(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestArticleMutationsInvalidate(t *testing.T) {
	ctx := context.Background()
	svc, cache, _ := newContentService(t)

	if _, err := svc.CreateArticle(ctx, "author", ArticleInput{Slug: "old", Title: "Old"}); err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	list, _ := svc.ListArticles(ctx)
	if len(list) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(list))
	}
	if _, err := svc.GetArticleBySlug(ctx, "old"); err != nil {
		t.Fatalf("GetArticleBySlug failed: %v", err)
	}

	if _, err := svc.UpdateArticle(ctx, "old", "intruder", ArticleInput{Slug: "old", Title: "X"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}

	updated, err := svc.UpdateArticle(ctx, "old", "author", ArticleInput{Slug: "new", Title: "New"})
	if err != nil {
		t.Fatalf("UpdateArticle failed: %v", err)
	}
	for _, key := range []string{KeyAllArticles, ArticleKey("old")} {
		if _, ok := cache.Info(key); ok {
			t.Errorf("Expected %s invalidated", key)
		}
	}
	if _, err := svc.GetArticleBySlug(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Old slug must be gone, got %v", err)
	}

	list, _ = svc.ListArticles(ctx)
	if len(list) != 1 || list[0].Title != "New" {
		t.Errorf("Expected refreshed list, got %+v", list)
	}

	if _, err := svc.CreateArticle(ctx, "author", ArticleInput{Slug: "new", Title: "Dup"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for duplicate slug, got %v", err)
	}
	if _, err := svc.CreateArticle(ctx, "author", ArticleInput{Slug: "a/b", Title: "Bad"}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for bad slug, got %v", err)
	}

	if err := svc.DeleteArticle(ctx, updated.ID, "author"); err != nil {
		t.Fatalf("DeleteArticle failed: %v", err)
	}
	list, _ = svc.ListArticles(ctx)
	if len(list) != 0 {
		t.Errorf("Expected empty list after delete, got %d", len(list))
	}
}

func TestPostImages(t *testing.T) {
	ctx := context.Background()
	svc, _, images := newContentService(t)

	p, err := svc.CreatePost(ctx, "critic", PostInput{Title: "Review", MovieTitle: "Alien", Rating: 8.5})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if _, err := svc.CreatePost(ctx, "critic", PostInput{Title: "Bad", Rating: 11}); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for rating, got %v", err)
	}

	poster, err := svc.AddPostImage(ctx, p.ID, "critic", models.ImageKindPoster, "poster.jpg", strings.NewReader("img"))
	if err != nil {
		t.Fatalf("AddPostImage poster failed: %v", err)
	}
	gallery, err := svc.AddPostImage(ctx, p.ID, "critic", "", "still.jpg", strings.NewReader("img"))
	if err != nil {
		t.Fatalf("AddPostImage gallery failed: %v", err)
	}
	if gallery.Kind != models.ImageKindGallery {
		t.Errorf("Expected gallery kind, got %s", gallery.Kind)
	}

	if _, err := svc.AddPostImage(ctx, p.ID, "critic", "banner", "x.jpg", strings.NewReader("img")); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for kind, got %v", err)
	}
	if _, err := svc.AddPostImage(ctx, p.ID, "other", "", "x.jpg", strings.NewReader("img")); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}

	got, err := svc.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.PosterURL != poster.URL {
		t.Errorf("Expected poster url %s, got %s", poster.URL, got.PosterURL)
	}
	if len(got.Images) != 1 || got.Images[0].ID != gallery.ID {
		t.Errorf("Poster must not appear in gallery: %+v", got.Images)
	}

	if err := svc.DeletePostImage(ctx, p.ID, poster.ID, "critic"); err != nil {
		t.Fatalf("DeletePostImage failed: %v", err)
	}
	got, _ = svc.GetPost(ctx, p.ID)
	if got.PosterURL != "" {
		t.Errorf("Expected poster cleared, got %s", got.PosterURL)
	}

	if err := svc.DeletePost(ctx, p.ID, "critic"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if len(images.deleted) != 2 {
		t.Errorf("Expected both stored images removed, got %v", images.deleted)
	}
	if _, err := svc.GetPost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTopPicksAndLatest(t *testing.T) {
	ctx := context.Background()
	svc, cache, _ := newContentService(t)

	p, _ := svc.CreatePost(ctx, "critic", PostInput{Title: "Review"})
	picks, err := svc.ListTopPicks(ctx)
	if err != nil || len(picks) != 0 {
		t.Fatalf("Expected empty picks, got %v %v", picks, err)
	}

	if _, err := svc.CreateTopPick(ctx, TopPickInput{PostID: "missing", Title: "Nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := svc.CreateTopPick(ctx, TopPickInput{PostID: p.ID, Title: "Must watch"}); err != nil {
		t.Fatalf("CreateTopPick failed: %v", err)
	}
	picks, _ = svc.ListTopPicks(ctx)
	if len(picks) != 1 {
		t.Errorf("Expected top_picks invalidated on create, got %d", len(picks))
	}

	latest, _ := svc.LatestReviews(ctx)
	if len(latest) != 1 {
		t.Fatalf("Expected 1 latest review, got %d", len(latest))
	}
	// latest_reviews 只靠 TTL 过期，新帖不会立即出现
	if _, err := svc.CreatePost(ctx, "critic", PostInput{Title: "Second"}); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	latest, _ = svc.LatestReviews(ctx)
	if len(latest) != 1 {
		t.Errorf("Expected cached latest reviews, got %d", len(latest))
	}
	cache.Delete(KeyLatestReviews)
	latest, _ = svc.LatestReviews(ctx)
	if len(latest) != 2 {
		t.Errorf("Expected 2 latest reviews after expiry, got %d", len(latest))
	}

	posts, _ := svc.ListPosts(ctx)
	if len(posts) != 2 {
		t.Errorf("all_posts must be invalidated on create, got %d", len(posts))
	}
}

func TestContentID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newContentService(t)

	a, _ := svc.CreateArticle(ctx, "author", ArticleInput{Slug: "ref", Title: "Ref"})
	p, _ := svc.CreatePost(ctx, "critic", PostInput{Title: "Post"})

	for ref, want := range map[string]string{"ref": a.ID, a.ID: a.ID, p.ID: p.ID} {
		got, err := svc.ContentID(ctx, ref)
		if err != nil || got != want {
			t.Errorf("ContentID(%s) = %s, %v; want %s", ref, got, err, want)
		}
	}
	if _, err := svc.ContentID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelnotes/internal/models"
)

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewLikeService(st)
	article := seedArticle(t, st, "likes")

	state, err := svc.ToggleLike(ctx, "u1", article.ID, models.LikeTargetArticle)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if !state.IsLiked || state.LikeCount != 1 {
		t.Errorf("Expected liked with count 1, got %+v", state)
	}

	state, err = svc.ToggleLike(ctx, "u1", article.ID, models.LikeTargetArticle)
	if err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if state.IsLiked || state.LikeCount != 0 {
		t.Errorf("Expected unliked with count 0, got %+v", state)
	}
}

func TestLikeStatus(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewLikeService(st)
	article := seedArticle(t, st, "status")

	for _, u := range []string{"u1", "u2"} {
		if _, err := svc.ToggleLike(ctx, u, article.ID, models.LikeTargetArticle); err != nil {
			t.Fatalf("ToggleLike failed: %v", err)
		}
	}

	anon, err := svc.GetLikeStatus(ctx, "", article.ID, models.LikeTargetArticle)
	if err != nil {
		t.Fatalf("GetLikeStatus failed: %v", err)
	}
	if anon.IsLiked || anon.LikeCount != 2 {
		t.Errorf("Unexpected anonymous status: %+v", anon)
	}

	mine, _ := svc.GetLikeStatus(ctx, "u2", article.ID, models.LikeTargetArticle)
	if !mine.IsLiked {
		t.Error("Expected u2 to see liked")
	}
	other, _ := svc.GetLikeStatus(ctx, "u3", article.ID, models.LikeTargetArticle)
	if other.IsLiked || other.LikeCount != 2 {
		t.Errorf("Unexpected status for u3: %+v", other)
	}
}

func TestLikeTargets(t *testing.T) {
	ctx := context.Background()
	svc := NewLikeService(newTestStore(t))

	if _, err := svc.ToggleLike(ctx, "u1", "x", models.LikeTarget("story")); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown kind, got %v", err)
	}
	if _, err := svc.ToggleLike(ctx, "u1", "missing", models.LikeTargetPost); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing post, got %v", err)
	}
	if _, err := svc.ToggleLike(ctx, "", "x", models.LikeTargetOpinion); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for anonymous toggle, got %v", err)
	}

	// opinion 没有独立表，任意 id 均可点赞
	state, err := svc.ToggleLike(ctx, "u1", "opinion-1", models.LikeTargetOpinion)
	if err != nil || !state.IsLiked {
		t.Errorf("Expected opinion like, got %+v %v", state, err)
	}
}

func TestConcurrentTogglesConverge(t *testing.T) {
	ctx := context.Background()
	svc := NewLikeService(newTestStore(t))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ToggleLike(ctx, "u1", "op", models.LikeTargetOpinion); err != nil {
				t.Errorf("ToggleLike failed: %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := svc.GetLikeStatus(ctx, "u1", "op", models.LikeTargetOpinion)
	if err != nil {
		t.Fatalf("GetLikeStatus failed: %v", err)
	}
	if state.LikeCount > 1 {
		t.Errorf("At most one like per user, got %d", state.LikeCount)
	}
	if state.IsLiked != (state.LikeCount == 1) {
		t.Errorf("Status and count disagree: %+v", state)
	}
}

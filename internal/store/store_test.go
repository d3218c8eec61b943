package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"reelnotes/internal/models"
	"reelnotes/internal/store"
	"reelnotes/internal/testutil"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(testutil.NewDB(t))
}

func rankedItems(n int) []models.RankedItem {
	items := make([]models.RankedItem, n)
	for i := range items {
		items[i] = models.RankedItem{
			Section: models.SectionTrendingNews,
			Rank:    i + 1,
			Title:   string(rune('a' + i)),
			Score:   float64(n - i),
		}
	}
	return items
}

func TestReplaceSection(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if err := s.ReplaceSection(ctx, models.SectionTrendingNews, rankedItems(5)); err != nil {
		t.Fatalf("ReplaceSection failed: %v", err)
	}
	if err := s.ReplaceSection(ctx, models.SectionTrendingMovies, []models.RankedItem{{Section: models.SectionTrendingMovies, Rank: 1, Title: "m"}}); err != nil {
		t.Fatalf("ReplaceSection failed: %v", err)
	}
	if err := s.ReplaceSection(ctx, models.SectionTrendingNews, rankedItems(3)); err != nil {
		t.Fatalf("second ReplaceSection failed: %v", err)
	}

	news, err := s.ListRanked(ctx, models.SectionTrendingNews, 0)
	if err != nil {
		t.Fatalf("ListRanked failed: %v", err)
	}
	if len(news) != 3 {
		t.Fatalf("Expected 3 news items after replace, got %d", len(news))
	}
	for i, item := range news {
		if item.Rank != i+1 {
			t.Errorf("Expected rank %d, got %d", i+1, item.Rank)
		}
	}

	movies, err := s.ListRanked(ctx, models.SectionTrendingMovies, 0)
	if err != nil {
		t.Fatalf("ListRanked failed: %v", err)
	}
	if len(movies) != 1 {
		t.Errorf("Other section must be untouched, got %d items", len(movies))
	}

	limited, _ := s.ListRanked(ctx, models.SectionTrendingNews, 2)
	if len(limited) != 2 {
		t.Errorf("Expected limit 2, got %d", len(limited))
	}
}

func TestMoveRankedItem(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if err := s.ReplaceSection(ctx, models.SectionTrendingNews, rankedItems(4)); err != nil {
		t.Fatalf("ReplaceSection failed: %v", err)
	}
	items, _ := s.ListRanked(ctx, models.SectionTrendingNews, 0)
	last := items[3]

	if err := s.MoveRankedItem(ctx, models.SectionTrendingNews, last.ID, 1); err != nil {
		t.Fatalf("MoveRankedItem failed: %v", err)
	}
	items, _ = s.ListRanked(ctx, models.SectionTrendingNews, 0)
	if items[0].ID != last.ID {
		t.Errorf("Expected moved item first, got %s", items[0].Title)
	}
	for i, item := range items {
		if item.Rank != i+1 {
			t.Errorf("Ranks must stay dense: position %d has rank %d", i, item.Rank)
		}
	}

	// 超出范围的名次收敛到末位
	if err := s.MoveRankedItem(ctx, models.SectionTrendingNews, last.ID, 99); err != nil {
		t.Fatalf("MoveRankedItem failed: %v", err)
	}
	items, _ = s.ListRanked(ctx, models.SectionTrendingNews, 0)
	if items[3].ID != last.ID {
		t.Errorf("Expected moved item last, got rank %d", items[3].Rank)
	}

	if err := s.MoveRankedItem(ctx, models.SectionTrendingNews, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestFinishRefreshLogOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	entry := &models.RefreshLog{
		Section:       models.SectionTrendingMovies,
		Status:        models.RefreshInProgress,
		LastAttemptAt: time.Now(),
	}
	if err := s.CreateRefreshLog(ctx, entry); err != nil {
		t.Fatalf("CreateRefreshLog failed: %v", err)
	}

	entry.Status = models.RefreshSuccess
	entry.RecordsUpdated = 7
	if err := s.FinishRefreshLog(ctx, entry); err != nil {
		t.Fatalf("FinishRefreshLog failed: %v", err)
	}
	entry.Status = models.RefreshFailed
	if err := s.FinishRefreshLog(ctx, entry); !errors.Is(err, store.ErrLogFinished) {
		t.Errorf("Expected ErrLogFinished, got %v", err)
	}

	latest, err := s.LatestRefreshLog(ctx, models.SectionTrendingMovies)
	if err != nil {
		t.Fatalf("LatestRefreshLog failed: %v", err)
	}
	if latest.Status != models.RefreshSuccess || latest.RecordsUpdated != 7 {
		t.Errorf("Unexpected log: %+v", latest)
	}

	if _, err := s.LatestRefreshLog(ctx, models.SectionTrendingNews); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty section, got %v", err)
	}
}

func TestDeleteLeafComment(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	article := &models.Article{Slug: "a", Title: "A", AuthorID: "u1"}
	if err := s.CreateArticle(ctx, article); err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	root := &models.Comment{ArticleID: article.ID, AuthorID: "u1", Content: "root"}
	if err := s.CreateComment(ctx, root); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	reply := &models.Comment{ArticleID: article.ID, AuthorID: "u2", Content: "reply", ParentID: &root.ID, Depth: 1}
	if err := s.CreateReply(ctx, reply); err != nil {
		t.Fatalf("CreateReply failed: %v", err)
	}

	removed, err := s.DeleteLeafComment(ctx, root.ID)
	if err != nil {
		t.Fatalf("DeleteLeafComment failed: %v", err)
	}
	if removed {
		t.Error("Comment with replies must not be removed")
	}

	counts, err := s.CountReplies(ctx, []string{root.ID, reply.ID})
	if err != nil {
		t.Fatalf("CountReplies failed: %v", err)
	}
	if counts[root.ID] != 1 || counts[reply.ID] != 0 {
		t.Errorf("Unexpected counts: %v", counts)
	}

	removed, err = s.DeleteLeafComment(ctx, reply.ID)
	if err != nil || !removed {
		t.Fatalf("Expected leaf removed, got %v %v", removed, err)
	}
	if _, err := s.FindComment(ctx, reply.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	orphan := &models.Comment{ArticleID: article.ID, AuthorID: "u2", Content: "x", ParentID: &reply.ID, Depth: 2}
	if err := s.CreateReply(ctx, orphan); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing parent, got %v", err)
	}
}

func TestCommentParentForeignKey(t *testing.T) {
	ctx := context.Background()
	conn := testutil.NewDB(t)
	s := store.New(conn)

	article := &models.Article{Slug: "fk", Title: "FK", AuthorID: "u1"}
	if err := s.CreateArticle(ctx, article); err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	root := &models.Comment{ArticleID: article.ID, AuthorID: "u1", Content: "root"}
	if err := s.CreateComment(ctx, root); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	reply := &models.Comment{ArticleID: article.ID, AuthorID: "u2", Content: "reply", ParentID: &root.ID, Depth: 1}
	if err := s.CreateReply(ctx, reply); err != nil {
		t.Fatalf("CreateReply failed: %v", err)
	}

	// 有回复的父评论不能被直接删除
	if err := conn.Where("id = ?", root.ID).Delete(&models.Comment{}).Error; err == nil {
		t.Error("Expected foreign key to reject deleting a parent with replies")
	}

	missing := "01J00000000000000000000000"
	dangling := &models.Comment{ArticleID: article.ID, AuthorID: "u2", Content: "x", ParentID: &missing, Depth: 1}
	if err := s.CreateComment(ctx, dangling); err == nil {
		t.Error("Expected foreign key to reject a reply to a missing parent")
	}

	// 删除文章时整棵评论树在同一条语句中删除
	if err := s.DeleteArticle(ctx, article.ID); err != nil {
		t.Fatalf("DeleteArticle failed: %v", err)
	}
	if _, err := s.FindComment(ctx, reply.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected replies removed with article, got %v", err)
	}
}

func TestIncrementArticleViews(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	article := &models.Article{Slug: "views", Title: "Views", AuthorID: "u1"}
	if err := s.CreateArticle(ctx, article); err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	for i := 1; i <= 3; i++ {
		views, err := s.IncrementArticleViews(ctx, article.ID)
		if err != nil {
			t.Fatalf("IncrementArticleViews failed: %v", err)
		}
		if views != int64(i) {
			t.Errorf("Expected %d views, got %d", i, views)
		}
	}
	if _, err := s.IncrementArticleViews(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLikeUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first := &models.Like{UserID: "u1", TargetKind: models.LikeTargetOpinion, TargetID: "op-1"}
	if err := s.CreateLike(ctx, first); err != nil {
		t.Fatalf("CreateLike failed: %v", err)
	}
	dup := &models.Like{UserID: "u1", TargetKind: models.LikeTargetOpinion, TargetID: "op-1"}
	if err := s.CreateLike(ctx, dup); err == nil {
		t.Error("Expected unique violation for duplicate like")
	}

	n, err := s.CountLikes(ctx, models.LikeTargetOpinion, "op-1")
	if err != nil || n != 1 {
		t.Errorf("Expected 1 like, got %d (%v)", n, err)
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"reelnotes/internal/models"
	"reelnotes/internal/store"
	"reelnotes/internal/testutil"
	"reelnotes/internal/utils"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(testutil.NewDB(t))
}

func newTestCache(t *testing.T) *utils.Cache {
	t.Helper()
	backend, err := utils.NewLRUBackend(100)
	if err != nil {
		t.Fatalf("NewLRUBackend failed: %v", err)
	}
	return utils.NewCache(backend)
}

func seedArticle(t *testing.T, st *store.Store, slug string) *models.Article {
	t.Helper()
	a := &models.Article{Slug: slug, Title: "Article " + slug, AuthorID: "author"}
	if err := st.CreateArticle(context.Background(), a); err != nil {
		t.Fatalf("CreateArticle failed: %v", err)
	}
	return a
}

// clock 可手动推进的时钟
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

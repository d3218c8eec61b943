package services

import (
	"context"
	"testing"
	"time"
)

func TestInvalidateDuringLoadDropsSnapshot(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	l := newCacheLoader(cache)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan []string, 1)

	go func() {
		items, err := cachedList(ctx, l, KeyAllPosts, time.Minute, func(context.Context) ([]string, error) {
			close(started)
			<-release
			return []string{"old"}, nil
		})
		if err != nil {
			t.Errorf("cachedList failed: %v", err)
		}
		done <- items
	}()

	<-started
	l.invalidate(KeyAllPosts)
	close(release)

	if got := <-done; len(got) != 1 || got[0] != "old" {
		t.Fatalf("Expected in-flight caller to get its own result, got %v", got)
	}
	var cached []string
	if cache.Get(KeyAllPosts, &cached) {
		t.Fatalf("Snapshot loaded before invalidation must not be cached, got %v", cached)
	}

	items, err := cachedList(ctx, l, KeyAllPosts, time.Minute, func(context.Context) ([]string, error) {
		return []string{"new"}, nil
	})
	if err != nil {
		t.Fatalf("cachedList failed: %v", err)
	}
	if len(items) != 1 || items[0] != "new" {
		t.Errorf("Expected fresh load after invalidation, got %v", items)
	}
	if !cache.Get(KeyAllPosts, &cached) || cached[0] != "new" {
		t.Errorf("Expected fresh load cached, got %v", cached)
	}
}

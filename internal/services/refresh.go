package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"reelnotes/internal/logging"
	"reelnotes/internal/metrics"
	"reelnotes/internal/models"
	"reelnotes/internal/store"
	"reelnotes/internal/utils"
)

type RefreshConfig struct {
	// StaleAfter 超过该时长仍为 in_progress 的日志视为上次运行已中断
	StaleAfter time.Duration
	TTLs       map[models.Section]time.Duration
}

// RefreshService 排行榜刷新：抓取 -> 打分排序 -> 事务内整体替换 -> 失效缓存。
// 同一分区同一时间只允许一次刷新
type RefreshService struct {
	store   *store.Store
	ranker  *Ranker
	sources map[models.Section]ContentSource
	cfg     RefreshConfig
	loader  *cacheLoader
	now     func() time.Time

	mu      sync.Mutex
	running map[models.Section]bool
}

func NewRefreshService(st *store.Store, cache *utils.Cache, ranker *Ranker, sources map[models.Section]ContentSource, cfg RefreshConfig) *RefreshService {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	return &RefreshService{
		store:   st,
		loader:  newCacheLoader(cache),
		ranker:  ranker,
		sources: sources,
		cfg:     cfg,
		now:     time.Now,
		running: make(map[models.Section]bool),
	}
}

// Sections 已注册来源的分区，按名称排序
func (s *RefreshService) Sections() []models.Section {
	sections := make([]models.Section, 0, len(s.sources))
	for sec := range s.sources {
		sections = append(sections, sec)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })
	return sections
}

func (s *RefreshService) checkSection(section models.Section) error {
	if _, ok := s.sources[section]; !ok {
		return fmt.Errorf("分区 %s 不存在: %w", section, ErrNotFound)
	}
	return nil
}

func (s *RefreshService) tryLock(section models.Section) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[section] {
		return false
	}
	s.running[section] = true
	return true
}

func (s *RefreshService) unlock(section models.Section) {
	s.mu.Lock()
	delete(s.running, section)
	s.mu.Unlock()
}

// claim 检查数据库中最近一次刷新是否仍在进行（可能来自其他进程），
// 过期的 in_progress 记录会被标记为失败。返回上次成功时间供新日志沿用
func (s *RefreshService) claim(ctx context.Context, section models.Section) (*time.Time, error) {
	prev, err := s.store.LatestRefreshLog(ctx, section)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询刷新日志失败: %w", err)
	}
	if prev.Status != models.RefreshInProgress {
		return prev.LastSuccessAt, nil
	}

	if s.now().Sub(prev.LastAttemptAt) < s.cfg.StaleAfter {
		return nil, fmt.Errorf("分区 %s 正在刷新: %w", section, ErrConflictInProgress)
	}

	prev.Status = models.RefreshFailed
	prev.ErrorMessage = "abandoned: no completion recorded"
	if err := s.store.FinishRefreshLog(ctx, prev); err != nil && !errors.Is(err, store.ErrLogFinished) {
		return nil, fmt.Errorf("更新刷新日志失败: %w", err)
	}
	logging.Warn().Str("section", string(section)).Uint("log_id", prev.ID).Msg("marked stale refresh as failed")
	return prev.LastSuccessAt, nil
}

// Refresh 刷新一个分区，返回本次的刷新日志。失败时日志同样返回，缓存保持不变
func (s *RefreshService) Refresh(ctx context.Context, section models.Section) (*models.RefreshLog, error) {
	if err := s.checkSection(section); err != nil {
		return nil, err
	}
	if !s.tryLock(section) {
		return nil, fmt.Errorf("分区 %s 正在刷新: %w", section, ErrConflictInProgress)
	}
	defer s.unlock(section)

	lastSuccess, err := s.claim(ctx, section)
	if err != nil {
		return nil, err
	}

	entry := &models.RefreshLog{
		Section:       section,
		Status:        models.RefreshInProgress,
		Source:        s.sources[section].Name(),
		LastAttemptAt: s.now(),
		LastSuccessAt: lastSuccess,
	}
	if err := s.store.CreateRefreshLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("创建刷新日志失败: %w", err)
	}

	l := logging.Component("refresh").With().Str("section", string(section)).Uint("log_id", entry.ID).Logger()
	l.Info().Msg("refresh started")

	n, err := s.run(ctx, section, entry)
	// 即使请求已取消也要把日志写成最终状态
	finishCtx := context.WithoutCancel(ctx)

	if err != nil {
		entry.Status = models.RefreshFailed
		entry.ErrorMessage = err.Error()
		if ferr := s.store.FinishRefreshLog(finishCtx, entry); ferr != nil {
			l.Error().Err(ferr).Msg("failed to record refresh failure")
		}
		metrics.RefreshRuns.WithLabelValues(string(section), string(models.RefreshFailed)).Inc()
		l.Warn().Err(err).Msg("refresh failed")
		return entry, err
	}

	done := s.now()
	entry.Status = models.RefreshSuccess
	entry.LastSuccessAt = &done
	entry.RecordsUpdated = n
	ferr := s.store.FinishRefreshLog(finishCtx, entry)

	// 数据已经替换，无论日志是否写成功都要失效缓存
	s.loader.invalidate(string(section))
	metrics.RefreshRuns.WithLabelValues(string(section), string(models.RefreshSuccess)).Inc()
	metrics.RefreshItems.WithLabelValues(string(section)).Set(float64(n))

	if ferr != nil {
		l.Error().Err(ferr).Msg("failed to record refresh success")
		return entry, fmt.Errorf("更新刷新日志失败: %w", ferr)
	}
	l.Info().Int("records", n).Str("source", entry.Source).Msg("refresh completed")
	return entry, nil
}

func (s *RefreshService) run(ctx context.Context, section models.Section, entry *models.RefreshLog) (int, error) {
	res, err := s.sources[section].Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrUpstreamFailure) || ctx.Err() != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%s: %v: %w", s.sources[section].Name(), err, ErrUpstreamFailure)
	}
	entry.Source = res.Source

	ranked := s.ranker.Rank(section, res.Items, s.now())
	if len(ranked) == 0 {
		// 空结果不替换，避免清空现有排行
		return 0, fmt.Errorf("%s 返回 0 条有效内容: %w", res.Source, ErrUpstreamFailure)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.store.ReplaceSection(ctx, section, ranked); err != nil {
		return 0, fmt.Errorf("写入排行失败: %w", err)
	}
	return len(ranked), nil
}

// RefreshAll 依次刷新全部分区，单个分区失败不影响其他分区
func (s *RefreshService) RefreshAll(ctx context.Context) map[models.Section]error {
	results := make(map[models.Section]error)
	for _, section := range s.Sections() {
		if ctx.Err() != nil {
			results[section] = ctx.Err()
			continue
		}
		_, err := s.Refresh(ctx, section)
		results[section] = err
	}
	return results
}

// ListRanked 读取分区排行，缓存键即分区名。limit <= 0 返回全部
func (s *RefreshService) ListRanked(ctx context.Context, section models.Section, limit int) ([]models.RankedItem, error) {
	if err := s.checkSection(section); err != nil {
		return nil, err
	}
	items, err := cachedList(ctx, s.loader, string(section), s.cfg.TTLs[section], func(ctx context.Context) ([]models.RankedItem, error) {
		return s.store.ListRanked(ctx, section, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("查询排行失败: %w", err)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// UpdateRank 手动调整名次，其余条目重新压实为 1..N
func (s *RefreshService) UpdateRank(ctx context.Context, section models.Section, itemID string, rank int) ([]models.RankedItem, error) {
	if err := s.checkSection(section); err != nil {
		return nil, err
	}
	if rank < 1 {
		return nil, fmt.Errorf("名次必须大于 0: %w", ErrValidation)
	}
	if err := s.store.MoveRankedItem(ctx, section, itemID, rank); err != nil {
		return nil, notFound(err, "排行条目", itemID)
	}
	s.loader.invalidate(string(section))

	items, err := s.store.ListRanked(ctx, section, 0)
	if err != nil {
		return nil, fmt.Errorf("查询排行失败: %w", err)
	}
	return items, nil
}

// LatestRefresh 最近一次刷新日志
func (s *RefreshService) LatestRefresh(ctx context.Context, section models.Section) (*models.RefreshLog, error) {
	if err := s.checkSection(section); err != nil {
		return nil, err
	}
	entry, err := s.store.LatestRefreshLog(ctx, section)
	if err != nil {
		return nil, notFound(err, "刷新日志", string(section))
	}
	return entry, nil
}

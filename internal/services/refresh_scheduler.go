package services

import (
	"context"
	"errors"
	"time"

	"reelnotes/internal/logging"
)

// RefreshScheduler 按固定间隔刷新全部分区，作为 suture 服务运行
type RefreshScheduler struct {
	refresh    *RefreshService
	interval   time.Duration
	runOnStart bool
}

func NewRefreshScheduler(refresh *RefreshService, interval time.Duration, runOnStart bool) *RefreshScheduler {
	return &RefreshScheduler{refresh: refresh, interval: interval, runOnStart: runOnStart}
}

// Serve 阻塞直到 ctx 取消
func (s *RefreshScheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *RefreshScheduler) tick(ctx context.Context) {
	logging.Info().Msg("开始定时刷新排行榜...")
	for section, err := range s.refresh.RefreshAll(ctx) {
		switch {
		case err == nil:
		case errors.Is(err, ErrConflictInProgress):
			logging.Info().Str("section", string(section)).Msg("刷新进行中，跳过")
		default:
			logging.Warn().Err(err).Str("section", string(section)).Msg("定时刷新失败")
		}
	}
	logging.Info().Msg("定时刷新排行榜完成")
}

func (s *RefreshScheduler) String() string {
	return "refresh-scheduler"
}

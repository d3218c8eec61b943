package services

import (
	"context"
	"errors"
	"fmt"

	"reelnotes/internal/models"
	"reelnotes/internal/store"

	"gorm.io/gorm"
)

// LikeState 点赞状态
type LikeState struct {
	IsLiked   bool  `json:"is_liked"`
	LikeCount int64 `json:"like_count"`
}

type LikeService struct {
	store *store.Store
}

func NewLikeService(st *store.Store) *LikeService {
	return &LikeService{store: st}
}

func (s *LikeService) checkTarget(ctx context.Context, kind models.LikeTarget, targetID string) error {
	if !kind.Valid() {
		return fmt.Errorf("不支持的点赞类型 %s: %w", kind, ErrValidation)
	}
	if targetID == "" {
		return fmt.Errorf("缺少点赞对象: %w", ErrValidation)
	}
	ok, err := s.store.TargetExists(ctx, kind, targetID)
	if err != nil {
		return fmt.Errorf("查询点赞对象失败: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s %s 不存在: %w", kind, targetID, ErrNotFound)
	}
	return nil
}

// ToggleLike 已点赞则取消，未点赞则点赞，返回操作后的状态与总数
func (s *LikeService) ToggleLike(ctx context.Context, userID, targetID string, kind models.LikeTarget) (*LikeState, error) {
	if userID == "" {
		return nil, fmt.Errorf("缺少用户: %w", ErrValidation)
	}
	if err := s.checkTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}

	liked := false
	existing, err := s.store.FindLike(ctx, userID, kind, targetID)
	switch {
	case err == nil:
		if _, err := s.store.DeleteLike(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("取消点赞失败: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		like := &models.Like{UserID: userID, TargetKind: kind, TargetID: targetID}
		// 并发的重复点赞撞上唯一索引时，结果同样是"已点赞"
		if err := s.store.CreateLike(ctx, like); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("点赞失败: %w", err)
		}
		liked = true
	default:
		return nil, fmt.Errorf("查询点赞失败: %w", err)
	}

	count, err := s.store.CountLikes(ctx, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("统计点赞失败: %w", err)
	}
	return &LikeState{IsLiked: liked, LikeCount: count}, nil
}

// GetLikeStatus 匿名访问时 IsLiked 恒为 false
func (s *LikeService) GetLikeStatus(ctx context.Context, userID, targetID string, kind models.LikeTarget) (*LikeState, error) {
	if err := s.checkTarget(ctx, kind, targetID); err != nil {
		return nil, err
	}

	count, err := s.store.CountLikes(ctx, kind, targetID)
	if err != nil {
		return nil, fmt.Errorf("统计点赞失败: %w", err)
	}
	state := &LikeState{LikeCount: count}
	if userID == "" {
		return state, nil
	}

	_, err = s.store.FindLike(ctx, userID, kind, targetID)
	switch {
	case err == nil:
		state.IsLiked = true
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("查询点赞失败: %w", err)
	}
	return state, nil
}

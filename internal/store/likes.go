package store

import (
	"context"

	"reelnotes/internal/models"
)

func (s *Store) FindLike(ctx context.Context, userID string, kind models.LikeTarget, targetID string) (*models.Like, error) {
	var l models.Like
	err := s.conn(ctx).
		Where("user_id = ? AND target_kind = ? AND target_id = ?", userID, kind, targetID).
		First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (s *Store) CreateLike(ctx context.Context, l *models.Like) error {
	return s.conn(ctx).Create(l).Error
}

// DeleteLike 返回是否确实删除了一行
func (s *Store) DeleteLike(ctx context.Context, id string) (bool, error) {
	res := s.conn(ctx).Where("id = ?", id).Delete(&models.Like{})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) CountLikes(ctx context.Context, kind models.LikeTarget, targetID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Like{}).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Count(&n).Error
	return n, err
}

// TargetExists 检查点赞对象是否存在。opinion 没有独立的表，由调用方保证
func (s *Store) TargetExists(ctx context.Context, kind models.LikeTarget, id string) (bool, error) {
	var model interface{}
	switch kind {
	case models.LikeTargetArticle:
		model = &models.Article{}
	case models.LikeTargetPost:
		model = &models.Post{}
	case models.LikeTargetComment:
		model = &models.Comment{}
	default:
		return true, nil
	}
	var n int64
	err := s.conn(ctx).Model(model).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

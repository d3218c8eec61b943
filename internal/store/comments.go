package store

import (
	"context"
	"errors"
	"time"

	"reelnotes/internal/models"

	"gorm.io/gorm"
)

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	return s.conn(ctx).Create(c).Error
}

// CreateReply 在同一事务内确认父评论仍存在后写入回复
func (s *Store) CreateReply(ctx context.Context, reply *models.Comment) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Comment{}).Where("id = ?", *reply.ParentID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		// 父评论在检查之后被并发删除时由外键拦截
		if err := tx.Create(reply).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
}

func (s *Store) FindComment(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	if err := s.conn(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// FindCommentsByParent 查询直接回复
func (s *Store) FindCommentsByParent(ctx context.Context, parentID string, order Order, skip, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	q := s.conn(ctx).Where("parent_id = ?", parentID).Order(order.clause())
	if err := page(q, skip, limit).Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) CountCommentsByParent(ctx context.Context, parentID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Comment{}).Where("parent_id = ?", parentID).Count(&n).Error
	return n, err
}

// CountReplies 批量统计每条评论的直接回复数
func (s *Store) CountReplies(ctx context.Context, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	type row struct {
		ParentID string
		Count    int64
	}
	var rows []row
	err := s.conn(ctx).Model(&models.Comment{}).
		Select("parent_id, COUNT(*) as count").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ParentID] = r.Count
	}
	return counts, nil
}

// FindTopLevelComments 查询内容下的顶层评论
func (s *Store) FindTopLevelComments(ctx context.Context, articleID string, order Order, skip, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	q := s.conn(ctx).Where("article_id = ? AND parent_id IS NULL", articleID).Order(order.clause())
	if err := page(q, skip, limit).Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) CountTopLevelComments(ctx context.Context, articleID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Comment{}).
		Where("article_id = ? AND parent_id IS NULL", articleID).
		Count(&n).Error
	return n, err
}

func (s *Store) UpdateCommentContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	res := s.conn(ctx).Model(&models.Comment{}).
		Where("id = ? AND deleted = ?", id, false).
		UpdateColumns(map[string]interface{}{
			"content":    content,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLeafComment 仅当评论没有任何回复时删除该行，返回是否已删除
func (s *Store) DeleteLeafComment(ctx context.Context, id string) (bool, error) {
	db := s.conn(ctx)
	replies := db.Model(&models.Comment{}).Select("1").Where("parent_id = ?", id)
	res := db.Where("id = ? AND NOT EXISTS (?)", id, replies).Delete(&models.Comment{})
	if res.Error != nil {
		// 并发写入的回复让外键拒绝删除，交给调用方改为墓碑
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TombstoneComment 保留评论行，替换内容并打上删除标记
func (s *Store) TombstoneComment(ctx context.Context, id string, updatedAt time.Time) error {
	res := s.conn(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"content":    models.DeletedCommentContent,
			"deleted":    true,
			"updated_at": updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ContentExists 检查文章或帖子是否存在
func (s *Store) ContentExists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.Article{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := s.conn(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

package store

import (
	"context"
	"errors"

	"reelnotes/internal/models"

	"gorm.io/gorm"
)

// ErrLogFinished 刷新日志已不处于 in_progress
var ErrLogFinished = errors.New("refresh log already finished")

// ReplaceSection 在一个事务内清空分区并写入新的排行，
// 其他连接在提交前始终读到旧数据，写入失败时整体回滚
func (s *Store) ReplaceSection(ctx context.Context, section models.Section, items []models.RankedItem) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("section = ?", section).Delete(&models.RankedItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.CreateInBatches(&items, 100).Error
	})
}

// ListRanked 按名次返回分区条目，limit <= 0 返回全部
func (s *Store) ListRanked(ctx context.Context, section models.Section, limit int) ([]models.RankedItem, error) {
	var items []models.RankedItem
	q := s.conn(ctx).Where("section = ?", section).Order("rank_no ASC")
	if err := page(q, 0, limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MoveRankedItem 把条目移动到新名次并重新压实整个分区的名次
func (s *Store) MoveRankedItem(ctx context.Context, section models.Section, itemID string, newRank int) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.RankedItem
		if err := tx.Where("section = ?", section).Order("rank_no ASC").Find(&items).Error; err != nil {
			return err
		}

		from := -1
		for i := range items {
			if items[i].ID == itemID {
				from = i
				break
			}
		}
		if from < 0 {
			return ErrNotFound
		}

		to := newRank - 1
		if to < 0 {
			to = 0
		}
		if to >= len(items) {
			to = len(items) - 1
		}

		moved := items[from]
		items = append(items[:from], items[from+1:]...)
		items = append(items[:to], append([]models.RankedItem{moved}, items[to:]...)...)

		for i := range items {
			if items[i].Rank == i+1 {
				continue
			}
			if err := tx.Model(&models.RankedItem{}).Where("id = ?", items[i].ID).
				UpdateColumn("rank_no", i+1).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CreateRefreshLog(ctx context.Context, log *models.RefreshLog) error {
	return s.conn(ctx).Create(log).Error
}

// FinishRefreshLog 把仍处于 in_progress 的日志行更新为最终状态
func (s *Store) FinishRefreshLog(ctx context.Context, log *models.RefreshLog) error {
	res := s.conn(ctx).Model(&models.RefreshLog{}).
		Where("id = ? AND section = ? AND status = ?", log.ID, log.Section, models.RefreshInProgress).
		Updates(map[string]interface{}{
			"status":          log.Status,
			"source":          log.Source,
			"last_success_at": log.LastSuccessAt,
			"error_message":   log.ErrorMessage,
			"records_updated": log.RecordsUpdated,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLogFinished
	}
	return nil
}

func (s *Store) LatestRefreshLog(ctx context.Context, section models.Section) (*models.RefreshLog, error) {
	var log models.RefreshLog
	if err := s.conn(ctx).Where("section = ?", section).Order("id DESC").First(&log).Error; err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

// Package store 基于 gorm 的持久化实现
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Order 评论排序
type Order int

const (
	Newest Order = iota
	Oldest
)

func (o Order) clause() string {
	if o == Oldest {
		return "created_at ASC, id ASC"
	}
	return "created_at DESC, id DESC"
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// page 为查询附加分页，limit <= 0 表示不限制
func page(q *gorm.DB, skip, limit int) *gorm.DB {
	if skip > 0 {
		q = q.Offset(skip)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

package models

import (
	"time"

	"gorm.io/gorm"
)

type LikeTarget string

const (
	LikeTargetArticle LikeTarget = "article"
	LikeTargetPost    LikeTarget = "post"
	LikeTargetOpinion LikeTarget = "opinion"
	LikeTargetComment LikeTarget = "comment"
)

// Valid 是否为支持的点赞对象类型
func (t LikeTarget) Valid() bool {
	switch t {
	case LikeTargetArticle, LikeTargetPost, LikeTargetOpinion, LikeTargetComment:
		return true
	}
	return false
}

// Like 点赞，(user, target) 唯一
type Like struct {
	ID         string     `gorm:"primaryKey;size:26" json:"id"`
	UserID     string     `gorm:"size:64;not null;uniqueIndex:idx_like_user_target" json:"user_id"`
	TargetKind LikeTarget `gorm:"type:varchar(20);not null;uniqueIndex:idx_like_user_target;index:idx_like_target" json:"target_kind"`
	TargetID   string     `gorm:"size:64;not null;uniqueIndex:idx_like_user_target;index:idx_like_target" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// DeletedCommentContent 墓碑评论对外展示的内容
const DeletedCommentContent = "[This comment has been deleted]"

// Comment 评论。ParentID 为空表示顶层评论，回复与父评论始终属于同一篇内容
type Comment struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	ArticleID string    `gorm:"size:26;not null;index:idx_comment_article_parent" json:"article_id"`
	AuthorID  string    `gorm:"size:64;not null;index" json:"author_id"`
	ParentID  *string   `gorm:"size:26;index;index:idx_comment_article_parent" json:"parent_id"`
	// 父评论仍有回复时数据库拒绝删除它，回复不会指向已消失的父评论
	Parent    *Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:NO ACTION" json:"-"`
	Depth     int       `gorm:"not null;default:0" json:"depth"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Deleted   bool      `gorm:"not null;default:false" json:"deleted"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	return nil
}

// IsRoot 是否为顶层评论
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

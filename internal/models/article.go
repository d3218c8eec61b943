package models

import (
	"time"

	"gorm.io/gorm"
)

// Article 文章，正文由有序的内容块组成
type Article struct {
	ID        string         `gorm:"primaryKey;size:26" json:"id"`
	Slug      string         `gorm:"uniqueIndex;size:200;not null" json:"slug"`
	Title     string         `gorm:"not null" json:"title"`
	Summary   string         `gorm:"type:text" json:"summary"`
	CoverURL  string         `json:"cover_url"`
	AuthorID  string         `gorm:"size:64;not null;index" json:"author_id"`
	ViewCount int64          `gorm:"not null;default:0" json:"view_count"`
	Blocks    []ArticleBlock `gorm:"foreignKey:ArticleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"blocks,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = NewID()
	}
	return nil
}

// ArticleBlock 文章内容块，Kind 取值 text / image / quote / embed
type ArticleBlock struct {
	ID        string `gorm:"primaryKey;size:26" json:"id"`
	ArticleID string `gorm:"size:26;not null;index" json:"article_id"`
	Position  int    `gorm:"not null" json:"position"`
	Kind      string `gorm:"size:20;not null;default:'text'" json:"kind"`
	Body      string `gorm:"type:text" json:"body"`
}

func (b *ArticleBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

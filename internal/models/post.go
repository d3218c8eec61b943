package models

import (
	"time"

	"gorm.io/gorm"
)

// 图片类型
const (
	ImageKindGallery      = "gallery"
	ImageKindPoster       = "poster"
	ImageKindReviewPoster = "review_poster"
)

// Post 影评帖子
type Post struct {
	ID              string      `gorm:"primaryKey;size:26" json:"id"`
	Title           string      `gorm:"not null" json:"title"`
	Content         string      `gorm:"type:text" json:"content"`
	MovieTitle      string      `json:"movie_title"`
	Rating          float64     `gorm:"default:0" json:"rating"`
	AuthorID        string      `gorm:"size:64;not null;index" json:"author_id"`
	PosterURL       string      `json:"poster_url"`
	ReviewPosterURL string      `json:"review_poster_url"`
	Images          []PostImage `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

// PostImage 帖子图片，StorageKey 为对象存储侧用于删除的标识
type PostImage struct {
	ID         string    `gorm:"primaryKey;size:26" json:"id"`
	PostID     string    `gorm:"size:26;not null;index" json:"post_id"`
	URL        string    `gorm:"not null" json:"url"`
	StorageKey string    `json:"-"`
	Kind       string    `gorm:"size:20;not null;default:'gallery'" json:"kind"`
	Position   int       `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

func (i *PostImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}

// TopPick 编辑精选
type TopPick struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	PostID    string    `gorm:"size:26;not null;index" json:"post_id"`
	Title     string    `gorm:"not null" json:"title"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (t *TopPick) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

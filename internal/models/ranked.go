package models

import (
	"time"

	"gorm.io/gorm"
)

// Section 排行榜分区，同时作为该分区的缓存键
type Section string

const (
	SectionTrendingMovies Section = "trending_movies"
	SectionTrendingNews   Section = "trending_news"
)

// RankedItem 排行条目。同一分区内 Rank 为 1..N 的稠密序列
type RankedItem struct {
	ID          string    `gorm:"primaryKey;size:26" json:"id"`
	Section     Section   `gorm:"type:varchar(40);not null;index:idx_ranked_section_rank" json:"section"`
	Rank        int       `gorm:"column:rank_no;not null;index:idx_ranked_section_rank" json:"rank"`
	Score       float64   `gorm:"not null" json:"score"`
	ExternalID  string    `gorm:"size:255" json:"external_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	URL         string    `json:"url"`
	SourceName  string    `json:"source_name"`
	Author      string    `json:"author"`
	ImageURL    string    `json:"image_url"`
	Category    string    `gorm:"size:50" json:"category"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *RankedItem) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}

type RefreshStatus string

const (
	RefreshInProgress RefreshStatus = "in_progress"
	RefreshSuccess    RefreshStatus = "success"
	RefreshFailed     RefreshStatus = "failed"
)

// RefreshLog 每次刷新一行：开始时 in_progress，结束时原地更新为 success 或 failed
type RefreshLog struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	Section        Section       `gorm:"type:varchar(40);not null;index" json:"section"`
	Status         RefreshStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Source         string        `gorm:"size:100" json:"source"`
	LastAttemptAt  time.Time     `gorm:"not null" json:"last_attempt_at"`
	LastSuccessAt  *time.Time    `json:"last_success_at"`
	ErrorMessage   string        `gorm:"type:text" json:"error_message,omitempty"`
	RecordsUpdated int           `gorm:"not null;default:0" json:"records_updated"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

package store

import (
	"context"

	"reelnotes/internal/models"

	"gorm.io/gorm"
)

func orderedBlocks(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// FindArticle 按 slug 或 id 查询文章，内容块按位置排序
func (s *Store) FindArticle(ctx context.Context, slugOrID string) (*models.Article, error) {
	var a models.Article
	err := s.conn(ctx).Preload("Blocks", orderedBlocks).
		Where("slug = ? OR id = ?", slugOrID, slugOrID).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// IncrementArticleViews 原子自增浏览量并返回自增后的值
func (s *Store) IncrementArticleViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Article{}).Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Article{}).Where("id = ?", id).Select("view_count").Scan(&views).Error
	})
	return views, err
}

func (s *Store) ListArticles(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	err := s.conn(ctx).Order("created_at DESC, id DESC").Find(&articles).Error
	return articles, err
}

func (s *Store) CreateArticle(ctx context.Context, a *models.Article) error {
	return s.conn(ctx).Create(a).Error
}

// UpdateArticle 更新文章字段并整体替换内容块
func (s *Store) UpdateArticle(ctx context.Context, a *models.Article) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Article{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
			"slug":      a.Slug,
			"title":     a.Title,
			"summary":   a.Summary,
			"cover_url": a.CoverURL,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("article_id = ?", a.ID).Delete(&models.ArticleBlock{}).Error; err != nil {
			return err
		}
		for i := range a.Blocks {
			a.Blocks[i].ID = ""
			a.Blocks[i].ArticleID = a.ID
		}
		if len(a.Blocks) > 0 {
			if err := tx.Create(&a.Blocks).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteArticle 删除文章及其内容块、评论
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", id).Delete(&models.ArticleBlock{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Article{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := s.conn(ctx).Preload("Images", orderedImages).Order("created_at DESC, id DESC").Find(&posts).Error
	return posts, err
}

// LatestPosts 最新影评
func (s *Store) LatestPosts(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := s.conn(ctx).Preload("Images", orderedImages).Order("created_at DESC, id DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (s *Store) FindPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := s.conn(ctx).Preload("Images", orderedImages).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	return s.conn(ctx).Create(p).Error
}

func (s *Store) UpdatePost(ctx context.Context, p *models.Post) error {
	res := s.conn(ctx).Model(&models.Post{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"title":       p.Title,
		"content":     p.Content,
		"movie_title": p.MovieTitle,
		"rating":      p.Rating,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.TopPick{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CreatePostImage 写入图片行，海报类图片同时更新帖子上的专用字段
func (s *Store) CreatePostImage(ctx context.Context, img *models.PostImage) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(img).Error; err != nil {
			return err
		}
		column := ""
		switch img.Kind {
		case models.ImageKindPoster:
			column = "poster_url"
		case models.ImageKindReviewPoster:
			column = "review_poster_url"
		default:
			return nil
		}
		return tx.Model(&models.Post{}).Where("id = ?", img.PostID).UpdateColumn(column, img.URL).Error
	})
}

func (s *Store) FindPostImage(ctx context.Context, postID, imageID string) (*models.PostImage, error) {
	var img models.PostImage
	if err := s.conn(ctx).Where("id = ? AND post_id = ?", imageID, postID).First(&img).Error; err != nil {
		return nil, translate(err)
	}
	return &img, nil
}

// DeletePostImage 删除图片行，若其为帖子海报则清空对应字段
func (s *Store) DeletePostImage(ctx context.Context, img *models.PostImage) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", img.ID).Delete(&models.PostImage{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.Post{}).Where("id = ? AND poster_url = ?", img.PostID, img.URL).
			UpdateColumn("poster_url", "").Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ? AND review_poster_url = ?", img.PostID, img.URL).
			UpdateColumn("review_poster_url", "").Error
	})
}

func (s *Store) ListTopPicks(ctx context.Context, limit int) ([]models.TopPick, error) {
	var picks []models.TopPick
	err := s.conn(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&picks).Error
	return picks, err
}

func (s *Store) CreateTopPick(ctx context.Context, tp *models.TopPick) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Post{}).Where("id = ?", tp.PostID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return tx.Create(tp).Error
	})
}

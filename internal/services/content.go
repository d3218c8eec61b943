package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"reelnotes/internal/logging"
	"reelnotes/internal/models"
	"reelnotes/internal/store"
	"reelnotes/internal/utils"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// 缓存键
const (
	KeyAllArticles   = "all_articles"
	KeyAllPosts      = "all_posts"
	KeyTopPicks      = "top_picks"
	KeyLatestReviews = "latest_reviews"
)

// ArticleKey 单篇文章的缓存键
func ArticleKey(slug string) string {
	return "article:" + slug
}

type ContentConfig struct {
	ArticleTTL         time.Duration
	CollectionTTL      time.Duration
	TopPicksTTL        time.Duration
	LatestReviewsTTL   time.Duration
	TopPicksLimit      int
	LatestReviewsLimit int
}

type BlockInput struct {
	Kind string `json:"kind" validate:"omitempty,oneof=text image quote embed"`
	Body string `json:"body" validate:"max=20000"`
}

type ArticleInput struct {
	Slug     string       `json:"slug" validate:"required,max=200,excludesall=/?#"`
	Title    string       `json:"title" validate:"required,max=255"`
	Summary  string       `json:"summary" validate:"max=2000"`
	CoverURL string       `json:"cover_url" validate:"omitempty,url"`
	Blocks   []BlockInput `json:"blocks" validate:"dive"`
}

type PostInput struct {
	Title      string  `json:"title" validate:"required,max=255"`
	Content    string  `json:"content" validate:"max=20000"`
	MovieTitle string  `json:"movie_title" validate:"max=255"`
	Rating     float64 `json:"rating" validate:"gte=0,lte=10"`
}

type TopPickInput struct {
	PostID string `json:"post_id" validate:"required"`
	Title  string `json:"title" validate:"required,max=255"`
	Note   string `json:"note" validate:"max=1000"`
}

// ContentService 文章、影评、精选的读写。读走缓存，写操作在成功返回前失效相关缓存键
type ContentService struct {
	store    *store.Store
	cache    *utils.Cache
	images   ImageStore
	cfg      ContentConfig
	validate *validator.Validate
	loader   *cacheLoader
}

func NewContentService(st *store.Store, cache *utils.Cache, images ImageStore, cfg ContentConfig) *ContentService {
	if cfg.TopPicksLimit <= 0 {
		cfg.TopPicksLimit = 10
	}
	if cfg.LatestReviewsLimit <= 0 {
		cfg.LatestReviewsLimit = 10
	}
	return &ContentService{
		store:    st,
		cache:    cache,
		images:   images,
		cfg:      cfg,
		validate: validator.New(),
		loader:   newCacheLoader(cache),
	}
}

func (s *ContentService) check(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%v: %w", err, ErrValidation)
	}
	return nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s 不存在: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("查询%s失败: %w", what, err)
}

// GetArticleBySlug 读取文章。命中缓存时同样自增浏览量并回写缓存中的计数
func (s *ContentService) GetArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	key := ArticleKey(slug)

	var cached models.Article
	if s.cache.Get(key, &cached) {
		views, err := s.store.IncrementArticleViews(ctx, cached.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.loader.invalidate(key)
			}
			return nil, notFound(err, "文章", slug)
		}
		cached.ViewCount = views
		s.cache.Replace(key, &cached)
		return &cached, nil
	}

	gen := s.loader.generation(key)
	v, err, _ := s.loader.group.Do(key, func() (interface{}, error) {
		return s.store.FindArticle(context.WithoutCancel(ctx), slug)
	})
	if err != nil {
		return nil, notFound(err, "文章", slug)
	}
	article := *v.(*models.Article)

	views, err := s.store.IncrementArticleViews(ctx, article.ID)
	if err != nil {
		return nil, notFound(err, "文章", slug)
	}
	article.ViewCount = views
	s.loader.setIfCurrent(key, gen, &article, s.cfg.ArticleTTL)
	return &article, nil
}

// ContentID 把文章 slug / id 或影评 id 解析为评论挂载的内容 id
func (s *ContentService) ContentID(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("缺少内容 id: %w", ErrValidation)
	}
	a, err := s.store.FindArticle(ctx, ref)
	if err == nil {
		return a.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("查询文章失败: %w", err)
	}
	p, err := s.store.FindPost(ctx, ref)
	if err != nil {
		return "", notFound(err, "内容", ref)
	}
	return p.ID, nil
}

// ListArticles 全部文章（不含内容块）
func (s *ContentService) ListArticles(ctx context.Context) ([]models.Article, error) {
	articles, err := cachedList(ctx, s.loader, KeyAllArticles, s.cfg.CollectionTTL, s.store.ListArticles)
	if err != nil {
		return nil, fmt.Errorf("查询文章列表失败: %w", err)
	}
	return articles, nil
}

func blocksFrom(in []BlockInput) []models.ArticleBlock {
	blocks := make([]models.ArticleBlock, 0, len(in))
	for i, b := range in {
		kind := b.Kind
		if kind == "" {
			kind = "text"
		}
		blocks = append(blocks, models.ArticleBlock{Position: i, Kind: kind, Body: b.Body})
	}
	return blocks
}

func (s *ContentService) invalidateArticle(a *models.Article, extraSlugs ...string) {
	keys := []string{KeyAllArticles, ArticleKey(a.Slug), ArticleKey(a.ID)}
	for _, slug := range extraSlugs {
		keys = append(keys, ArticleKey(slug))
	}
	s.loader.invalidate(keys...)
}

func (s *ContentService) CreateArticle(ctx context.Context, authorID string, in ArticleInput) (*models.Article, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	if authorID == "" {
		return nil, fmt.Errorf("缺少作者: %w", ErrValidation)
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	a := &models.Article{
		Slug:     in.Slug,
		Title:    in.Title,
		Summary:  in.Summary,
		CoverURL: in.CoverURL,
		AuthorID: authorID,
		Blocks:   blocksFrom(in.Blocks),
	}
	if err := s.store.CreateArticle(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("slug %s 已存在: %w", in.Slug, ErrValidation)
		}
		return nil, fmt.Errorf("创建文章失败: %w", err)
	}
	s.invalidateArticle(a)
	return a, nil
}

func (s *ContentService) ownedArticle(ctx context.Context, slugOrID, callerID string) (*models.Article, error) {
	a, err := s.store.FindArticle(ctx, slugOrID)
	if err != nil {
		return nil, notFound(err, "文章", slugOrID)
	}
	if a.AuthorID != callerID {
		return nil, fmt.Errorf("只能修改自己的文章: %w", ErrForbidden)
	}
	return a, nil
}

// UpdateArticle 更新文章并整体替换内容块
func (s *ContentService) UpdateArticle(ctx context.Context, slugOrID, callerID string, in ArticleInput) (*models.Article, error) {
	in.Slug = strings.TrimSpace(in.Slug)
	if err := s.check(in); err != nil {
		return nil, err
	}
	a, err := s.ownedArticle(ctx, slugOrID, callerID)
	if err != nil {
		return nil, err
	}

	oldSlug := a.Slug
	a.Slug = in.Slug
	a.Title = in.Title
	a.Summary = in.Summary
	a.CoverURL = in.CoverURL
	a.Blocks = blocksFrom(in.Blocks)

	if err := s.store.UpdateArticle(ctx, a); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("slug %s 已存在: %w", in.Slug, ErrValidation)
		}
		return nil, notFound(err, "文章", slugOrID)
	}
	s.invalidateArticle(a, oldSlug)
	return a, nil
}

func (s *ContentService) DeleteArticle(ctx context.Context, slugOrID, callerID string) error {
	a, err := s.ownedArticle(ctx, slugOrID, callerID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteArticle(ctx, a.ID); err != nil {
		return notFound(err, "文章", slugOrID)
	}
	s.invalidateArticle(a)
	return nil
}

// shapePost 海报与评论海报只通过专用字段返回，不出现在图片列表里
func shapePost(p *models.Post) {
	gallery := make([]models.PostImage, 0, len(p.Images))
	for _, img := range p.Images {
		if img.Kind == models.ImageKindPoster || img.Kind == models.ImageKindReviewPoster {
			continue
		}
		if img.URL != "" && (img.URL == p.PosterURL || img.URL == p.ReviewPosterURL) {
			continue
		}
		gallery = append(gallery, img)
	}
	p.Images = gallery
}

func shapePosts(posts []models.Post) []models.Post {
	for i := range posts {
		shapePost(&posts[i])
	}
	return posts
}

// ListPosts 全部影评
func (s *ContentService) ListPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := cachedList(ctx, s.loader, KeyAllPosts, s.cfg.CollectionTTL, func(ctx context.Context) ([]models.Post, error) {
		posts, err := s.store.ListPosts(ctx)
		return shapePosts(posts), err
	})
	if err != nil {
		return nil, fmt.Errorf("查询影评列表失败: %w", err)
	}
	return posts, nil
}

func (s *ContentService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, err := s.store.FindPost(ctx, id)
	if err != nil {
		return nil, notFound(err, "影评", id)
	}
	shapePost(p)
	return p, nil
}

// LatestReviews 最新影评，允许在 TTL 内读到旧数据
func (s *ContentService) LatestReviews(ctx context.Context) ([]models.Post, error) {
	posts, err := cachedList(ctx, s.loader, KeyLatestReviews, s.cfg.LatestReviewsTTL, func(ctx context.Context) ([]models.Post, error) {
		posts, err := s.store.LatestPosts(ctx, s.cfg.LatestReviewsLimit)
		return shapePosts(posts), err
	})
	if err != nil {
		return nil, fmt.Errorf("查询最新影评失败: %w", err)
	}
	return posts, nil
}

func (s *ContentService) CreatePost(ctx context.Context, authorID string, in PostInput) (*models.Post, error) {
	if authorID == "" {
		return nil, fmt.Errorf("缺少作者: %w", ErrValidation)
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	p := &models.Post{
		Title:      in.Title,
		Content:    in.Content,
		MovieTitle: in.MovieTitle,
		Rating:     in.Rating,
		AuthorID:   authorID,
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("创建影评失败: %w", err)
	}
	s.loader.invalidate(KeyAllPosts)
	return p, nil
}

func (s *ContentService) ownedPost(ctx context.Context, id, callerID string) (*models.Post, error) {
	p, err := s.store.FindPost(ctx, id)
	if err != nil {
		return nil, notFound(err, "影评", id)
	}
	if p.AuthorID != callerID {
		return nil, fmt.Errorf("只能修改自己的影评: %w", ErrForbidden)
	}
	return p, nil
}

func (s *ContentService) UpdatePost(ctx context.Context, id, callerID string, in PostInput) (*models.Post, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	p, err := s.ownedPost(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	p.Title = in.Title
	p.Content = in.Content
	p.MovieTitle = in.MovieTitle
	p.Rating = in.Rating
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return nil, notFound(err, "影评", id)
	}
	s.loader.invalidate(KeyAllPosts)
	shapePost(p)
	return p, nil
}

func (s *ContentService) DeletePost(ctx context.Context, id, callerID string) error {
	p, err := s.ownedPost(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, p.ID); err != nil {
		return notFound(err, "影评", id)
	}
	s.loader.invalidate(KeyAllPosts, KeyTopPicks)

	for _, img := range p.Images {
		s.deleteStoredImage(ctx, img)
	}
	return nil
}

func (s *ContentService) deleteStoredImage(ctx context.Context, img models.PostImage) {
	if s.images == nil || img.StorageKey == "" {
		return
	}
	if err := s.images.Delete(ctx, img.StorageKey); err != nil {
		logging.Warn().Err(err).Str("image_id", img.ID).Msg("删除远端图片失败")
	}
}

// AddPostImage 上传图片并挂到帖子上，kind 为 poster / review_poster 时同时设置专用字段
func (s *ContentService) AddPostImage(ctx context.Context, postID, callerID, kind, filename string, r io.Reader) (*models.PostImage, error) {
	if kind == "" {
		kind = models.ImageKindGallery
	}
	switch kind {
	case models.ImageKindGallery, models.ImageKindPoster, models.ImageKindReviewPoster:
	default:
		return nil, fmt.Errorf("不支持的图片类型 %s: %w", kind, ErrValidation)
	}
	if s.images == nil {
		return nil, fmt.Errorf("未配置图片存储")
	}

	p, err := s.ownedPost(ctx, postID, callerID)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.images.Upload(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	img := &models.PostImage{
		PostID:     p.ID,
		URL:        uploaded.URL,
		StorageKey: uploaded.Key,
		Kind:       kind,
		Position:   len(p.Images),
	}
	if err := s.store.CreatePostImage(ctx, img); err != nil {
		s.deleteStoredImage(ctx, *img)
		return nil, fmt.Errorf("保存图片失败: %w", err)
	}
	s.loader.invalidate(KeyAllPosts)
	return img, nil
}

func (s *ContentService) DeletePostImage(ctx context.Context, postID, imageID, callerID string) error {
	p, err := s.ownedPost(ctx, postID, callerID)
	if err != nil {
		return err
	}
	img, err := s.store.FindPostImage(ctx, p.ID, imageID)
	if err != nil {
		return notFound(err, "图片", imageID)
	}
	if err := s.store.DeletePostImage(ctx, img); err != nil {
		return notFound(err, "图片", imageID)
	}
	s.loader.invalidate(KeyAllPosts)
	s.deleteStoredImage(ctx, *img)
	return nil
}

func (s *ContentService) ListTopPicks(ctx context.Context) ([]models.TopPick, error) {
	picks, err := cachedList(ctx, s.loader, KeyTopPicks, s.cfg.TopPicksTTL, func(ctx context.Context) ([]models.TopPick, error) {
		return s.store.ListTopPicks(ctx, s.cfg.TopPicksLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("查询精选失败: %w", err)
	}
	return picks, nil
}

func (s *ContentService) CreateTopPick(ctx context.Context, in TopPickInput) (*models.TopPick, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	tp := &models.TopPick{PostID: in.PostID, Title: in.Title, Note: in.Note}
	if err := s.store.CreateTopPick(ctx, tp); err != nil {
		return nil, notFound(err, "影评", in.PostID)
	}
	s.loader.invalidate(KeyTopPicks)
	return tp, nil
}

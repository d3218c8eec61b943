package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelnotes/internal/models"
	"reelnotes/internal/store"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// CommentConfig 评论策略
type CommentConfig struct {
	MaxDepth        int
	EditWindow      time.Duration
	Fanout          int
	DefaultPageSize int
	MaxPageSize     int
}

// CommentNode 评论及其回复数、嵌套回复
type CommentNode struct {
	models.Comment
	ReplyCount int64          `json:"reply_count"`
	Replies    []*CommentNode `json:"replies,omitempty"`
	// Truncated 为 true 表示还有更深的回复因深度限制未返回
	Truncated bool `json:"truncated,omitempty"`
}

// CommentPage 分页结果
type CommentPage struct {
	Comments []*CommentNode `json:"comments"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	HasMore  bool           `json:"has_more"`
}

// DeleteResult 删除结果，Tombstoned 为 false 表示整行已删除
type DeleteResult struct {
	ID         string `json:"id"`
	Tombstoned bool   `json:"tombstoned"`
}

type commentInput struct {
	Content string `validate:"required,max=1000"`
}

type CommentService struct {
	store    *store.Store
	cfg      CommentConfig
	validate *validator.Validate
	now      func() time.Time
}

func NewCommentService(st *store.Store, cfg CommentConfig) *CommentService {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 50
	}
	if cfg.EditWindow <= 0 {
		cfg.EditWindow = 24 * time.Hour
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = 8
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	return &CommentService{
		store:    st,
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *CommentService) cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if err := s.validate.Struct(commentInput{Content: content}); err != nil {
		return "", fmt.Errorf("评论内容不能为空且不超过 1000 字: %w", ErrValidation)
	}
	return content, nil
}

func (s *CommentService) paging(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

func (s *CommentService) findComment(ctx context.Context, id string) (*models.Comment, error) {
	c, err := s.store.FindComment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("评论 %s 不存在: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询评论失败: %w", err)
	}
	return c, nil
}

// withReplyCounts 把评论包装为节点并批量填充回复数
func (s *CommentService) withReplyCounts(ctx context.Context, comments []models.Comment) ([]*CommentNode, error) {
	ids := make([]string, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	counts, err := s.store.CountReplies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("统计回复数失败: %w", err)
	}

	nodes := make([]*CommentNode, len(comments))
	for i := range comments {
		nodes[i] = &CommentNode{Comment: comments[i], ReplyCount: counts[comments[i].ID]}
	}
	return nodes, nil
}

// CreateRootComment 在文章或帖子下发表顶层评论
func (s *CommentService) CreateRootComment(ctx context.Context, articleID, authorID, content string) (*CommentNode, error) {
	if authorID == "" {
		return nil, fmt.Errorf("缺少作者: %w", ErrValidation)
	}
	content, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.ContentExists(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("查询文章失败: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("文章 %s 不存在: %w", articleID, ErrNotFound)
	}

	now := s.now()
	c := models.Comment{
		ArticleID: articleID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateComment(ctx, &c); err != nil {
		return nil, fmt.Errorf("创建评论失败: %w", err)
	}
	return &CommentNode{Comment: c}, nil
}

// CreateReply 回复评论，回复始终归属于父评论所在的文章
func (s *CommentService) CreateReply(ctx context.Context, parentID, authorID, content string) (*CommentNode, error) {
	if authorID == "" {
		return nil, fmt.Errorf("缺少作者: %w", ErrValidation)
	}
	content, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	parent, err := s.findComment(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Depth+1 > s.cfg.MaxDepth {
		return nil, fmt.Errorf("回复层级超过 %d: %w", s.cfg.MaxDepth, ErrDepthExceeded)
	}

	now := s.now()
	reply := models.Comment{
		ArticleID: parent.ArticleID,
		AuthorID:  authorID,
		ParentID:  &parent.ID,
		Depth:     parent.Depth + 1,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateReply(ctx, &reply); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("评论 %s 不存在: %w", parentID, ErrNotFound)
		}
		return nil, fmt.Errorf("创建回复失败: %w", err)
	}
	return &CommentNode{Comment: reply}, nil
}

// FetchTopLevelComments 顶层评论，最新的在前
func (s *CommentService) FetchTopLevelComments(ctx context.Context, articleID string, page, pageSize int) (*CommentPage, error) {
	page, pageSize, skip := s.paging(page, pageSize)

	total, err := s.store.CountTopLevelComments(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("统计评论失败: %w", err)
	}
	comments, err := s.store.FindTopLevelComments(ctx, articleID, store.Newest, skip, pageSize)
	if err != nil {
		return nil, fmt.Errorf("查询评论失败: %w", err)
	}
	nodes, err := s.withReplyCounts(ctx, comments)
	if err != nil {
		return nil, err
	}

	return &CommentPage{
		Comments: nodes,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(skip+len(nodes)) < total,
	}, nil
}

// FetchReplies 直接回复按时间正序分页。nested 为 true 时每条回复携带完整子树，
// 分页只作用于第一层
func (s *CommentService) FetchReplies(ctx context.Context, parentID string, page, pageSize int, nested bool) (*CommentPage, error) {
	if _, err := s.findComment(ctx, parentID); err != nil {
		return nil, err
	}
	page, pageSize, skip := s.paging(page, pageSize)

	total, err := s.store.CountCommentsByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("统计回复失败: %w", err)
	}
	children, err := s.store.FindCommentsByParent(ctx, parentID, store.Oldest, skip, pageSize)
	if err != nil {
		return nil, fmt.Errorf("查询回复失败: %w", err)
	}
	nodes, err := s.withReplyCounts(ctx, children)
	if err != nil {
		return nil, err
	}

	if nested {
		if err := s.expand(ctx, nodes, 1); err != nil {
			return nil, err
		}
	}

	return &CommentPage{
		Comments: nodes,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(skip+len(nodes)) < total,
	}, nil
}

// expand 并发拉取同一层各节点的全部回复并递归展开。
// level 是 nodes 相对起点的层级，到达 MaxDepth 后不再展开，仅标记 Truncated
func (s *CommentService) expand(ctx context.Context, nodes []*CommentNode, level int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if level >= s.cfg.MaxDepth {
		for _, n := range nodes {
			if n.ReplyCount > 0 {
				n.Truncated = true
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Fanout)
	for _, n := range nodes {
		if n.ReplyCount == 0 {
			continue
		}
		n := n
		g.Go(func() error {
			children, err := s.store.FindCommentsByParent(gctx, n.ID, store.Oldest, 0, 0)
			if err != nil {
				return fmt.Errorf("查询回复失败: %w", err)
			}
			kids, err := s.withReplyCounts(gctx, children)
			if err != nil {
				return err
			}
			n.Replies = kids
			return s.expand(gctx, kids, level+1)
		})
	}
	return g.Wait()
}

// FetchCommentThread 向上找到根评论，再返回根下的完整回复树
func (s *CommentService) FetchCommentThread(ctx context.Context, commentID string) (*CommentNode, error) {
	c, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{c.ID: true}
	for c.ParentID != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parentID := *c.ParentID
		if visited[parentID] {
			return nil, fmt.Errorf("评论 %s 的父链存在环: %w", commentID, ErrValidation)
		}
		visited[parentID] = true

		if c, err = s.findComment(ctx, parentID); err != nil {
			return nil, err
		}
	}

	roots, err := s.withReplyCounts(ctx, []models.Comment{*c})
	if err != nil {
		return nil, err
	}
	if err := s.expand(ctx, roots, 0); err != nil {
		return nil, err
	}
	return roots[0], nil
}

// UpdateComment 作者在编辑窗口内修改评论
func (s *CommentService) UpdateComment(ctx context.Context, commentID, callerID, content string) (*CommentNode, error) {
	content, err := s.cleanContent(content)
	if err != nil {
		return nil, err
	}

	c, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != callerID {
		return nil, fmt.Errorf("只能编辑自己的评论: %w", ErrForbidden)
	}
	if c.Deleted {
		return nil, fmt.Errorf("评论已删除: %w", ErrValidation)
	}

	now := s.now()
	if now.Sub(c.CreatedAt) > s.cfg.EditWindow {
		return nil, fmt.Errorf("评论发布已超过 %s: %w", s.cfg.EditWindow, ErrEditWindowExpired)
	}

	if err := s.store.UpdateCommentContent(ctx, c.ID, content, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("评论已删除: %w", ErrValidation)
		}
		return nil, fmt.Errorf("更新评论失败: %w", err)
	}
	c.Content = content
	c.UpdatedAt = now

	nodes, err := s.withReplyCounts(ctx, []models.Comment{*c})
	if err != nil {
		return nil, err
	}
	return nodes[0], nil
}

// DeleteComment 有回复的评论保留为墓碑，叶子评论直接删除
func (s *CommentService) DeleteComment(ctx context.Context, commentID, callerID string) (*DeleteResult, error) {
	c, err := s.findComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != callerID {
		return nil, fmt.Errorf("只能删除自己的评论: %w", ErrForbidden)
	}
	if c.Deleted {
		return nil, fmt.Errorf("评论已删除: %w", ErrValidation)
	}

	removed, err := s.store.DeleteLeafComment(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("删除评论失败: %w", err)
	}
	if removed {
		return &DeleteResult{ID: c.ID}, nil
	}

	if err := s.store.TombstoneComment(ctx, c.ID, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("评论 %s 不存在: %w", commentID, ErrNotFound)
		}
		return nil, fmt.Errorf("删除评论失败: %w", err)
	}
	return &DeleteResult{ID: c.ID, Tombstoned: true}, nil
}

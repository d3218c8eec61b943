package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reelnotes/internal/logging"
	"reelnotes/internal/utils"

	"github.com/mmcdole/gofeed"
)

// RSSSource 从一组 RSS 订阅源抓取条目，部分订阅源失败时返回其余的结果
type RSSSource struct {
	name     string
	feeds    []string
	category string
	parser   *gofeed.Parser
}

// NewRSSSource 创建 RSS 来源
func NewRSSSource(name, category string, feeds []string, timeout time.Duration) *RSSSource {
	parser := gofeed.NewParser()
	parser.Client = newHTTPClient(timeout)
	parser.UserAgent = userAgent

	return &RSSSource{
		name:     name,
		feeds:    feeds,
		category: category,
		parser:   parser,
	}
}

func (f *RSSSource) Name() string { return f.name }

func (f *RSSSource) Fetch(ctx context.Context) (*FetchResult, error) {
	if len(f.feeds) == 0 {
		return nil, fmt.Errorf("%s: 未配置订阅源", f.name)
	}

	var items []ContentItem
	var lastErr error
	for _, feedURL := range f.feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			lastErr = err
			logging.Warn().Err(err).Str("feed", feedURL).Msg("解析 RSS 失败")
			continue
		}
		for _, item := range feed.Items {
			if ci, ok := f.convert(feed, item); ok {
				items = append(items, ci)
			}
		}
	}

	if len(items) == 0 && lastErr != nil {
		return nil, fmt.Errorf("解析 RSS 失败: %w", lastErr)
	}
	return &FetchResult{Items: items, Source: f.name}, nil
}

func (f *RSSSource) convert(feed *gofeed.Feed, item *gofeed.Item) (ContentItem, bool) {
	if item.Title == "" || item.Link == "" {
		return ContentItem{}, false
	}

	guid := item.GUID
	if guid == "" {
		guid = item.Link // 如果没有 GUID，使用 Link 作为唯一标识
	}

	var publishedAt time.Time
	if item.PublishedParsed != nil {
		publishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		publishedAt = *item.UpdatedParsed
	}

	author := ""
	if item.Author != nil {
		author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		author = item.Authors[0].Name
	}

	// 图片优先级: item image -> 图片附件 -> 正文/摘要中的第一张图
	imageURL := ""
	if item.Image != nil {
		imageURL = utils.ResolveURL(item.Image.URL, item.Link)
	}
	if imageURL == "" {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				imageURL = utils.ResolveURL(enc.URL, item.Link)
				break
			}
		}
	}
	if imageURL == "" {
		imageURL = utils.ExtractFirstImage(item.Content, item.Link)
	}
	if imageURL == "" {
		imageURL = utils.ExtractFirstImage(item.Description, item.Link)
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}

	sourceName := strings.TrimSpace(feed.Title)
	if sourceName == "" {
		sourceName = f.name
	}

	category := f.category
	if len(item.Categories) > 0 && category == "" {
		category = item.Categories[0]
	}

	return ContentItem{
		ExternalID:  guid,
		Title:       strings.TrimSpace(utils.StripHTML(item.Title)),
		Description: utils.Truncate(utils.StripHTML(description), 500),
		Content:     item.Content,
		URL:         item.Link,
		SourceName:  sourceName,
		Author:      author,
		ImageURL:    imageURL,
		Category:    category,
		PublishedAt: publishedAt,
	}, true
}

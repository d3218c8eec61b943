package services

import (
	"sort"
	"strings"
	"time"

	"reelnotes/internal/models"
	"reelnotes/internal/utils"
)

// Ranker 给上游条目打分、去重并排序
type Ranker struct {
	cfg      utils.RankConfig
	keywords []string
	maxItems int
}

func NewRanker(cfg utils.RankConfig, keywords []string, maxItems int) *Ranker {
	return &Ranker{cfg: cfg, keywords: keywords, maxItems: maxItems}
}

type scoredItem struct {
	ContentItem
	score float64
}

func dedupeKey(item ContentItem) string {
	if item.URL != "" {
		return "u:" + utils.NormalizeURL(item.URL)
	}
	return "t:" + strings.ToLower(strings.Join(strings.Fields(item.Title), " "))
}

// Rank 返回名次为 1..N 的排行条目。排序依次比较：分数降序、发布时间降序、标题、URL，
// 同样的输入总是得到同样的结果
func (r *Ranker) Rank(section models.Section, items []ContentItem, now time.Time) []models.RankedItem {
	seen := make(map[string]int, len(items))
	scored := make([]scoredItem, 0, len(items))

	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		s := scoredItem{
			ContentItem: item,
			score:       r.cfg.CalculateScore(item.Title, item.Description, item.SourceName, item.PublishedAt, now, r.keywords),
		}
		key := dedupeKey(item)
		if i, ok := seen[key]; ok {
			// 重复条目保留分数较高的一条
			if s.score > scored[i].score {
				scored[i] = s
			}
			continue
		}
		seen[key] = len(scored)
		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.URL < b.URL
	})

	if r.maxItems > 0 && len(scored) > r.maxItems {
		scored = scored[:r.maxItems]
	}

	ranked := make([]models.RankedItem, len(scored))
	for i, s := range scored {
		ranked[i] = models.RankedItem{
			Section:     section,
			Rank:        i + 1,
			Score:       s.score,
			ExternalID:  s.ExternalID,
			Title:       s.Title,
			Description: s.Description,
			URL:         s.URL,
			SourceName:  s.SourceName,
			Author:      s.Author,
			ImageURL:    s.ImageURL,
			Category:    s.Category,
			PublishedAt: s.PublishedAt,
			UpdatedAt:   now,
		}
	}
	return ranked
}

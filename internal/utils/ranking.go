package utils

import (
	"math"
	"strings"
	"time"
)

type RankConfig struct {
	Gravity       float64 // 时间重力 (1.5)
	RecencyScale  float64 // 新鲜度放大系数 (100)
	KeywordWeight float64 // 每个关键词命中的加分 (10)
	TitleFactor   float64 // 标题命中的倍数 (2)
	// SourceReputation 来源名称(小写) -> 加分，未列出的来源为 0
	SourceReputation map[string]float64
}

var DefaultConfig = RankConfig{
	Gravity:       1.5,
	RecencyScale:  100.0,
	KeywordWeight: 10.0,
	TitleFactor:   2.0,
	SourceReputation: map[string]float64{
		"variety":                10,
		"the hollywood reporter": 10,
		"deadline":               8,
		"indiewire":              6,
		"tmdb":                   8,
		"empire":                 5,
	},
}

// RecencyBoost 发布越久分数越低，衰减方式与帖子热度一致
func (c RankConfig) RecencyBoost(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0
	}
	hours := now.Sub(publishedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return c.RecencyScale / math.Pow(hours+2, c.Gravity)
}

// KeywordBoost 按关键词命中次数加分，标题中的命中按 TitleFactor 计
func (c RankConfig) KeywordBoost(title, description string, keywords []string) float64 {
	title = strings.ToLower(title)
	description = strings.ToLower(description)

	var score float64
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) {
			score += c.KeywordWeight * c.TitleFactor
		} else if strings.Contains(description, kw) {
			score += c.KeywordWeight
		}
	}
	return score
}

// SourceBoost 来源信誉加分
func (c RankConfig) SourceBoost(source string) float64 {
	return c.SourceReputation[strings.ToLower(strings.TrimSpace(source))]
}

// CalculateScore 综合关键词、新鲜度与来源信誉得分，保留两位小数
func (c RankConfig) CalculateScore(title, description, source string, publishedAt, now time.Time, keywords []string) float64 {
	score := c.KeywordBoost(title, description, keywords) +
		c.RecencyBoost(publishedAt, now) +
		c.SourceBoost(source)
	return math.Round(score*100) / 100
}

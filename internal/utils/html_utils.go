package utils

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// StripHTML 去掉全部标签并压缩空白，用于上游条目的摘要
func StripHTML(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}
	text := strictPolicy.Sanitize(htmlStr)
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// Truncate 按字符截断，超出时追加省略号
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ExtractFirstImage 返回 HTML 中第一张图片的绝对地址，没有则返回空串
func ExtractFirstImage(htmlStr, baseURL string) string {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	src := ""
	doc.Find("img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		// 懒加载图片的真实地址通常在 data-src
		for _, attr := range []string{"src", "data-src"} {
			if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
				src = strings.TrimSpace(v)
				return false
			}
		}
		return true
	})
	if src == "" {
		return ""
	}

	return ResolveURL(src, baseURL)
}

// ResolveURL 把相对地址解析为基于 baseURL 的绝对地址，无法解析时返回空串
func ResolveURL(raw, baseURL string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.IsAbs() || baseURL == "" {
		return u.String()
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

// NormalizeURL 用于去重：小写主机名，去掉 fragment、常见追踪参数和末尾斜杠
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "utm_") || key == "ref" || key == "fbclid" {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

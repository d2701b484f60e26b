package providers

import (
	"strings"

	"github.com/saiset-co/sai-travel/types"
)

const maxArticles = 10

var safetyKeywordsEN = []string{
	"crime", "murder", "robbery", "theft", "assault", "violence",
	"security", "danger", "warning", "alert", "travel advisory",
	"conflict", "war", "terrorism", "attack", "explosion",
	"protest", "riot", "unrest", "coup", "sanctions",
	"arrest", "gang", "drug", "kidnapping", "scam",
	"earthquake", "flood", "hurricane", "typhoon", "disaster",
}

var safetyKeywordsJA = []string{
	"犯罪", "殺人", "強盗", "窃盗", "暴行", "暴力",
	"治安", "危険", "警告", "注意喚起", "渡航情報",
	"紛争", "戦争", "テロ", "攻撃", "爆発",
	"デモ", "暴動", "クーデター", "制裁",
	"逮捕", "麻薬", "誘拐", "詐欺",
	"地震", "洪水", "台風", "ハリケーン", "災害",
}

// safetyQuery builds `"name" (k1 OR k2 ...)` from the first n English
// keywords.
func safetyQuery(name string, n int) string {
	if n > len(safetyKeywordsEN) {
		n = len(safetyKeywordsEN)
	}
	return `"` + name + `" (` + strings.Join(safetyKeywordsEN[:n], " OR ") + ")"
}

func isSafetyRelated(a types.NewsArticle) bool {
	text := strings.ToLower(a.Title + " " + a.Description)
	for _, kw := range safetyKeywordsEN {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, kw := range safetyKeywordsJA {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// FilterSafetyRelated keeps articles that mention a safety keyword. When
// none does, the input is returned unchanged.
func FilterSafetyRelated(articles []types.NewsArticle) []types.NewsArticle {
	filtered := make([]types.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if isSafetyRelated(a) {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) == 0 {
		return articles
	}
	return filtered
}

func dedupByURL(articles []types.NewsArticle, limit int) []types.NewsArticle {
	seen := make(map[string]struct{}, len(articles))
	out := make([]types.NewsArticle, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out
}

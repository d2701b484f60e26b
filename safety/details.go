package safety

import (
	"strings"

	"github.com/saiset-co/sai-travel/types"
)

const (
	CategoryAdvisory = "外務省危険情報"
	CategorySpot     = "スポット情報"
	CategoryMail     = "領事メール"
)

// SeenTitles records bulletin titles already turned into details. One set
// is shared by every bulletin kind of a single source expansion.
type SeenTitles map[string]struct{}

func NewSeenTitles() SeenTitles {
	return make(SeenTitles)
}

// Add reports whether title was new. Titles compare after trimming.
func (s SeenTitles) Add(title string) bool {
	key := strings.TrimSpace(title)
	if key == "" {
		return false
	}
	if _, exists := s[key]; exists {
		return false
	}
	s[key] = struct{}{}
	return true
}

// BuildDetails expands a primary advisory into details: the advisory
// itself first, then spot bulletins, then consular mail, each bulletin
// title at most once across both lists. seen may carry titles from an
// earlier expansion; a nil seen starts empty.
func BuildDetails(summary string, level int, spots, mails []types.Bulletin, seen SeenTitles) []types.SafetyDetail {
	if seen == nil {
		seen = NewSeenTitles()
	}

	details := make([]types.SafetyDetail, 0, 1+len(spots)+len(mails))
	details = append(details, types.SafetyDetail{
		Category:    CategoryAdvisory,
		Description: summary,
		Severity:    SeverityFor(level),
	})

	details = appendBulletins(details, CategorySpot, spots, seen, SeverityFor(level))
	details = appendBulletins(details, CategoryMail, mails, seen, types.SeverityLow)

	return details
}

func appendBulletins(details []types.SafetyDetail, category string, bulletins []types.Bulletin, seen SeenTitles, severity types.Severity) []types.SafetyDetail {
	for _, b := range bulletins {
		if !seen.Add(b.Title) {
			continue
		}

		description := strings.TrimSpace(b.Title)
		if lead := strings.TrimSpace(b.Lead); lead != "" {
			description += "。" + lead
		}

		details = append(details, types.SafetyDetail{
			Category:    category,
			Description: description,
			Severity:    severity,
		})
	}
	return details
}

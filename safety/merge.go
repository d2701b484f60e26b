package safety

import (
	"fmt"
	"strings"

	"github.com/saiset-co/sai-travel/types"
)

const (
	CategorySecondary = "米国国務省渡航情報"

	SourcePrimary = "外務省 海外安全情報"

	PlaceholderMissing     = "情報なし"
	PlaceholderUnavailable = "unavailable"
)

// Default is the conservative record served when the primary source fails.
func Default(code string) types.SafetyInfo {
	summary := "この国の最新の渡航安全情報を外務省の海外安全情報で確認してください。"
	return types.SafetyInfo{
		CountryCode: code,
		Level:       DefaultLevel,
		LevelLabel:  Label(DefaultLevel),
		Summary:     summary,
		Details: []types.SafetyDetail{
			{Category: "一般", Description: "旅行前に最新の安全情報を確認してください。", Severity: types.SeverityLow},
		},
		Source: SourcePrimary,
	}
}

// Unavailable is what the secondary source contributes when it fails.
func Unavailable() types.SecondaryAdvisory {
	return types.SecondaryAdvisory{Level: 0, Message: PlaceholderUnavailable}
}

// IsPlaceholder reports messages that carry no advisory text.
func IsPlaceholder(message string) bool {
	m := strings.TrimSpace(message)
	return m == "" || m == PlaceholderMissing || strings.EqualFold(m, PlaceholderUnavailable)
}

// Merge combines the primary record with the secondary advisory. The
// higher level wins and its label is taken from the level table. A real
// secondary message adds exactly one detail after the primary ones. b is
// nil when the secondary source failed; primary is never modified.
func Merge(primary types.SafetyInfo, b *types.SecondaryAdvisory) types.SafetyInfo {
	merged := primary
	merged.Details = make([]types.SafetyDetail, len(primary.Details), len(primary.Details)+1)
	copy(merged.Details, primary.Details)

	if b == nil {
		return merged
	}

	if b.Level > merged.Level && ValidLevel(b.Level) {
		merged.Level = b.Level
		merged.LevelLabel = Label(b.Level)
	}

	if !IsPlaceholder(b.Message) {
		merged.Details = append(merged.Details, types.SafetyDetail{
			Category:    CategorySecondary,
			Description: fmt.Sprintf("Level %d - %s", b.Level, strings.TrimSpace(b.Message)),
			Severity:    SeverityFor(b.Level),
		})
	}

	return merged
}

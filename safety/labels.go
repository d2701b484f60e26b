package safety

import (
	"github.com/saiset-co/sai-travel/types"
)

const (
	MinLevel = 0
	MaxLevel = 4

	// DefaultLevel is assumed when the primary advisory cannot be read.
	DefaultLevel = 1
)

var levelLabels = [...]string{
	"安全",
	"十分注意",
	"不要不急の渡航中止",
	"渡航中止勧告",
	"退避勧告",
}

var levelSummaries = [...]string{
	"現在、この国への危険情報は発出されていません。旅行前に最新の安全情報を確認してください。",
	"十分注意が必要です。外務省の最新情報を確認し、安全対策を徹底してください。",
	"不要不急の渡航は止めてください。渡航する場合は万全の安全対策が必要です。",
	"渡航は止めてください。現在、この国への渡航を中止するよう勧告しています。",
	"退避してください。この国への渡航は止め、現地に滞在中の方は速やかに退避してください。",
}

const unknownLabel = "不明"

func ValidLevel(level int) bool {
	return level >= MinLevel && level <= MaxLevel
}

// Label returns the display label for level, or 不明 when it is out of range.
func Label(level int) string {
	if !ValidLevel(level) {
		return unknownLabel
	}
	return levelLabels[level]
}

// Summary is the generic text used when a source publishes a level
// without any prose of its own.
func Summary(level int) string {
	if !ValidLevel(level) {
		return ""
	}
	return levelSummaries[level]
}

// SeverityFor steps a level down to three buckets: 0 low, 1-2 medium,
// 3-4 high.
func SeverityFor(level int) types.Severity {
	switch {
	case level <= 0:
		return types.SeverityLow
	case level <= 2:
		return types.SeverityMedium
	default:
		return types.SeverityHigh
	}
}

package catalog

import (
	"github.com/saiset-co/sai-travel/types"
)

// Annotate pairs every country with its level from snap. snap may be nil.
func Annotate(countries []types.Country, snap *Snapshot) []types.CountryListItem {
	items := make([]types.CountryListItem, 0, len(countries))
	for _, c := range countries {
		items = append(items, types.CountryListItem{
			Country:     c,
			SafetyLevel: snap.Level(c.Code),
		})
	}
	return items
}

// FilterLevel keeps items whose known level equals level. Items without a
// level never match.
func FilterLevel(items []types.CountryListItem, level int) []types.CountryListItem {
	out := make([]types.CountryListItem, 0, len(items))
	for _, item := range items {
		if item.SafetyLevel != nil && *item.SafetyLevel == level {
			out = append(out, item)
		}
	}
	return out
}

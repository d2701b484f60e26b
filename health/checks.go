package health

import (
	"context"
	"fmt"
	"time"

	"github.com/saiset-co/sai-travel/catalog"
	"github.com/saiset-co/sai-travel/types"
)

// CatalogSource is the part of the warm cache the health report reads.
type CatalogSource interface {
	State() catalog.State
	Snapshot() *catalog.Snapshot
}

// CatalogChecker is healthy once a snapshot exists. A cold index is
// unknown rather than unhealthy: listings still answer, only the level
// filter comes back empty.
func CatalogChecker(source CatalogSource) types.HealthChecker {
	return func(_ context.Context) types.HealthCheck {
		state := source.State()
		details := map[string]interface{}{
			"state": state.String(),
		}

		snap := source.Snapshot()
		if snap == nil {
			return types.HealthCheck{
				Status:  types.StatusUnknown,
				Message: "safety index not built yet",
				Details: details,
			}
		}

		known := 0
		for _, level := range snap.Levels {
			if level != nil {
				known++
			}
		}

		details["countries"] = len(snap.Levels)
		details["known_levels"] = known
		details["refreshed_at"] = snap.RefreshedAt.Format(time.RFC3339)

		return types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: details,
		}
	}
}

type CacheStatsSource interface {
	Stats() []types.CacheStats
}

func CacheChecker(source CacheStatsSource) types.HealthChecker {
	return func(_ context.Context) types.HealthCheck {
		details := make(map[string]interface{})
		for _, stats := range source.Stats() {
			details[stats.Name] = map[string]interface{}{
				"entries": stats.Entries,
				"hits":    stats.Hits,
				"misses":  stats.Misses,
				"ttl":     stats.TTL.String(),
			}
		}

		return types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: details,
		}
	}
}

type BreakerSource interface {
	BreakerStates() map[string]string
}

// UpstreamChecker lists every upstream breaker. Open breakers mark the
// check unknown; the service keeps answering with defaults either way.
func UpstreamChecker(source BreakerSource) types.HealthChecker {
	return func(_ context.Context) types.HealthCheck {
		states := source.BreakerStates()

		details := make(map[string]interface{}, len(states))
		open := 0
		for name, state := range states {
			details[name] = state
			if state == "open" {
				open++
			}
		}

		check := types.HealthCheck{
			Status:  types.StatusHealthy,
			Details: details,
		}
		if open > 0 {
			check.Status = types.StatusUnknown
			check.Message = fmt.Sprintf("%d of %d upstream breakers open", open, len(states))
		}
		return check
	}
}

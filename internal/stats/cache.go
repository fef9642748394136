package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Quybuom/hcckpi-tasks-sub000/internal/cache"
	"github.com/Quybuom/hcckpi-tasks-sub000/internal/scoring"
)

// StatsCache caches computed department statistics so repeated dashboard
// polls do not re-run the full aggregation pipeline.
type StatsCache struct {
	cache *cache.Cache
}

// NewStatsCache creates a statistics cache with the given TTL.
func NewStatsCache(ttl time.Duration) *StatsCache {
	return &StatsCache{
		cache: cache.NewCache(ttl),
	}
}

// generateCacheKey builds the cache key from the query dimensions. The
// period bounds are part of the key so different windows never collide.
func (sc *StatsCache) generateCacheKey(departmentID string, period *scoring.Period, limit int) string {
	window := "all"
	if period != nil {
		window = fmt.Sprintf("%d-%d", period.Start.Unix(), period.End.Unix())
	}
	return fmt.Sprintf("deptstats:%s:%s:%d", departmentID, window, limit)
}

// GetDepartment retrieves cached department statistics.
func (sc *StatsCache) GetDepartment(departmentID string, period *scoring.Period, limit int) (*DepartmentStats, bool) {
	cacheKey := sc.generateCacheKey(departmentID, period, limit)

	data, found := sc.cache.Get(cacheKey)
	if !found {
		return nil, false
	}

	var stats DepartmentStats
	if err := json.Unmarshal(data, &stats); err != nil {
		slog.Error("Failed to unmarshal cached department stats", "error", err, "key", cacheKey)
		return nil, false
	}

	slog.Debug("Department stats cache hit", "department_id", departmentID, "limit", limit)
	return &stats, true
}

// SetDepartment caches department statistics.
func (sc *StatsCache) SetDepartment(departmentID string, period *scoring.Period, limit int, stats *DepartmentStats) {
	cacheKey := sc.generateCacheKey(departmentID, period, limit)

	data, err := json.Marshal(stats)
	if err != nil {
		slog.Error("Failed to marshal department stats for cache", "error", err, "department_id", departmentID)
		return
	}

	sc.cache.Set(cacheKey, data)
	slog.Debug("Department stats cached", "department_id", departmentID, "standings", len(stats.Standings))
}

// GetStats returns cache statistics.
func (sc *StatsCache) GetStats() map[string]interface{} {
	return sc.cache.Stats()
}

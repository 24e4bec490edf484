package statistics

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/cache"
	"github.com/causekit/CauseLedger/internal/pkg/database"
	"github.com/gofiber/fiber/v2/log"
)

const (
	CacheKeyOverview = "statistics:ingest:overview"
	CacheExpiration  = 5 * time.Minute
)

// Overview is the throughput/error-rate snapshot served by the monitoring
// surface. It is a read-only projection; nothing on the write path consults
// it.
type Overview struct {
	Window24h   WindowStats              `json:"window_24h"`
	Daily       []models.IngestDailyStat `json:"daily"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// WindowStats aggregates ledger statuses over a recent window.
type WindowStats struct {
	Success   int64 `json:"success"`
	Failed    int64 `json:"failed"`
	Duplicate int64 `json:"duplicate"`
	Alerts    int64 `json:"alerts"`
}

var (
	lastCacheUpdate  time.Time
	cacheUpdateMutex sync.Mutex
	refreshInterval  = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached overview is stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > refreshInterval
}

// UpdateCacheIfNeeded refreshes the cached overview when stale. Called from
// the background worker, never from a request handler.
func UpdateCacheIfNeeded() {
	if !ShouldUpdateCache() {
		return
	}
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	if _, err := refreshOverview(); err != nil {
		log.Errorf("[Statistics] overview refresh failed: %v", err)
		return
	}
	lastCacheUpdate = time.Now()
}

// GetOverview returns the cached snapshot, computing it on a cache miss.
func GetOverview() (*Overview, error) {
	raw, err := cache.Get(CacheKeyOverview)
	if err == nil && raw != "" {
		var o Overview
		if err := json.Unmarshal([]byte(raw), &o); err == nil {
			return &o, nil
		}
	}
	return refreshOverview()
}

func refreshOverview() (*Overview, error) {
	repos := repository.NewRepositories(database.GetDB())
	since := time.Now().Add(-24 * time.Hour)

	success, err := repos.Event.CountByStatusSince(models.EventStatusSuccess, since)
	if err != nil {
		return nil, err
	}
	failed, err := repos.Event.CountByStatusSince(models.EventStatusFailed, since)
	if err != nil {
		return nil, err
	}
	duplicate, err := repos.Event.CountByStatusSince(models.EventStatusDuplicate, since)
	if err != nil {
		return nil, err
	}
	alerts, err := repos.Alert.CountSince(since)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	daily, err := repos.Stats.GetDailyStats(end.AddDate(0, 0, -14), end)
	if err != nil {
		return nil, err
	}

	o := &Overview{
		Window24h: WindowStats{
			Success:   success,
			Failed:    failed,
			Duplicate: duplicate,
			Alerts:    alerts,
		},
		Daily:       daily,
		GeneratedAt: time.Now().UTC(),
	}

	if buf, err := json.Marshal(o); err == nil {
		if err := cache.Set(CacheKeyOverview, string(buf), CacheExpiration); err != nil {
			log.Warnf("[Statistics] overview cache write failed: %v", err)
		}
	}
	return o, nil
}

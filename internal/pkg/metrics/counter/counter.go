package counter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/cache"
	"github.com/causekit/CauseLedger/internal/pkg/database"
)

const (
	acceptedKey  = "ingest:counters:accepted"
	duplicateKey = "ingest:counters:duplicate"
	failedKey    = "ingest:counters:failed"
	rejectedKey  = "ingest:counters:rejected"
)

// AddAccepted increments the pending accepted counter for a source in Redis
func AddAccepted(source string) {
	incr(acceptedKey, source)
}

// AddDuplicate increments the pending duplicate counter for a source in Redis
func AddDuplicate(source string) {
	incr(duplicateKey, source)
}

// AddFailed increments the pending failed counter for a source in Redis
func AddFailed(source string) {
	incr(failedKey, source)
}

// AddRejected increments the pending rejected counter for a source in Redis.
// Rejected covers everything turned away before the ledger: bad signatures,
// rate limits, replays.
func AddRejected(source string) {
	incr(rejectedKey, source)
}

func incr(key, source string) {
	ctx := context.Background()
	// Counter loss is acceptable; request handling never fails on metrics.
	_ = cache.GetClient().HIncrBy(ctx, key, source, 1).Err()
}

// FlushAll drains all pending counters into the daily stats table
func FlushAll() error {
	day := time.Now().UTC()
	for _, f := range []struct {
		key  string
		kind string
	}{
		{acceptedKey, "accepted"},
		{duplicateKey, "duplicate"},
		{failedKey, "failed"},
		{rejectedKey, "rejected"},
	} {
		if err := flushHashToStats(f.key, f.kind, day); err != nil {
			return err
		}
	}
	return nil
}

// flushHashToStats drains a Redis hash atomically and applies the batched
// increments to the ingest_daily_stats table. Uses RENAME to a temporary
// key for atomic drain without losing in-flight increments.
func flushHashToStats(redisKey, kind string, day time.Time) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil
		}
		if err.Error() == "redis: nil" {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	stats := repository.NewStatsRepository(database.GetDB())
	for source, v := range data {
		inc, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil || inc == 0 {
			continue
		}
		var accepted, duplicate, failed, rejected int64
		switch kind {
		case "accepted":
			accepted = inc
		case "duplicate":
			duplicate = inc
		case "failed":
			failed = inc
		case "rejected":
			rejected = inc
		}
		if err := stats.ApplyDailyIncrements(day, source, accepted, duplicate, failed, rejected); err != nil {
			return err
		}
	}
	return nil
}

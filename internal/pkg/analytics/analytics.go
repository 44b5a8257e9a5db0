package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/internal/pkg/cache"
)

const (
	CacheKeyViewsDaily   = "analytics:views:%s"           // date YYYY-MM-DD
	CacheKeySourcesDaily = "analytics:views:%s:sources"   // hash source -> count
	CounterTTL           = 48 * time.Hour
)

// DayKey formats a time as the per-day counter key segment.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// TrackView increments the view counters for today. Source is the normalized
// referrer host, or "direct".
func TrackView(ctx context.Context, source string) {
	client := cache.GetClient()
	if client == nil {
		return
	}
	if source == "" {
		source = "direct"
	}
	day := DayKey(time.Now())
	viewKey := fmt.Sprintf(CacheKeyViewsDaily, day)
	sourceKey := fmt.Sprintf(CacheKeySourcesDaily, day)

	pipe := client.Pipeline()
	pipe.Incr(ctx, viewKey)
	pipe.Expire(ctx, viewKey, CounterTTL)
	pipe.HIncrBy(ctx, sourceKey, source, 1)
	pipe.Expire(ctx, sourceKey, CounterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Errorf("[Analytics] Failed to track view: %v", err)
	}
}

// DayViews reads the view counter for a day.
func DayViews(ctx context.Context, day string) (int64, error) {
	val, err := cache.GetClient().Get(ctx, fmt.Sprintf(CacheKeyViewsDaily, day)).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// DaySources reads the per-source view breakdown for a day.
func DaySources(ctx context.Context, day string) (map[string]int64, error) {
	raw, err := cache.GetClient().HGetAll(ctx, fmt.Sprintf(CacheKeySourcesDaily, day)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for source, count := range raw {
		if n, err := strconv.ParseInt(count, 10, 64); err == nil {
			out[source] = n
		}
	}
	return out, nil
}

// ComputeDailyStat derives a day's aggregate row from raw counts and the
// previous day's row. prev may be nil on the first run.
func ComputeDailyStat(date time.Time, totalViews, userCount, paidUserCount, totalRevenue int64, prev *models.DailyStat) *models.DailyStat {
	stat := &models.DailyStat{
		Date:                      date,
		TotalViews:                totalViews,
		PrevDayViewsChangePercent: "0",
		UserCount:                 userCount,
		PaidUserCount:             paidUserCount,
		UserDelta:                 userCount,
		PaidUserDelta:             paidUserCount,
		TotalRevenue:              totalRevenue,
	}
	if prev == nil {
		return stat
	}

	stat.UserDelta = userCount - prev.UserCount
	stat.PaidUserDelta = paidUserCount - prev.PaidUserCount
	if prev.TotalViews > 0 {
		change := float64(totalViews-prev.TotalViews) / float64(prev.TotalViews) * 100
		stat.PrevDayViewsChangePercent = strconv.FormatFloat(change, 'f', 2, 64)
	}
	return stat
}

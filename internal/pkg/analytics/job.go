package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/app/models"
	"github.com/taskpilot/taskpilot/app/repository"
	"github.com/taskpilot/taskpilot/internal/pkg/env"
)

// DailyStatsJob aggregates the day's counters into a daily_stats row.
type DailyStatsJob struct {
	users repository.UserRepository
	stats repository.StatsRepository
}

// NewDailyStatsJob wires the job from the repository factory.
func NewDailyStatsJob(repos *repository.Repositories) *DailyStatsJob {
	return &DailyStatsJob{users: repos.User, stats: repos.Stats}
}

// Run computes and upserts today's stat row. It is safe to run repeatedly
// within a day; the row is keyed by date.
func (j *DailyStatsJob) Run() {
	ctx := context.Background()
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	userCount, err := j.users.CountAll()
	if err != nil {
		log.Errorf("[Analytics] Daily stats: user count failed: %v", err)
		return
	}
	paidCount, err := j.users.CountPaid()
	if err != nil {
		log.Errorf("[Analytics] Daily stats: paid user count failed: %v", err)
		return
	}

	totalViews, err := DayViews(ctx, DayKey(now))
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Errorf("[Analytics] Daily stats: view counter read failed: %v", err)
	}

	var prev *models.DailyStat
	if p, err := j.stats.GetByDate(today.AddDate(0, 0, -1)); err == nil {
		prev = p
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Analytics] Daily stats: previous day lookup failed: %v", err)
	}

	revenue := int64(0)
	if prev != nil {
		revenue = prev.TotalRevenue
	}

	stat := ComputeDailyStat(today, totalViews, userCount, paidCount, revenue, prev)
	if err := j.stats.UpsertDailyStat(stat); err != nil {
		log.Errorf("[Analytics] Daily stats: upsert failed: %v", err)
		return
	}

	sources, err := DaySources(ctx, DayKey(now))
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Errorf("[Analytics] Daily stats: source read failed: %v", err)
	}
	if len(sources) > 0 {
		stored, err := j.stats.GetByDate(today)
		if err != nil {
			log.Errorf("[Analytics] Daily stats: stat reload failed: %v", err)
			return
		}
		rows := make([]models.PageViewSource, 0, len(sources))
		for name, visitors := range sources {
			rows = append(rows, models.PageViewSource{
				Date:     today,
				Name:     name,
				Visitors: visitors,
			})
		}
		if err := j.stats.ReplaceViewSources(stored.ID, rows); err != nil {
			log.Errorf("[Analytics] Daily stats: source write failed: %v", err)
		}
	}

	log.Infof("[Analytics] Daily stats updated: views=%d users=%d paid=%d", totalViews, userCount, paidCount)
}

// StartCron schedules the daily stats job and returns the running scheduler.
// The schedule is configurable, hourly by default so the dashboard stays
// fresh during the day.
func StartCron(repos *repository.Repositories) *cron.Cron {
	schedule := env.GetEnv("ANALYTICS_CRON", "@hourly")

	c := cron.New()
	job := NewDailyStatsJob(repos)
	if _, err := c.AddJob(schedule, job); err != nil {
		log.Errorf("[Analytics] Invalid ANALYTICS_CRON %q: %v", schedule, err)
		_, _ = c.AddJob("@hourly", job)
	}
	c.Start()
	log.Infof("[Analytics] Daily stats cron started (%s)", schedule)
	return c
}

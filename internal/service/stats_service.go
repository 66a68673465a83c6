package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dispatch-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StatsService keeps realtime counters in redis (best-effort, TTL'd) and
// answers dashboard queries from those counters with the access log table as
// fallback. Aggregates are eventually consistent with the log stream; gaps
// are tolerated, not repaired.
type StatsService struct {
	logs  *repository.AccessLogRepository
	links *repository.LinkRepository
	redis *redis.Client
	log   *zap.Logger

	// Per-minute response time accumulator. Redis carries the shared copy;
	// this one answers locally when redis is unavailable.
	rtMu     sync.Mutex
	rtMinute string
	rtSumMs  float64
	rtCount  int64
}

func NewStatsService(logs *repository.AccessLogRepository, links *repository.LinkRepository, rdb *redis.Client, log *zap.Logger) *StatsService {
	return &StatsService{
		logs:  logs,
		links: links,
		redis: rdb,
		log:   log,
	}
}

type HourlyStats struct {
	Hour    string `json:"hour"`
	Visits  int64  `json:"visits"`
	Blocked int64  `json:"blocked"`
}

type GeoStats struct {
	CountryCode string  `json:"country_code"`
	Count       int64   `json:"count"`
	Percentage  float64 `json:"percentage"`
}

type TargetStats struct {
	TargetID   uint    `json:"target_id"`
	URL        string  `json:"url"`
	Hits       int64   `json:"hits"`
	Percentage float64 `json:"percentage"`
}

type RealtimeStats struct {
	Hourly      []HourlyStats          `json:"hourly"`
	Geographic  []GeoStats             `json:"geographic"`
	TopLinks    []repository.LinkCount `json:"top_links"`
	Summary     map[string]any         `json:"summary"`
	LastUpdated time.Time              `json:"last_updated"`
}

type LinkStats struct {
	LinkID      string        `json:"link_id"`
	TotalHits   int64         `json:"total_hits"`
	CurrentHits int           `json:"current_hits"`
	TotalCap    int           `json:"total_cap"`
	Targets     []TargetStats `json:"targets"`
}

const (
	hourKeyLayout   = "2006-01-02:15"
	dayKeyLayout    = "2006-01-02"
	minuteKeyLayout = "2006-01-02:15:04"
)

// RecordVisit updates realtime counters. Every write is best-effort: a redis
// fault costs freshness on the dashboard, never a dispatch.
func (s *StatsService) RecordVisit(linkID string, targetID uint, clientIP, country string, blocked bool) {
	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	now := time.Now()
	hourKey := now.Format(hourKeyLayout)

	pipe := s.redis.Pipeline()
	counterKey := fmt.Sprintf("stats:counter:%s", hourKey)
	pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, 26*time.Hour)

	if blocked {
		blockedKey := fmt.Sprintf("stats:blocked:%s", hourKey)
		pipe.Incr(ctx, blockedKey)
		pipe.Expire(ctx, blockedKey, 26*time.Hour)
	}

	ipSetKey := fmt.Sprintf("stats:ips:%s", hourKey)
	pipe.SAdd(ctx, ipSetKey, clientIP)
	pipe.Expire(ctx, ipSetKey, 2*time.Hour)

	if country != "" {
		countryKey := fmt.Sprintf("stats:country:%s", now.Format(dayKeyLayout))
		pipe.HIncrBy(ctx, countryKey, country, 1)
		pipe.Expire(ctx, countryKey, 25*time.Hour)
	}

	if targetID != 0 {
		targetKey := fmt.Sprintf("stats:targets:%s", linkID)
		pipe.HIncrBy(ctx, targetKey, fmt.Sprintf("%d", targetID), 1)
		pipe.Expire(ctx, targetKey, 25*time.Hour)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Debug("realtime stats update failed", zap.Error(err))
	}
}

// GetRealtimeStats builds the dashboard view for the trailing N hours.
func (s *StatsService) GetRealtimeStats(ctx context.Context, hours int) (*RealtimeStats, error) {
	if hours <= 0 || hours > 72 {
		hours = 24
	}
	now := time.Now()

	hourly := make([]HourlyStats, 0, hours)
	for i := hours - 1; i >= 0; i-- {
		hour := now.Add(-time.Duration(i) * time.Hour)
		hs, err := s.hourStats(ctx, hour)
		if err != nil {
			return nil, err
		}
		hourly = append(hourly, hs)
	}

	geo, err := s.geographicStats(ctx, now)
	if err != nil {
		return nil, err
	}

	topLinks, err := s.logs.TopLinks(now.Add(-time.Duration(hours)*time.Hour), 10)
	if err != nil {
		return nil, err
	}

	summary, err := s.summary(now)
	if err != nil {
		return nil, err
	}

	return &RealtimeStats{
		Hourly:      hourly,
		Geographic:  geo,
		TopLinks:    topLinks,
		Summary:     summary,
		LastUpdated: now,
	}, nil
}

func (s *StatsService) hourStats(ctx context.Context, hour time.Time) (HourlyStats, error) {
	hourKey := hour.Format(hourKeyLayout)
	hs := HourlyStats{Hour: hourKey}

	if s.redis != nil {
		visits, err := s.redis.Get(ctx, fmt.Sprintf("stats:counter:%s", hourKey)).Int64()
		if err == nil {
			blocked, _ := s.redis.Get(ctx, fmt.Sprintf("stats:blocked:%s", hourKey)).Int64()
			hs.Visits = visits
			hs.Blocked = blocked
			return hs, nil
		}
		if err != redis.Nil {
			s.log.Debug("hourly counter read failed, using database", zap.Error(err))
		}
	}

	start := hour.Truncate(time.Hour)
	end := start.Add(time.Hour)
	visits, err := s.logs.CountRange(start, end)
	if err != nil {
		return hs, err
	}
	blocked, err := s.logs.CountBlockedRange(start, end)
	if err != nil {
		return hs, err
	}
	hs.Visits = visits
	hs.Blocked = blocked
	return hs, nil
}

func (s *StatsService) geographicStats(ctx context.Context, now time.Time) ([]GeoStats, error) {
	var counts map[string]int64

	if s.redis != nil {
		countryKey := fmt.Sprintf("stats:country:%s", now.Format(dayKeyLayout))
		if raw, err := s.redis.HGetAll(ctx, countryKey).Result(); err == nil && len(raw) > 0 {
			counts = make(map[string]int64, len(raw))
			for code, v := range raw {
				var n int64
				fmt.Sscanf(v, "%d", &n)
				counts[code] = n
			}
		}
	}

	if counts == nil {
		dayStart := now.Truncate(24 * time.Hour)
		dbCounts, err := s.logs.CountryStats(dayStart)
		if err != nil {
			return nil, err
		}
		counts = dbCounts
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	stats := make([]GeoStats, 0, len(counts))
	for code, n := range counts {
		gs := GeoStats{CountryCode: code, Count: n}
		if total > 0 {
			gs.Percentage = float64(n) / float64(total) * 100
		}
		stats = append(stats, gs)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })
	return stats, nil
}

func (s *StatsService) summary(now time.Time) (map[string]any, error) {
	dayStart := now.Truncate(24 * time.Hour)
	weekStart := dayStart.AddDate(0, 0, -6)

	today, err := s.logs.CountSince(dayStart)
	if err != nil {
		return nil, err
	}
	week, err := s.logs.CountSince(weekStart)
	if err != nil {
		return nil, err
	}
	total, err := s.logs.CountSince(time.Time{})
	if err != nil {
		return nil, err
	}
	blocked, err := s.logs.CountBlockedSince(time.Time{})
	if err != nil {
		return nil, err
	}

	successRate := 100.0
	if total > 0 {
		successRate = float64(total-blocked) / float64(total) * 100
	}

	return map[string]any{
		"today_visits": today,
		"week_visits":  week,
		"total_visits": total,
		"blocked":      blocked,
		"success_rate": successRate,
	}, nil
}

// GetLinkStats returns per-link totals and the hit distribution over targets.
func (s *StatsService) GetLinkStats(ctx context.Context, linkID string) (*LinkStats, error) {
	link, err := s.links.GetByLinkID(linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, nil
	}

	totalHits, err := s.logs.CountByLink(link.ID)
	if err != nil {
		return nil, err
	}
	targetCounts, err := s.logs.TargetStats(link.ID)
	if err != nil {
		return nil, err
	}

	var sum int64
	for _, n := range targetCounts {
		sum += n
	}
	targets := make([]TargetStats, 0, len(link.Targets))
	for _, t := range link.Targets {
		ts := TargetStats{TargetID: t.ID, URL: t.URL, Hits: targetCounts[t.ID]}
		if sum > 0 {
			ts.Percentage = float64(ts.Hits) / float64(sum) * 100
		}
		targets = append(targets, ts)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Hits > targets[j].Hits })

	return &LinkStats{
		LinkID:      link.LinkID,
		TotalHits:   totalHits,
		CurrentHits: link.CurrentHits,
		TotalCap:    link.TotalCap,
		Targets:     targets,
	}, nil
}

// GetSystemStats returns the global summary block.
func (s *StatsService) GetSystemStats(ctx context.Context) (map[string]any, error) {
	return s.summary(time.Now())
}

// HourCounter reads one raw hourly counter; used by the alert evaluator's
// traffic spike check. The access log table answers when redis is
// unavailable.
func (s *StatsService) HourCounter(ctx context.Context, hour time.Time) int64 {
	if s.redis != nil {
		n, err := s.redis.Get(ctx, fmt.Sprintf("stats:counter:%s", hour.Format(hourKeyLayout))).Int64()
		if err == nil {
			return n
		}
		if err != redis.Nil {
			s.log.Debug("hourly counter read failed, using database", zap.Error(err))
		}
	}

	start := hour.Truncate(time.Hour)
	n, err := s.logs.CountRange(start, start.Add(time.Hour))
	if err != nil {
		return 0
	}
	return n
}

// RecordResponseTime folds one dispatch duration into the current minute's
// average. Best-effort like RecordVisit.
func (s *StatsService) RecordResponseTime(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	minute := time.Now().Format(minuteKeyLayout)

	s.rtMu.Lock()
	if s.rtMinute != minute {
		s.rtMinute = minute
		s.rtSumMs = 0
		s.rtCount = 0
	}
	s.rtSumMs += ms
	s.rtCount++
	s.rtMu.Unlock()

	if s.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pipe := s.redis.Pipeline()
	sumKey := fmt.Sprintf("stats:rt:sum:%s", minute)
	countKey := fmt.Sprintf("stats:rt:count:%s", minute)
	pipe.IncrByFloat(ctx, sumKey, ms)
	pipe.Incr(ctx, countKey)
	pipe.Expire(ctx, sumKey, 10*time.Minute)
	pipe.Expire(ctx, countKey, 10*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Debug("response time update failed", zap.Error(err))
	}
}

// AvgResponseTime returns the mean dispatch duration in milliseconds for the
// given minute, with the sample count.
func (s *StatsService) AvgResponseTime(ctx context.Context, minute time.Time) (float64, int64) {
	key := minute.Format(minuteKeyLayout)

	if s.redis != nil {
		sum, errSum := s.redis.Get(ctx, fmt.Sprintf("stats:rt:sum:%s", key)).Float64()
		count, errCount := s.redis.Get(ctx, fmt.Sprintf("stats:rt:count:%s", key)).Int64()
		if errSum == nil && errCount == nil && count > 0 {
			return sum / float64(count), count
		}
	}

	s.rtMu.Lock()
	defer s.rtMu.Unlock()
	if s.rtMinute != key || s.rtCount == 0 {
		return 0, 0
	}
	return s.rtSumMs / float64(s.rtCount), s.rtCount
}

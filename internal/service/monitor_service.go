package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dispatch-service/config"
	"dispatch-service/internal/models"
	"dispatch-service/internal/producer"
	"dispatch-service/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrAlertNotFound = errors.New("alert not found")

// MonitorService periodically evaluates aggregated metrics against
// configured thresholds and manages the alert lifecycle. Alert creation is
// debounced per type: while an alert of a type is unresolved, or within the
// cooldown of its creation, no duplicate is raised.
type MonitorService struct {
	db     *gorm.DB
	redis  *redis.Client
	alerts *repository.AlertRepository
	logs   *repository.AccessLogRepository
	links  *repository.LinkRepository
	stats  *StatsService
	kafka  config.KafkaConfig
	log    *zap.Logger

	mu  sync.RWMutex
	cfg config.MonitorConfig
}

func NewMonitorService(db *gorm.DB, rdb *redis.Client, alerts *repository.AlertRepository, logs *repository.AccessLogRepository, links *repository.LinkRepository, stats *StatsService, cfg config.MonitorConfig, kafka config.KafkaConfig, log *zap.Logger) *MonitorService {
	return &MonitorService{
		db:     db,
		redis:  rdb,
		alerts: alerts,
		logs:   logs,
		links:  links,
		stats:  stats,
		kafka:  kafka,
		cfg:    cfg,
		log:    log,
	}
}

// Start runs the evaluation loop until the context is cancelled.
func (s *MonitorService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Config().CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunChecks(ctx)
		}
	}
}

// RunChecks evaluates every alert rule once.
func (s *MonitorService) RunChecks(ctx context.Context) {
	s.checkErrorRate(ctx)
	s.checkResponseTime(ctx)
	s.checkTrafficSpike(ctx)
	s.checkLinkCapacities(ctx)
	s.checkSystemHealth(ctx)
}

// checkErrorRate compares the blocked share of the last five minutes against
// the threshold. Small samples are ignored to avoid noise.
func (s *MonitorService) checkErrorRate(ctx context.Context) {
	since := time.Now().Add(-5 * time.Minute)
	total, err := s.logs.CountSince(since)
	if err != nil || total < 100 {
		return
	}
	blocked, err := s.logs.CountBlockedSince(since)
	if err != nil {
		return
	}

	cfg := s.Config()
	rate := float64(blocked) / float64(total)
	if rate > cfg.ErrorRateThreshold {
		s.createAlert(ctx, &models.Alert{
			Type:    models.AlertTypeErrorRate,
			Level:   models.AlertLevelCritical,
			Title:   "High block rate detected",
			Message: fmt.Sprintf("blocked rate is %.2f%% (threshold %.2f%%)", rate*100, cfg.ErrorRateThreshold*100),
		}, map[string]any{
			"blocked_count": blocked,
			"total_count":   total,
			"blocked_rate":  rate,
		})
	}
}

// checkResponseTime compares the current minute's mean dispatch duration
// against the threshold. Small samples are ignored to avoid noise.
func (s *MonitorService) checkResponseTime(ctx context.Context) {
	avgMs, count := s.stats.AvgResponseTime(ctx, time.Now())
	if count < 10 {
		return
	}

	cfg := s.Config()
	thresholdMs := float64(cfg.ResponseTimeThreshold) / float64(time.Millisecond)
	if avgMs > thresholdMs {
		s.createAlert(ctx, &models.Alert{
			Type:    models.AlertTypeResponseTime,
			Level:   models.AlertLevelWarning,
			Title:   "Slow dispatch responses",
			Message: fmt.Sprintf("average dispatch time is %.2fms (threshold %.0fms)", avgMs, thresholdMs),
		}, map[string]any{
			"avg_response_time_ms": avgMs,
			"sample_count":         count,
			"threshold_ms":         thresholdMs,
		})
	}
}

// checkTrafficSpike compares the current hour's counter to the same hour
// yesterday.
func (s *MonitorService) checkTrafficSpike(ctx context.Context) {
	now := time.Now()
	current := s.stats.HourCounter(ctx, now)
	yesterday := s.stats.HourCounter(ctx, now.AddDate(0, 0, -1))
	if yesterday == 0 {
		return
	}

	cfg := s.Config()
	spike := float64(current) / float64(yesterday)
	if spike > cfg.TrafficSpikeThreshold {
		s.createAlert(ctx, &models.Alert{
			Type:    models.AlertTypeTrafficSpike,
			Level:   models.AlertLevelWarning,
			Title:   "Traffic spike detected",
			Message: fmt.Sprintf("traffic is %.1fx the same hour yesterday", spike),
		}, map[string]any{
			"current_traffic":   current,
			"yesterday_traffic": yesterday,
			"spike_ratio":       spike,
		})
	}
}

func (s *MonitorService) checkLinkCapacities(ctx context.Context) {
	cfg := s.Config()
	links, err := s.links.LinksNearCap(cfg.LinkCapThreshold)
	if err != nil {
		s.log.Error("link capacity check failed", zap.Error(err))
		return
	}
	for _, link := range links {
		usage := float64(link.CurrentHits) / float64(link.TotalCap)
		s.createAlert(ctx, &models.Alert{
			Type:    models.AlertTypeLinkCap,
			Level:   models.AlertLevelWarning,
			Title:   fmt.Sprintf("Link %s approaching cap", link.LinkID),
			Message: fmt.Sprintf("link has used %.1f%% of its cap (%d/%d)", usage*100, link.CurrentHits, link.TotalCap),
		}, map[string]any{
			"link_id":      link.LinkID,
			"current_hits": link.CurrentHits,
			"total_cap":    link.TotalCap,
		})
	}
}

func (s *MonitorService) checkSystemHealth(ctx context.Context) {
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		s.createAlert(ctx, &models.Alert{
			Type:    models.AlertTypeSystemHealth,
			Level:   models.AlertLevelCritical,
			Title:   "Database connection failed",
			Message: "unable to ping the database",
		}, nil)
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.createAlert(ctx, &models.Alert{
				Type:    models.AlertTypeSystemHealth,
				Level:   models.AlertLevelWarning,
				Title:   "Redis connection failed",
				Message: "unable to ping redis; cache and realtime stats degraded",
			}, map[string]any{"error": err.Error()})
		}
	}
}

func (s *MonitorService) createAlert(ctx context.Context, alert *models.Alert, details map[string]any) {
	cooldown := s.Config().AlertCooldown
	suppressed, err := s.alerts.InCooldown(alert.Type, cooldown)
	if err != nil {
		s.log.Error("alert cooldown check failed", zap.String("type", alert.Type), zap.Error(err))
		return
	}
	if suppressed {
		return
	}

	alert.ID = uuid.New().String()
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			alert.Details = string(data)
		}
	}
	if err := s.alerts.Create(alert); err != nil {
		s.log.Error("failed to persist alert", zap.String("type", alert.Type), zap.Error(err))
		return
	}

	s.log.Warn("alert raised",
		zap.String("id", alert.ID),
		zap.String("type", alert.Type),
		zap.String("level", alert.Level),
		zap.String("message", alert.Message))

	if len(s.kafka.Brokers) > 0 {
		go func() {
			msg := producer.AlertMessage{
				ID:      alert.ID,
				Type:    alert.Type,
				Level:   alert.Level,
				Title:   alert.Title,
				Message: alert.Message,
				Details: details,
			}
			if err := producer.SendAlertKafka(s.kafka.Brokers, s.kafka.Topic, msg); err != nil {
				s.log.Error("alert notification publish failed", zap.String("id", alert.ID), zap.Error(err))
			}
		}()
	}
}

func (s *MonitorService) ListAlerts(status string, limit int) ([]models.Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.alerts.List(status, limit)
}

func (s *MonitorService) AcknowledgeAlert(id string) error {
	alert, err := s.alerts.GetByID(id)
	if err != nil {
		return err
	}
	if alert == nil {
		return ErrAlertNotFound
	}
	alert.Acknowledged = true
	return s.alerts.Save(alert)
}

func (s *MonitorService) ResolveAlert(id string) error {
	alert, err := s.alerts.GetByID(id)
	if err != nil {
		return err
	}
	if alert == nil {
		return ErrAlertNotFound
	}
	if alert.ResolvedAt == nil {
		now := time.Now()
		alert.ResolvedAt = &now
	}
	return s.alerts.Save(alert)
}

func (s *MonitorService) Config() config.MonitorConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// UpdateConfig replaces the thresholds. The new check interval takes effect
// on the next evaluator restart; thresholds apply immediately.
func (s *MonitorService) UpdateConfig(cfg config.MonitorConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

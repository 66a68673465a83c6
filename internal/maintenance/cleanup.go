package maintenance

import (
	"context"
	"time"

	"dispatch-service/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the nightly access-log retention purge.
type Scheduler struct {
	c             *cron.Cron
	log           *zap.Logger
	logRepo       *repository.AccessLogRepository
	retentionDays int
}

func NewScheduler(log *zap.Logger, logRepo *repository.AccessLogRepository, retentionDays int) *Scheduler {
	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)), cron.WithChain())
	return &Scheduler{
		c: c, log: log,
		logRepo:       logRepo,
		retentionDays: retentionDays,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.c.AddFunc("0 3 * * *", func() {
		s.purgeOldLogs()
	})
	if err != nil {
		return err
	}
	s.c.Start()
	s.log.Info("maintenance scheduler started", zap.Int("retention_days", s.retentionDays))
	// Catch up on startup in case the service was down at 03:00.
	go s.purgeOldLogs()

	go func() {
		<-ctx.Done()
		ctxStop := s.c.Stop()
		<-ctxStop.Done()
	}()
	return nil
}

func (s *Scheduler) purgeOldLogs() {
	if s.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.logRepo.DeleteOlderThan(cutoff)
	if err != nil {
		s.log.Error("access log purge failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.log.Info("purged old access logs",
			zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}

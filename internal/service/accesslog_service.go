package service

import (
	"sync"

	"dispatch-service/internal/metrics"
	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"

	"go.uber.org/zap"
)

// AccessLogService decouples log persistence from the dispatch response: a
// bounded channel feeds a single writer goroutine. When the buffer is full
// the entry is dropped — cap reservations already committed are never rolled
// back for the sake of a log row.
type AccessLogService struct {
	repo    *repository.AccessLogRepository
	entries chan *models.AccessLog
	log     *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewAccessLogService(repo *repository.AccessLogRepository, buffer int, log *zap.Logger) *AccessLogService {
	if buffer <= 0 {
		buffer = 1024
	}
	s := &AccessLogService{
		repo:    repo,
		entries: make(chan *models.AccessLog, buffer),
		log:     log,
		done:    make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// Record enqueues one entry. Returns false when the entry was dropped under
// backpressure.
func (s *AccessLogService) Record(entry *models.AccessLog) bool {
	select {
	case s.entries <- entry:
		return true
	default:
		metrics.AccessLogDropped.Inc()
		s.log.Warn("access log buffer full, entry dropped", zap.Uint("link_id", entry.LinkID))
		return false
	}
}

func (s *AccessLogService) writeLoop() {
	defer close(s.done)
	for entry := range s.entries {
		if err := s.repo.Create(entry); err != nil {
			s.log.Error("failed to persist access log", zap.Uint("link_id", entry.LinkID), zap.Error(err))
		}
	}
}

// Close drains buffered entries and stops the writer.
func (s *AccessLogService) Close() {
	s.closeOnce.Do(func() {
		close(s.entries)
	})
	<-s.done
}

func (s *AccessLogService) Query(filter repository.LogFilter, offset, limit int) ([]models.AccessLog, int64, error) {
	return s.repo.Query(filter, offset, limit)
}

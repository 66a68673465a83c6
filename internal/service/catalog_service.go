package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/teris-io/shortid"
	"go.uber.org/zap"
)

// CatalogService serves link+target reads for the dispatch path through a
// bounded-staleness redis cache, and owns administrative mutations, which
// invalidate the cache so a stale read never outlives the TTL.
type CatalogService struct {
	repo     *repository.LinkRepository
	redis    *redis.Client
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewCatalogService(repo *repository.LinkRepository, rdb *redis.Client, cacheTTL time.Duration, log *zap.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		redis:    rdb,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func cacheKey(linkID string) string {
	return fmt.Sprintf("link:%s", linkID)
}

// GetActiveLink returns an active link with its active targets, or nil when
// none exists. Cache faults fall through to the database.
func (s *CatalogService) GetActiveLink(ctx context.Context, linkID string) (*models.Link, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey(linkID)).Result(); err == nil {
			var link models.Link
			if err := json.Unmarshal([]byte(cached), &link); err == nil {
				return &link, nil
			}
		}
	}

	link, err := s.repo.GetActiveByLinkID(linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if link == nil {
		return nil, nil
	}

	s.cacheLink(ctx, link)
	return link, nil
}

func (s *CatalogService) cacheLink(ctx context.Context, link *models.Link) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(link)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(link.LinkID), data, s.cacheTTL).Err(); err != nil {
		s.log.Debug("link cache write failed", zap.String("link_id", link.LinkID), zap.Error(err))
	}
}

// Invalidate drops the cached copy after an administrative mutation.
func (s *CatalogService) Invalidate(ctx context.Context, linkID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(linkID)).Err(); err != nil {
		s.log.Debug("link cache invalidation failed", zap.String("link_id", linkID), zap.Error(err))
	}
}

// CreateLink assigns a link_id when absent and persists the link.
func (s *CatalogService) CreateLink(ctx context.Context, link *models.Link) error {
	if link.LinkID == "" {
		link.LinkID = generateLinkID()
	}
	if err := s.repo.Create(link); err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	s.Invalidate(ctx, link.LinkID)
	return nil
}

func (s *CatalogService) UpdateLink(ctx context.Context, link *models.Link) error {
	if err := s.repo.Save(link); err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	s.Invalidate(ctx, link.LinkID)
	return nil
}

func (s *CatalogService) DeleteLink(ctx context.Context, linkID string) (bool, error) {
	ok, err := s.repo.Delete(linkID)
	if err != nil {
		return false, fmt.Errorf("failed to delete link: %w", err)
	}
	s.Invalidate(ctx, linkID)
	return ok, nil
}

// CreateTarget validates and stores a target. Countries/param fields are
// normalized to canonical JSON here so the hot path never sees ambiguous
// shapes it did not produce itself.
func (s *CatalogService) CreateTarget(ctx context.Context, link *models.Link, target *models.Target, countries []string, paramMapping, staticParams map[string]string) error {
	target.LinkID = link.ID
	target.Countries = encodeCountries(countries)
	target.ParamMapping = encodeParams(paramMapping)
	target.StaticParams = encodeParams(staticParams)
	if err := s.repo.CreateTarget(target); err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}
	s.Invalidate(ctx, link.LinkID)
	return nil
}

func (s *CatalogService) UpdateTarget(ctx context.Context, linkID string, target *models.Target) error {
	if err := s.repo.SaveTarget(target); err != nil {
		return fmt.Errorf("failed to update target: %w", err)
	}
	s.Invalidate(ctx, linkID)
	return nil
}

// UpdateTargetFields re-normalizes only the JSON columns whose new values were
// supplied, then persists the target.
func (s *CatalogService) UpdateTargetFields(ctx context.Context, linkID string, target *models.Target, countries *[]string, paramMapping, staticParams *map[string]string) error {
	if countries != nil {
		target.Countries = encodeCountries(*countries)
	}
	if paramMapping != nil {
		target.ParamMapping = encodeParams(*paramMapping)
	}
	if staticParams != nil {
		target.StaticParams = encodeParams(*staticParams)
	}
	return s.UpdateTarget(ctx, linkID, target)
}

func (s *CatalogService) GetLink(linkID string) (*models.Link, error) {
	return s.repo.GetByLinkID(linkID)
}

func (s *CatalogService) ListLinks(offset, limit int) ([]models.Link, int64, error) {
	return s.repo.List(offset, limit)
}

func (s *CatalogService) GetTarget(targetID uint) (*models.Target, error) {
	return s.repo.GetTarget(targetID)
}

func (s *CatalogService) GetTargets(linkID uint) ([]models.Target, error) {
	return s.repo.GetTargets(linkID)
}

func (s *CatalogService) DeleteTarget(ctx context.Context, linkID string, targetID uint) (bool, error) {
	ok, err := s.repo.DeleteTarget(targetID)
	if err != nil {
		return false, fmt.Errorf("failed to delete target: %w", err)
	}
	s.Invalidate(ctx, linkID)
	return ok, nil
}

func generateLinkID() string {
	if id, err := shortid.Generate(); err == nil {
		return id
	}
	// shortid only fails on a broken entropy source; fall back to a uuid prefix.
	return strings.ReplaceAll(uuid.New().String()[:8], "-", "")
}

func encodeCountries(countries []string) string {
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	data, _ := json.Marshal(out)
	return string(data)
}

func encodeParams(m map[string]string) string {
	if m == nil {
		m = map[string]string{}
	}
	data, _ := json.Marshal(m)
	return string(data)
}

package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"dispatch-service/internal/metrics"
	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"

	"go.uber.org/zap"
)

type DispatchStatus int

const (
	StatusDispatched DispatchStatus = iota
	StatusBlocked
)

type BlockReason string

const (
	ReasonNoSuchLink BlockReason = "no_such_link"
	ReasonNoCapacity BlockReason = "no_capacity"
)

// DispatchRequest is one inbound redirect request.
type DispatchRequest struct {
	LinkID       string
	BusinessUnit string
	Params       map[string]string
	IP           string
	Country      string
	UserAgent    string
	Referer      string
}

// DispatchResult is the terminal outcome: a redirect URL or an explicit block.
type DispatchResult struct {
	Status   DispatchStatus
	URL      string
	Reason   BlockReason
	TargetID uint // 0 when no target was chosen (backup or block path)
	Fallback bool
}

// DispatchService orchestrates one resolution: catalog read, eligibility
// filter, weighted pick, atomic cap reservations, parameter remapping and log
// emission. Cap contention is expected and handled by re-drawing without the
// lost target; only infrastructure faults surface as errors.
type DispatchService struct {
	catalog *CatalogService
	caps    *repository.CapRepository
	logs    *AccessLogService
	stats   *StatsService
	timeout time.Duration
	log     *zap.Logger
}

func NewDispatchService(catalog *CatalogService, caps *repository.CapRepository, logs *AccessLogService, stats *StatsService, timeout time.Duration, log *zap.Logger) *DispatchService {
	return &DispatchService{
		catalog: catalog,
		caps:    caps,
		logs:    logs,
		stats:   stats,
		timeout: timeout,
		log:     log,
	}
}

func (s *DispatchService) Resolve(ctx context.Context, req *DispatchRequest) (*DispatchResult, error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		metrics.DispatchDuration.Observe(elapsed.Seconds())
		if s.stats != nil {
			s.stats.RecordResponseTime(elapsed)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.resolve(ctx, req)
	switch {
	case err != nil:
		metrics.DispatchTotal.WithLabelValues(metrics.OutcomeError).Inc()
	case res.Status == StatusBlocked:
		metrics.DispatchTotal.WithLabelValues(metrics.OutcomeBlocked).Inc()
	case res.Fallback:
		metrics.DispatchTotal.WithLabelValues(metrics.OutcomeFallback).Inc()
	default:
		metrics.DispatchTotal.WithLabelValues(metrics.OutcomeDispatched).Inc()
	}
	return res, err
}

func (s *DispatchService) resolve(ctx context.Context, req *DispatchRequest) (*DispatchResult, error) {
	link, err := s.catalog.GetActiveLink(ctx, req.LinkID)
	if err != nil {
		return nil, err
	}
	if link == nil || (req.BusinessUnit != "" && link.BusinessUnit != req.BusinessUnit) {
		return &DispatchResult{Status: StatusBlocked, Reason: ReasonNoSuchLink}, nil
	}

	// Pre-check only: the cached counter may lag by up to the cache TTL.
	// The authoritative link reservation happens after target selection so a
	// request that finds no eligible target never consumes link quota.
	if link.CapExhausted() {
		return s.fallback(ctx, link, req), nil
	}

	eligible := EligibleTargets(link.Targets, req.Country, s.log)
	for len(eligible) > 0 {
		target := PickWeighted(eligible)

		ok, err := s.caps.TryReserveTarget(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost the race for this target's last slot; re-draw over the rest.
			eligible = ExcludeTarget(eligible, target.ID)
			continue
		}

		ok, err = s.caps.TryReserveLink(ctx, link.ID)
		if err != nil {
			s.release(target.ID, 0)
			return nil, err
		}
		if !ok {
			// Link quota ran out under us; no other target can help.
			s.release(target.ID, 0)
			return s.fallback(ctx, link, req), nil
		}

		finalURL, err := buildTargetURL(target, req.Params)
		if err != nil {
			s.log.Warn("target has unparseable url or params, skipping",
				zap.Uint("target_id", target.ID), zap.Error(err))
			s.release(target.ID, link.ID)
			eligible = ExcludeTarget(eligible, target.ID)
			continue
		}

		s.record(link, target, req, false)
		return &DispatchResult{Status: StatusDispatched, URL: finalURL, TargetID: target.ID}, nil
	}

	return s.fallback(ctx, link, req), nil
}

// fallback is the terminal path when no target is eligible or the link cap is
// exhausted: the backup URL when configured, an explicit block otherwise.
func (s *DispatchService) fallback(ctx context.Context, link *models.Link, req *DispatchRequest) *DispatchResult {
	if link.BackupURL != "" {
		s.record(link, nil, req, false)
		return &DispatchResult{Status: StatusDispatched, URL: link.BackupURL, Fallback: true}
	}
	s.record(link, nil, req, true)
	return &DispatchResult{Status: StatusBlocked, Reason: ReasonNoCapacity}
}

// release compensates reservations for a request that will not complete.
// Best-effort: a failed release only skews reported counters, never caps
// below their configured limits.
func (s *DispatchService) release(targetID, linkID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if targetID != 0 {
		if err := s.caps.ReleaseTarget(ctx, targetID); err != nil {
			s.log.Error("failed to release target reservation", zap.Uint("target_id", targetID), zap.Error(err))
		}
	}
	if linkID != 0 {
		if err := s.caps.ReleaseLink(ctx, linkID); err != nil {
			s.log.Error("failed to release link reservation", zap.Uint("link_id", linkID), zap.Error(err))
		}
	}
}

func (s *DispatchService) record(link *models.Link, target *models.Target, req *DispatchRequest, blocked bool) {
	entry := &models.AccessLog{
		LinkID:    link.ID,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Referer:   req.Referer,
		Country:   req.Country,
		Blocked:   blocked,
	}
	var targetID uint
	if target != nil {
		id := target.ID
		entry.TargetID = &id
		targetID = id
	}
	s.logs.Record(entry)
	if s.stats != nil {
		s.stats.RecordVisit(link.LinkID, targetID, req.IP, req.Country, blocked)
	}
}

// buildTargetURL renames inbound query parameters per the target's mapping,
// passes unmapped ones through, and fills in static parameters for keys not
// already present; a mapped parameter always wins over a static one with the
// same final name.
func buildTargetURL(target *models.Target, params map[string]string) (string, error) {
	mapping, err := target.ParamMappingMap()
	if err != nil {
		return "", fmt.Errorf("param_mapping: %w", err)
	}
	static, err := target.StaticParamsMap()
	if err != nil {
		return "", fmt.Errorf("static_params: %w", err)
	}

	// Renames resolve against the inbound params only, never against each
	// other's output, so chained mappings cannot depend on iteration order.
	renamed := make(map[string]string, len(mapping))
	consumed := make(map[string]bool, len(mapping))
	for oldKey, newKey := range mapping {
		if val, exists := params[oldKey]; exists {
			renamed[newKey] = val
			consumed[oldKey] = true
		}
	}

	out := make(map[string]string, len(params)+len(static))
	for k, v := range params {
		if !consumed[k] {
			out[k] = v
		}
	}
	for k, v := range renamed {
		out[k] = v
	}
	for k, v := range static {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}

	u, err := url.Parse(target.URL)
	if err != nil {
		return "", fmt.Errorf("target url: %w", err)
	}
	query := u.Query()
	for k, v := range out {
		query.Set(k, v)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

package service

import (
	"math/rand"

	"dispatch-service/internal/models"

	"go.uber.org/zap"
)

// EligibleTargets filters a link's targets for one request: active, positive
// weight, country allowed (empty list or "ALL" is a wildcard) and cap not
// exhausted. The cap check here is an optimistic pre-filter; the authoritative
// check is the atomic reservation in CapRepository. A target whose country
// rules fail to parse is skipped and logged, never fatal for the link.
func EligibleTargets(targets []models.Target, country string, log *zap.Logger) []*models.Target {
	eligible := make([]*models.Target, 0, len(targets))
	for i := range targets {
		t := &targets[i]
		if !t.IsActive || t.Weight <= 0 {
			continue
		}
		if t.CapExhausted() {
			continue
		}
		allowed, err := t.AllowsCountry(country)
		if err != nil {
			if log != nil {
				log.Warn("target has malformed country rules, skipping",
					zap.Uint("target_id", t.ID), zap.Error(err))
			}
			continue
		}
		if !allowed {
			continue
		}
		eligible = append(eligible, t)
	}
	return eligible
}

// PickWeighted draws one target with probability weight/totalWeight.
// Returns nil for an empty set.
func PickWeighted(targets []*models.Target) *models.Target {
	switch len(targets) {
	case 0:
		return nil
	case 1:
		return targets[0]
	}

	totalWeight := 0
	for _, t := range targets {
		totalWeight += t.Weight
	}

	r := rand.Intn(totalWeight)
	for _, t := range targets {
		r -= t.Weight
		if r < 0 {
			return t
		}
	}
	return targets[len(targets)-1]
}

// ExcludeTarget removes one target from the eligible set after a lost cap
// race, so the next draw re-normalizes over the remaining weights.
func ExcludeTarget(targets []*models.Target, id uint) []*models.Target {
	out := targets[:0]
	for _, t := range targets {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

package repository

import (
	"context"

	"dispatch-service/internal/models"

	"gorm.io/gorm"
)

// CapRepository is the single authority over hit counters. Reservations are
// one guarded UPDATE each: the cap comparison and the increment happen in the
// same statement, so concurrent callers racing for the last slot are
// serialized by the database row lock and at most cap increments ever succeed.
// A zero cap means unlimited; the counter still increments for reporting.
type CapRepository struct {
	db *gorm.DB
}

func NewCapRepository(db *gorm.DB) *CapRepository {
	return &CapRepository{
		db: db,
	}
}

// TryReserveLink consumes one slot of the link's total cap. Returns false
// when the cap is already exhausted.
func (r *CapRepository) TryReserveLink(ctx context.Context, linkID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("id = ? AND (total_cap = 0 OR current_hits < total_cap)", linkID).
		UpdateColumn("current_hits", gorm.Expr("current_hits + 1"))
	return res.RowsAffected > 0, res.Error
}

// TryReserveTarget consumes one slot of the target's cap.
func (r *CapRepository) TryReserveTarget(ctx context.Context, targetID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Target{}).
		Where("id = ? AND (cap = 0 OR current_hits < cap)", targetID).
		UpdateColumn("current_hits", gorm.Expr("current_hits + 1"))
	return res.RowsAffected > 0, res.Error
}

// ReleaseLink compensates a reservation that could not complete.
func (r *CapRepository) ReleaseLink(ctx context.Context, linkID uint) error {
	return r.db.WithContext(ctx).Model(&models.Link{}).
		Where("id = ? AND current_hits > 0", linkID).
		UpdateColumn("current_hits", gorm.Expr("current_hits - 1")).Error
}

// ReleaseTarget compensates a reservation that could not complete.
func (r *CapRepository) ReleaseTarget(ctx context.Context, targetID uint) error {
	return r.db.WithContext(ctx).Model(&models.Target{}).
		Where("id = ? AND current_hits > 0", targetID).
		UpdateColumn("current_hits", gorm.Expr("current_hits - 1")).Error
}

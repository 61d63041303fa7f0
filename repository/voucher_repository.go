package repository

import (
	"checkout-service/models"
	"checkout-service/services"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVoucherRepository implements services.VoucherStore using GORM.
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository.
func NewGormVoucherRepository(db *gorm.DB) services.VoucherStore {
	return &GormVoucherRepository{db: db}
}

// ActiveByCode retrieves a voucher active in the channel at the instant.
func (r *GormVoucherRepository) ActiveByCode(ctx context.Context, code, channelSlug string, at time.Time) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Where("code = ? AND channel_slug = ? AND active = ?", code, channelSlug, true).
		Where("start_date <= ?", at).
		Where("end_date IS NULL OR end_date > ?", at).
		First(&voucher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrVoucherNotFound
		}
		return nil, err
	}
	return &voucher, nil
}

// Redeem takes a FOR UPDATE lock on the voucher row for the duration of the
// check-and-increment, closing the time-of-check/time-of-use race between
// concurrent completions sharing one limited code.
func (r *GormVoucherRepository) Redeem(ctx context.Context, code string, at time.Time) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("code = ? AND active = ?", code, true).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&voucher).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.ErrVoucherNotFound
			}
			return err
		}
		if !voucher.ActiveAt(at) {
			return services.ErrVoucherNotFound
		}
		if voucher.UsageLimit != nil && voucher.UsedCount >= *voucher.UsageLimit {
			return services.ErrVoucherUsageLimitReached
		}
		voucher.UsedCount++
		return tx.Model(&models.Voucher{}).
			Where("id = ?", voucher.ID).
			UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// ReleaseUsage decrements the usage counter, flooring at zero.
func (r *GormVoucherRepository) ReleaseUsage(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).Model(&models.Voucher{}).
		Where("code = ? AND used_count > 0", code).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
}

// internal/domain/order/store.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicateOrderNumber signals an order-number collision on insert; the
// caller regenerates the number and retries.
var ErrDuplicateOrderNumber = errors.New("order number already exists")

// Store persists orders. It is narrow on purpose so the assembly engine can
// be exercised against a fake.
type Store interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID uint, page, limit int) ([]Order, int64, error)
	Update(ctx context.Context, o *Order, fields map[string]interface{}) error
	AddRefund(ctx context.Context, o *Order, r *Refund) error
	CountCouponUse(ctx context.Context, userID uint, code string) (int64, error)
}

// GormStore is the Postgres-backed order store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a gorm-backed order store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Create persists a new order with its items in one transaction
func (s *GormStore) Create(ctx context.Context, o *Order) error {
	err := s.db.WithContext(ctx).Create(o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its items and refunds
func (s *GormStore) GetByID(ctx context.Context, id uint) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).Preload("Items").Preload("Refunds").First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// GetByNumber retrieves an order by its order number
func (s *GormStore) GetByNumber(ctx context.Context, number string) (*Order, error) {
	var o Order
	err := s.db.WithContext(ctx).Preload("Items").Preload("Refunds").
		Where("order_number = ?", number).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &o, nil
}

// ListByUser retrieves a user's orders, newest first
func (s *GormStore) ListByUser(ctx context.Context, userID uint, page, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64

	query := s.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * limit
	if err := query.Preload("Items").Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return orders, total, nil
}

// Update applies field updates to an order
func (s *GormStore) Update(ctx context.Context, o *Order, fields map[string]interface{}) error {
	if err := s.db.WithContext(ctx).Model(o).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// AddRefund records a refund and updates the payment counters in one transaction
func (s *GormStore) AddRefund(ctx context.Context, o *Order, r *Refund) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("failed to create refund: %w", err)
		}
		if err := tx.Model(o).Updates(map[string]interface{}{
			"payment_refunded_amount": o.Payment.RefundedAmount,
			"payment_status":          o.Payment.Status,
		}).Error; err != nil {
			return fmt.Errorf("failed to update payment state: %w", err)
		}
		return nil
	})
}

// CountCouponUse counts a user's non-cancelled orders carrying the coupon code
func (s *GormStore) CountCouponUse(ctx context.Context, userID uint, code string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Order{}).
		Where("user_id = ? AND coupon_code = ? AND status <> ?", userID, code, OrderStatusCancelled).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count coupon usage: %w", err)
	}
	return count, nil
}

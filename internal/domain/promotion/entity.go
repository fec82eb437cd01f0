// internal/domain/promotion/entity.go
package promotion

import (
	"time"

	"gorm.io/gorm"

	"github.com/your-org/shoestore-backend/internal/domain/product"
)

// DiscountType represents how a coupon discounts the applicable amount
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Coupon represents a user-entered discount code
type Coupon struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	Code           string       `gorm:"uniqueIndex;not null;size:50" json:"code"` // Always stored uppercase
	Description    string       `gorm:"size:255" json:"description"`
	DiscountType   DiscountType `gorm:"not null;size:20" json:"discount_type"`
	Value          int64        `gorm:"not null" json:"value"`      // Percent for percentage type, cents for fixed
	MinOrderAmount int64        `json:"min_order_amount"`           // Minimum applicable amount in cents
	MaxDiscount    int64        `json:"max_discount"`               // Cap in cents, percentage type only, 0 = uncapped
	UsageLimit     *int         `json:"usage_limit"`                // nil = unlimited
	UsedCount      int          `gorm:"default:0" json:"used_count"`
	PerUserLimit   int          `json:"per_user_limit"` // 0 = unlimited per user
	ValidFrom      time.Time    `gorm:"not null" json:"valid_from"`
	ValidTo        time.Time    `gorm:"not null" json:"valid_to"`

	// Applicability filters. Empty allow-lists mean the coupon applies to
	// everything except explicitly excluded products; the exclusion list
	// always takes precedence.
	ApplicableProducts   []uint   `gorm:"serializer:json" json:"applicable_products"`
	ApplicableCategories []string `gorm:"serializer:json" json:"applicable_categories"`
	ApplicableBrands     []string `gorm:"serializer:json" json:"applicable_brands"`
	ExcludedProducts     []uint   `gorm:"serializer:json" json:"excluded_products"`

	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedBy uint           `gorm:"index" json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FlashSale represents a time-boxed promotional price override
type FlashSale struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:255" json:"name"`
	StartTime time.Time      `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time      `gorm:"not null;index" json:"end_time"`
	Priority  int            `gorm:"default:0" json:"priority"` // Higher wins ties across overlapping sales
	IsActive  bool           `gorm:"default:false" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []FlashSaleItem `gorm:"foreignKey:FlashSaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
}

// FlashSaleItem represents a per-variant sale entry with a limited quantity
type FlashSaleItem struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	FlashSaleID  uint         `gorm:"not null;index" json:"flash_sale_id"`
	ProductID    uint         `gorm:"not null;index" json:"product_id"`
	Size         product.Size `gorm:"not null;size:10" json:"size"`
	Color        string       `gorm:"not null;size:50" json:"color"`
	SalePrice    int64        `gorm:"not null" json:"sale_price"` // In cents
	Quantity     int          `gorm:"not null" json:"quantity"`   // Units available at the sale price
	SoldQuantity int          `gorm:"default:0" json:"sold_quantity"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName overrides
func (Coupon) TableName() string        { return "coupons" }
func (FlashSale) TableName() string     { return "flash_sales" }
func (FlashSaleItem) TableName() string { return "flash_sale_items" }

// Business methods for Coupon

// IsCurrentlyValid reports whether the coupon can be redeemed at now
func (c *Coupon) IsCurrentlyValid(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return false
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false
	}
	return true
}

// AppliesTo reports whether the coupon covers the given product. The
// exclusion list wins over every allow-list; empty allow-lists mean the
// coupon applies store-wide.
func (c *Coupon) AppliesTo(p *product.Product) bool {
	for _, id := range c.ExcludedProducts {
		if id == p.ID {
			return false
		}
	}

	if len(c.ApplicableProducts) == 0 && len(c.ApplicableCategories) == 0 && len(c.ApplicableBrands) == 0 {
		return true
	}

	for _, id := range c.ApplicableProducts {
		if id == p.ID {
			return true
		}
	}
	for _, category := range c.ApplicableCategories {
		if category == p.Category {
			return true
		}
	}
	for _, brand := range c.ApplicableBrands {
		if brand == p.Brand {
			return true
		}
	}
	return false
}

// Business methods for FlashSale

// IsRunning reports whether now falls inside the sale window
func (fs *FlashSale) IsRunning(now time.Time) bool {
	return !now.Before(fs.StartTime) && !now.After(fs.EndTime)
}

// FindItem locates the sale entry matching a product variant key
func (fs *FlashSale) FindItem(productID uint, size product.Size, color string) *FlashSaleItem {
	for i := range fs.Items {
		item := &fs.Items[i]
		if item.ProductID == productID && item.Size == size && item.Color == color {
			return item
		}
	}
	return nil
}

// Remaining returns the units still available at the sale price
func (i *FlashSaleItem) Remaining() int {
	remaining := i.Quantity - i.SoldQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}

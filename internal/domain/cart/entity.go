// internal/domain/cart/entity.go
package cart

import (
	"time"

	"gorm.io/gorm"

	"github.com/your-org/shoestore-backend/internal/domain/product"
)

// Cart belongs to exactly one user and owns its items
type Cart struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalItems  int            `gorm:"default:0" json:"total_items"`
	TotalAmount int64          `gorm:"default:0" json:"total_amount"` // In cents
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem denormalizes a snapshot of the chosen variant at add time
type CartItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CartID    uint           `gorm:"not null;index" json:"cart_id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	Size      product.Size   `gorm:"not null;size:10" json:"size"`
	Color     string         `gorm:"not null;size:50" json:"color"`
	SKU       string         `gorm:"not null;size:100" json:"sku"`
	Price     int64          `gorm:"not null" json:"price"` // Per unit at add time, in cents
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// Recompute rebuilds the cart totals from its items. Totals are never edited
// by hand; every mutation path calls this.
func (c *Cart) Recompute() {
	c.TotalItems = 0
	c.TotalAmount = 0
	for i := range c.Items {
		c.TotalItems += c.Items[i].Quantity
		c.TotalAmount += c.Items[i].Price * int64(c.Items[i].Quantity)
	}
}

// FindItem locates an item by its variant key
func (c *Cart) FindItem(productID uint, size product.Size, color string) *CartItem {
	for i := range c.Items {
		item := &c.Items[i]
		if item.ProductID == productID && item.Size == size && item.Color == color {
			return item
		}
	}
	return nil
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

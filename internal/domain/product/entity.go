// internal/domain/product/entity.go
package product

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Size represents a fixed shoe size
type Size string

const (
	SizeUS6  Size = "US6"
	SizeUS7  Size = "US7"
	SizeUS8  Size = "US8"
	SizeUS9  Size = "US9"
	SizeUS10 Size = "US10"
	SizeUS11 Size = "US11"
	SizeUS12 Size = "US12"
	SizeUS13 Size = "US13"
)

// AllSizes lists every valid shoe size in display order
var AllSizes = []Size{SizeUS6, SizeUS7, SizeUS8, SizeUS9, SizeUS10, SizeUS11, SizeUS12, SizeUS13}

// ParseSize validates a size string
func ParseSize(s string) (Size, error) {
	for _, size := range AllSizes {
		if string(size) == s {
			return size, nil
		}
	}
	return "", fmt.Errorf("invalid shoe size: %q", s)
}

// Product represents the product entity
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Slug        string         `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string         `gorm:"type:text" json:"description"`
	Brand       string         `gorm:"not null;size:100;index" json:"brand"`
	Category    string         `gorm:"not null;size:100;index" json:"category"`
	ImageURL    string         `gorm:"size:500" json:"image_url"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Variant represents a size/color SKU of a product, independently priced and stocked
type Variant struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	ProductID         uint           `gorm:"not null;index;uniqueIndex:idx_variant_key" json:"product_id"`
	Size              Size           `gorm:"not null;size:10;uniqueIndex:idx_variant_key" json:"size"`
	Color             string         `gorm:"not null;size:50;uniqueIndex:idx_variant_key" json:"color"`
	ColorCode         string         `gorm:"size:10" json:"color_code"`
	SKU               string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Price             int64          `gorm:"not null" json:"price"` // Price in cents
	ComparePrice      int64          `json:"compare_price"`         // Original price for strike-through display
	Stock             int            `gorm:"not null;default:0" json:"stock"`
	LowStockThreshold int            `gorm:"default:5" json:"low_stock_threshold"`
	Weight            float64        `json:"weight"` // Weight in grams
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Product) TableName() string { return "products" }
func (Variant) TableName() string { return "product_variants" }

// FindVariant locates a variant by its (size, color) key. Linear scan is fine
// for the per-product variant counts we carry.
func (p *Product) FindVariant(size Size, color string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Size == size && p.Variants[i].Color == color {
			return &p.Variants[i]
		}
	}
	return nil
}

// Business methods for Variant

func (v *Variant) IsInStock() bool {
	return v.Stock > 0
}

func (v *Variant) IsLowStock() bool {
	return v.Stock <= v.LowStockThreshold
}

func (v *Variant) GetFormattedPrice() float64 {
	return float64(v.Price) / 100
}

func (v *Variant) GetDiscountPercentage() int {
	if v.ComparePrice > 0 && v.Price < v.ComparePrice {
		return int(((v.ComparePrice - v.Price) * 100) / v.ComparePrice)
	}
	return 0
}

// internal/domain/order/entity.go
package order

import (
	"time"

	"gorm.io/gorm"

	"github.com/your-org/shoestore-backend/internal/domain/product"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// PaymentStatus represents payment status, tracked separately from order status
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

// Order represents the order entity. Pricing fields are recomputed from items
// and discounts on every save, never trusted from client input.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	Status      OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	// Financial information, in cents
	SubtotalAmount int64 `gorm:"not null" json:"subtotal_amount"`
	TaxAmount      int64 `gorm:"default:0" json:"tax_amount"`
	ShippingAmount int64 `gorm:"default:0" json:"shipping_amount"`
	DiscountAmount int64 `gorm:"default:0" json:"discount_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`

	// Discount breakdown
	CouponCode        string `gorm:"size:50" json:"coupon_code"`
	CouponDiscount    int64  `gorm:"default:0" json:"coupon_discount"`
	FlashSaleID       *uint  `gorm:"index" json:"flash_sale_id"`
	FlashSaleDiscount int64  `gorm:"default:0" json:"flash_sale_discount"`

	// Shipping
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	ShippingMethod  string  `gorm:"size:100" json:"shipping_method"`
	Currency        string  `gorm:"size:3;default:'USD'" json:"currency"`

	// Payment
	Payment Payment `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	// Timestamps
	ConfirmedAt *time.Time     `json:"confirmed_at"`
	ProcessedAt *time.Time     `json:"processed_at"`
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	ReturnedAt  *time.Time     `json:"returned_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items   []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Refunds []Refund    `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"refunds,omitempty"`
}

// OrderItem is a frozen snapshot of the product and variant at purchase time,
// so later catalog edits never alter order history
type OrderItem struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	OrderID     uint         `gorm:"not null;index" json:"order_id"`
	ProductID   uint         `gorm:"not null;index" json:"product_id"`
	VariantID   uint         `gorm:"not null;index" json:"variant_id"`
	ProductName string       `gorm:"not null;size:255" json:"product_name"`
	Brand       string       `gorm:"size:100" json:"brand"`
	ImageURL    string       `gorm:"size:500" json:"image_url"`
	Size        product.Size `gorm:"not null;size:10" json:"size"`
	Color       string       `gorm:"not null;size:50" json:"color"`
	SKU         string       `gorm:"not null;size:100" json:"sku"`
	Quantity    int          `gorm:"not null" json:"quantity"`
	UnitPrice   int64        `gorm:"not null" json:"unit_price"`   // Per unit in cents
	TotalPrice  int64        `gorm:"not null" json:"total_price"`  // Quantity * UnitPrice
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Payment tracks payment state and refund totals, embedded in Order
type Payment struct {
	Status         PaymentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Method         string        `gorm:"size:50" json:"method"`
	PaidAmount     int64         `gorm:"default:0" json:"paid_amount"`
	RefundedAmount int64         `gorm:"default:0" json:"refunded_amount"`
}

// Refund records a single refund against an order
type Refund struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Amount    int64     `gorm:"not null" json:"amount"` // In cents
	Reason    string    `gorm:"size:255" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Address represents the shipping address (embedded in Order)
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name"`
	LastName     string `gorm:"size:100" json:"last_name"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }
func (Refund) TableName() string    { return "order_refunds" }

// validTransitions encodes the order status state machine
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusReturned},
}

// IsValidStatus reports whether s names a known order status
func IsValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// CanTransitionTo reports whether the order may move to the target status
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range validTransitions[o.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanBeCancelled checks if the order can still be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.CanTransitionTo(OrderStatusCancelled)
}

// ComputeTotal derives the payable total, clamped at zero
func (o *Order) ComputeTotal() int64 {
	total := o.SubtotalAmount + o.TaxAmount + o.ShippingAmount - o.DiscountAmount
	if total < 0 {
		return 0
	}
	return total
}

// RefundableBalance returns how much can still be refunded
func (o *Order) RefundableBalance() int64 {
	return o.TotalAmount - o.Payment.RefundedAmount
}

// GetFormattedTotal returns total amount as float
func (o *Order) GetFormattedTotal() float64 {
	return float64(o.TotalAmount) / 100
}

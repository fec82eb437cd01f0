// internal/interfaces/http/handlers/promotion.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/shoestore-backend/internal/config"
	"github.com/your-org/shoestore-backend/internal/domain/promotion"
	"github.com/your-org/shoestore-backend/internal/interfaces/http/middleware"
)

// PromotionHandler handles coupon and flash-sale endpoints
type PromotionHandler struct {
	promotionService *promotion.Service
	config           *config.Config
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(promotionService *promotion.Service, cfg *config.Config) *PromotionHandler {
	return &PromotionHandler{
		promotionService: promotionService,
		config:           cfg,
	}
}

// GetActiveFlashSales handles GET /flash-sales
func (h *PromotionHandler) GetActiveFlashSales(c *gin.Context) {
	sales, err := h.promotionService.FindActiveFlashSales(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve flash sales",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Flash sales retrieved successfully",
		"data":    sales,
	})
}

// GetCoupon handles GET /coupons/:code
func (h *PromotionHandler) GetCoupon(c *gin.Context) {
	coupon, err := h.promotionService.FindCouponByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve coupon",
		})
		return
	}
	if coupon == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Coupon not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon retrieved successfully",
		"data": gin.H{
			"code":             coupon.Code,
			"description":      coupon.Description,
			"discount_type":    coupon.DiscountType,
			"value":            coupon.Value,
			"min_order_amount": coupon.MinOrderAmount,
			"valid_from":       coupon.ValidFrom,
			"valid_to":         coupon.ValidTo,
			"is_valid":         coupon.IsCurrentlyValid(time.Now()),
		},
	})
}

// CreateCoupon handles POST /admin/coupons
func (h *PromotionHandler) CreateCoupon(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req promotion.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	coupon, err := h.promotionService.CreateCoupon(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon created successfully",
		"data":    coupon,
	})
}

// CreateFlashSale handles POST /admin/flash-sales
func (h *PromotionHandler) CreateFlashSale(c *gin.Context) {
	var req promotion.CreateFlashSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sale, err := h.promotionService.CreateFlashSale(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Flash sale created successfully",
		"data":    sale,
	})
}

// GetFlashSale handles GET /admin/flash-sales/:id
func (h *PromotionHandler) GetFlashSale(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid flash sale ID",
		})
		return
	}

	sale, err := h.promotionService.GetFlashSale(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve flash sale",
		})
		return
	}
	if sale == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Flash sale not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Flash sale retrieved successfully",
		"data":    sale,
	})
}

// SweepPromotions handles POST /admin/promotions/sweep
func (h *PromotionHandler) SweepPromotions(c *gin.Context) {
	now := time.Now()
	if err := h.promotionService.SweepFlashSales(c.Request.Context(), now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Flash sale sweep failed",
		})
		return
	}
	if err := h.promotionService.SweepExpiredCoupons(c.Request.Context(), now); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Coupon sweep failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Promotion sweep completed",
	})
}

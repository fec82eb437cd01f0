// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/shoestore-backend/internal/pkg/apperr"
)

// statusForKind maps a domain error kind to an HTTP status code
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInsufficientStock,
		apperr.KindInvalidStatusTransition,
		apperr.KindRefundExceedsBalance:
		return http.StatusConflict
	case apperr.KindProductUnavailable,
		apperr.KindVariantUnavailable:
		return http.StatusNotFound
	case apperr.KindEmptyCart,
		apperr.KindInvalidCoupon,
		apperr.KindCouponExpired,
		apperr.KindCouponLimitReached,
		apperr.KindCouponNotApplicable,
		apperr.KindMinOrderNotMet:
		return http.StatusUnprocessableEntity
	case apperr.KindPersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// respondError writes a domain error as JSON, exposing the stable error code
// so clients can branch without parsing messages
func respondError(c *gin.Context, err error) {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		body := gin.H{
			"error": domainErr.Message,
			"code":  string(domainErr.Kind),
		}
		if domainErr.Kind == apperr.KindInsufficientStock {
			body["available"] = domainErr.Available
		}
		c.JSON(statusForKind(domainErr.Kind), body)
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
	})
}

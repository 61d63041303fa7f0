package controllers

import (
	"errors"
	"net/http"

	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutController exposes the checkout completion and voucher endpoints.
type CheckoutController struct {
	Complete  *services.CheckoutCompleteService
	Discounts *services.DiscountService
	Checkouts services.CheckoutStore
	Logger    *zap.Logger
}

type completeRequest struct {
	RedirectURL string         `json:"redirect_url"`
	StoreSource bool           `json:"store_source"`
	PaymentData map[string]any `json:"payment_data"`
}

type voucherRequest struct {
	PromoCode string `json:"promo_code" binding:"required"`
}

// CompleteCheckout runs one completion attempt for the checkout token.
func (cc *CheckoutController) CompleteCheckout(c *gin.Context) {
	token, ok := cc.parseToken(c)
	if !ok {
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := cc.Complete.Complete(c.Request.Context(), token, services.CompleteInput{
		RedirectURL: req.RedirectURL,
		StoreSource: req.StoreSource,
		PaymentData: req.PaymentData,
	})
	if err != nil {
		cc.respondError(c, err)
		return
	}

	if result.ConfirmationNeeded {
		c.JSON(http.StatusOK, gin.H{
			"confirmation_needed": true,
			"confirmation_data":   result.ConfirmationData,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"confirmation_needed": false,
		"order":               result.Order,
	})
}

// AddVoucher attaches a promo code to the checkout.
func (cc *CheckoutController) AddVoucher(c *gin.Context) {
	token, ok := cc.parseToken(c)
	if !ok {
		return
	}
	var req voucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, lines, err := cc.Checkouts.LoadContext(c.Request.Context(), token)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	if err := cc.Discounts.AddVoucherCode(c.Request.Context(), info, lines, req.PromoCode); err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"voucher_code":    info.Checkout.VoucherCode,
		"discount_amount": info.Checkout.DiscountAmount,
	})
}

// RemoveVoucher detaches a promo code from the checkout.
func (cc *CheckoutController) RemoveVoucher(c *gin.Context) {
	token, ok := cc.parseToken(c)
	if !ok {
		return
	}
	var req voucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, _, err := cc.Checkouts.LoadContext(c.Request.Context(), token)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	if err := cc.Discounts.RemoveVoucherCode(c.Request.Context(), info, req.PromoCode); err != nil {
		cc.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CancelPayments voids and deactivates the checkout's active payments.
func (cc *CheckoutController) CancelPayments(c *gin.Context) {
	token, ok := cc.parseToken(c)
	if !ok {
		return
	}
	if err := cc.Complete.CancelActivePayments(c.Request.Context(), token); err != nil {
		cc.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (cc *CheckoutController) parseToken(c *gin.Context) (uuid.UUID, bool) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkout token"})
		return uuid.Nil, false
	}
	return token, true
}

// respondError maps service errors onto the uniform {field, message, code}
// error body.
func (cc *CheckoutController) respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var stockErr *services.InsufficientStockError
	var notApplicable *services.NotApplicableError
	var paymentErr *services.PaymentError
	var redirectErr *services.RedirectURLError
	var taxErr *services.TaxError

	switch {
	case errors.Is(err, services.ErrCheckoutNotFound):
		c.JSON(http.StatusNotFound, errorBody("", "Checkout not found", services.CodeInvalid))
	case errors.Is(err, services.ErrAlreadyProcessing):
		c.JSON(http.StatusConflict, errorBody("", "Checkout completion is already in progress", services.CodeInvalid))
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, errorBody(validationErr.Field, validationErr.Message, validationErr.Code))
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, errorBody("lines", stockErr.Error(), services.CodeInsufficientStock))
	case errors.As(err, &notApplicable):
		c.JSON(http.StatusBadRequest, errorBody("promo_code", notApplicable.Reason, services.CodeVoucherNotApplicable))
	case errors.As(err, &redirectErr):
		c.JSON(http.StatusBadRequest, errorBody("redirect_url", "Redirect URL is not trusted", services.CodeInvalidRedirectURL))
	case errors.As(err, &paymentErr):
		c.JSON(http.StatusBadRequest, errorBody("payment", paymentErr.Msg, services.CodePaymentError))
	case errors.As(err, &taxErr):
		c.JSON(http.StatusBadRequest, errorBody("", "Unable to calculate taxes", services.CodeTaxError))
	default:
		cc.Logger.Error("Unhandled checkout error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody("", "Internal server error", services.CodeInvalid))
	}
}

func errorBody(field, message, code string) gin.H {
	return gin.H{"field": field, "message": message, "code": code}
}

package routes

import (
	"net/http"

	"checkout-service/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, cc *controllers.CheckoutController, wc *controllers.WebhookController) {
	checkout := r.Group("/checkout")
	checkout.POST("/:token/complete", cc.CompleteCheckout)
	checkout.POST("/:token/voucher", cc.AddVoucher)
	checkout.DELETE("/:token/voucher", cc.RemoveVoucher)
	checkout.POST("/:token/payments/cancel", cc.CancelPayments)

	// Stripe webhook (no auth, signature-verified)
	r.POST("/webhooks/stripe", wc.StripeWebhook)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

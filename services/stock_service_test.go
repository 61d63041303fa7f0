package services

import (
	"context"
	"testing"

	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestCheckQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("UntrackedVariantAlwaysPasses", func(t *testing.T) {
		stocks := new(MockStockStore)
		svc := NewStockService(stocks, zap.NewNop())

		variant := &models.ProductVariant{ID: uuid.New(), SKU: "UNTRACKED", TrackInventory: false}
		err := svc.CheckQuantity(ctx, variant, "DE", "default", 1000)
		assert.NoError(t, err)
		stocks.AssertNotCalled(t, "Availability")
	})

	t.Run("NoStockRowsMeansZeroAvailability", func(t *testing.T) {
		stocks := new(MockStockStore)
		svc := NewStockService(stocks, zap.NewNop())

		variant := &models.ProductVariant{ID: uuid.New(), SKU: "EMPTY", TrackInventory: true}
		stocks.On("Availability", ctx, "DE", "default", []uuid.UUID{variant.ID}).
			Return(map[uuid.UUID][]models.StockAvailability{}, nil)

		err := svc.CheckQuantity(ctx, variant, "DE", "default", 1)
		var stockErr *InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 0, stockErr.Items[0].AvailableQuantity)
	})

	t.Run("AllocationsReduceAvailability", func(t *testing.T) {
		stocks := new(MockStockStore)
		svc := NewStockService(stocks, zap.NewNop())

		variant := &models.ProductVariant{ID: uuid.New(), SKU: "SCARCE", TrackInventory: true}
		stocks.On("Availability", ctx, "DE", "default", []uuid.UUID{variant.ID}).
			Return(map[uuid.UUID][]models.StockAvailability{
				variant.ID: {
					{Stock: models.Stock{Quantity: 20}, Allocated: 5},
				},
			}, nil)

		assert.NoError(t, svc.CheckQuantity(ctx, variant, "DE", "default", 15))

		err := svc.CheckQuantity(ctx, variant, "DE", "default", 16)
		var stockErr *InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 15, stockErr.Items[0].AvailableQuantity)
		assert.Contains(t, err.Error(), "only 15 remaining")
	})
}

func TestCheckQuantityBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("ReportsAllShortfallsTogether", func(t *testing.T) {
		stocks := new(MockStockStore)
		svc := NewStockService(stocks, zap.NewNop())

		lineA := testLine(10, 5, true)
		lineB := testLine(10, 3, true)
		stocks.On("Availability", ctx, "DE", "default", mock.Anything).
			Return(map[uuid.UUID][]models.StockAvailability{
				lineA.Variant.ID: {{Stock: models.Stock{Quantity: 2}}},
				lineB.Variant.ID: {{Stock: models.Stock{Quantity: 1}}},
			}, nil)

		err := svc.CheckQuantityBulk(ctx, []models.CheckoutLineInfo{lineA, lineB}, "DE", "default", nil, false)
		var stockErr *InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)
		assert.Len(t, stockErr.Items, 2)
	})

	t.Run("ExistingLinesCountUnlessReplacing", func(t *testing.T) {
		stocks := new(MockStockStore)
		svc := NewStockService(stocks, zap.NewNop())

		line := testLine(10, 5, true)
		existing := line
		existing.Line.Quantity = 6
		stocks.On("Availability", ctx, "DE", "default", mock.Anything).
			Return(map[uuid.UUID][]models.StockAvailability{
				line.Variant.ID: {{Stock: models.Stock{Quantity: 10}}},
			}, nil)

		// 5 requested + 6 already in the checkout exceeds 10
		err := svc.CheckQuantityBulk(ctx, []models.CheckoutLineInfo{line}, "DE", "default", []models.CheckoutLineInfo{existing}, false)
		var stockErr *InsufficientStockError
		assert.ErrorAs(t, err, &stockErr)

		// Replacing the line, only the 5 requested count
		err = svc.CheckQuantityBulk(ctx, []models.CheckoutLineInfo{line}, "DE", "default", []models.CheckoutLineInfo{existing}, true)
		assert.NoError(t, err)
	})

	t.Run("OnlyUntrackedLines", func(t *testing.T) {
		stocks := new(MockStockStore)
		svc := NewStockService(stocks, zap.NewNop())

		line := testLine(10, 5, true)
		line.Variant.TrackInventory = false

		err := svc.CheckQuantityBulk(ctx, []models.CheckoutLineInfo{line}, "DE", "default", nil, false)
		assert.NoError(t, err)
		stocks.AssertNotCalled(t, "Availability")
	})
}

package services

import (
	"checkout-service/models"
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockService answers availability questions for checkout lines. The
// authoritative check-then-reserve happens in the repository under row
// locks; this layer implements the advisory checks used during checkout
// mutation and validation.
type StockService struct {
	stocks StockStore
	logger *zap.Logger
}

// NewStockService creates a new StockService.
func NewStockService(stocks StockStore, logger *zap.Logger) *StockService {
	return &StockService{stocks: stocks, logger: logger}
}

// CheckQuantity verifies a single variant can cover the requested quantity
// in the given country and channel. Untracked variants always pass.
func (s *StockService) CheckQuantity(ctx context.Context, variant *models.ProductVariant, countryCode, channelSlug string, quantity int) error {
	if !variant.TrackInventory {
		return nil
	}
	availability, err := s.stocks.Availability(ctx, countryCode, channelSlug, []uuid.UUID{variant.ID})
	if err != nil {
		return err
	}
	available := models.AvailableQuantity(availability[variant.ID])
	if quantity > available {
		return &InsufficientStockError{Items: []InsufficientStockItem{{
			VariantID:         variant.ID,
			SKU:               variant.SKU,
			AvailableQuantity: available,
		}}}
	}
	return nil
}

// CheckQuantityBulk verifies every line in one availability query. When
// existingLines is given and replace is false, the quantity already held by
// a matching line is added on top of the requested one, mirroring an
// add-to-line mutation; replace means the request supersedes the line.
// All failing variants are reported together.
func (s *StockService) CheckQuantityBulk(ctx context.Context, lines []models.CheckoutLineInfo, countryCode, channelSlug string, existingLines []models.CheckoutLineInfo, replace bool) error {
	tracked := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Variant.TrackInventory {
			tracked = append(tracked, line.Variant.ID)
		}
	}
	if len(tracked) == 0 {
		return nil
	}

	availability, err := s.stocks.Availability(ctx, countryCode, channelSlug, tracked)
	if err != nil {
		return err
	}

	existing := make(map[uuid.UUID]int, len(existingLines))
	if !replace {
		for _, line := range existingLines {
			existing[line.Variant.ID] += line.Line.Quantity
		}
	}

	var shortfalls []InsufficientStockItem
	for _, line := range lines {
		if !line.Variant.TrackInventory {
			continue
		}
		wanted := line.Line.Quantity + existing[line.Variant.ID]
		available := models.AvailableQuantity(availability[line.Variant.ID])
		if wanted > available {
			shortfalls = append(shortfalls, InsufficientStockItem{
				VariantID:         line.Variant.ID,
				SKU:               line.Variant.SKU,
				AvailableQuantity: available,
			})
		}
	}
	if len(shortfalls) > 0 {
		s.logger.Debug("Stock check failed",
			zap.String("country", countryCode),
			zap.String("channel", channelSlug),
			zap.Int("variants", len(shortfalls)),
		)
		return &InsufficientStockError{Items: shortfalls}
	}
	return nil
}

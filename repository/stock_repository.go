package repository

import (
	"checkout-service/models"
	"checkout-service/services"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements services.StockStore using GORM.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository.
func NewGormStockRepository(db *gorm.DB) services.StockStore {
	return &GormStockRepository{db: db}
}

// Availability returns per-variant stock rows with their allocated
// quantities, limited to warehouses serving the country and channel.
func (r *GormStockRepository) Availability(ctx context.Context, countryCode, channelSlug string, variantIDs []uuid.UUID) (map[uuid.UUID][]models.StockAvailability, error) {
	return availability(r.db.WithContext(ctx), countryCode, channelSlug, variantIDs, false)
}

func availability(db *gorm.DB, countryCode, channelSlug string, variantIDs []uuid.UUID, forUpdate bool) (map[uuid.UUID][]models.StockAvailability, error) {
	var warehouses []models.Warehouse
	if err := db.Where("channel_slug = ?", channelSlug).Find(&warehouses).Error; err != nil {
		return nil, err
	}
	warehouseIDs := make([]uuid.UUID, 0, len(warehouses))
	for i := range warehouses {
		if warehouses[i].ShipsTo(countryCode) {
			warehouseIDs = append(warehouseIDs, warehouses[i].ID)
		}
	}

	result := make(map[uuid.UUID][]models.StockAvailability, len(variantIDs))
	if len(warehouseIDs) == 0 {
		return result, nil
	}

	query := db.Where("warehouse_id IN ? AND variant_id IN ?", warehouseIDs, variantIDs).Order("id ASC")
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var stocks []models.Stock
	if err := query.Find(&stocks).Error; err != nil {
		return nil, err
	}

	for _, stock := range stocks {
		var allocated int64
		err := db.Model(&models.Allocation{}).
			Where("stock_id = ?", stock.ID).
			Select("COALESCE(SUM(quantity_allocated), 0)").
			Scan(&allocated).Error
		if err != nil {
			return nil, err
		}
		result[stock.VariantID] = append(result[stock.VariantID], models.StockAvailability{
			Stock:     stock,
			Allocated: int(allocated),
		})
	}
	return result, nil
}

// Reserve locks the matching stock rows, re-verifies availability and
// spreads allocations across warehouses in row order. The check and the
// insert happen in one transaction so two checkouts racing for the last
// unit cannot both succeed.
func (r *GormStockRepository) Reserve(ctx context.Context, token uuid.UUID, countryCode, channelSlug string, items []services.StockReservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variantIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			variantIDs = append(variantIDs, item.VariantID)
		}

		stocks, err := availability(tx, countryCode, channelSlug, variantIDs, true)
		if err != nil {
			return err
		}

		var insufficient []services.InsufficientStockItem
		for _, item := range items {
			if !item.TrackInventory {
				continue
			}
			available := models.AvailableQuantity(stocks[item.VariantID])
			if item.Quantity > available {
				insufficient = append(insufficient, services.InsufficientStockItem{
					VariantID:         item.VariantID,
					SKU:               item.SKU,
					AvailableQuantity: available,
				})
			}
		}
		if len(insufficient) > 0 {
			return &services.InsufficientStockError{Items: insufficient}
		}

		var allocations []models.Allocation
		for _, item := range items {
			if !item.TrackInventory {
				continue
			}
			remaining := item.Quantity
			for _, sa := range stocks[item.VariantID] {
				if remaining == 0 {
					break
				}
				free := sa.Stock.Quantity - sa.Allocated
				if free <= 0 {
					continue
				}
				take := remaining
				if take > free {
					take = free
				}
				tokenCopy := token
				allocations = append(allocations, models.Allocation{
					StockID:           sa.Stock.ID,
					CheckoutToken:     &tokenCopy,
					QuantityAllocated: take,
				})
				remaining -= take
			}
		}
		if len(allocations) == 0 {
			return nil
		}
		return tx.Create(&allocations).Error
	})
}

// Release drops every allocation the checkout holds.
func (r *GormStockRepository) Release(ctx context.Context, token uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("checkout_token = ?", token).
		Delete(&models.Allocation{}).Error
}

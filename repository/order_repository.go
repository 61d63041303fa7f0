package repository

import (
	"checkout-service/models"
	"checkout-service/services"
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements services.OrderStore using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) services.OrderStore {
	return &GormOrderRepository{db: db}
}

// CreateFromCheckout materializes the prepared order and deletes the source
// checkout in one transaction. If any step fails the whole unit rolls back:
// no order without checkout deletion, no deletion without the order.
func (r *GormOrderRepository) CreateFromCheckout(ctx context.Context, data *models.OrderData) (*models.Order, error) {
	order := data.Order
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	token := order.CheckoutToken

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		lines := make([]models.OrderLine, len(data.Lines))
		copy(lines, data.Lines)
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		order.Lines = lines

		// Re-point the checkout's stock reservations at the frozen lines.
		lineIDByVariant := make(map[uuid.UUID]uint, len(lines))
		for _, line := range lines {
			lineIDByVariant[line.VariantID] = line.ID
		}
		var allocations []models.Allocation
		if err := tx.Where("checkout_token = ?", token).Find(&allocations).Error; err != nil {
			return err
		}
		for i := range allocations {
			var stock models.Stock
			if err := tx.First(&stock, allocations[i].StockID).Error; err != nil {
				return err
			}
			lineID, ok := lineIDByVariant[stock.VariantID]
			if !ok {
				continue
			}
			err := tx.Model(&models.Allocation{}).
				Where("id = ?", allocations[i].ID).
				Updates(map[string]interface{}{
					"checkout_token": nil,
					"order_line_id":  lineID,
				}).Error
			if err != nil {
				return err
			}
		}

		// Attach payments to the order before the checkout row goes away.
		if err := tx.Model(&models.Payment{}).
			Where("checkout_token = ?", token).
			Updates(map[string]interface{}{"order_id": order.ID}).Error; err != nil {
			return err
		}

		if err := tx.Where("checkout_token = ?", token).Delete(&models.CheckoutLine{}).Error; err != nil {
			return err
		}
		return tx.Where("token = ?", token).Delete(&models.Checkout{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GormTicketRepository implements services.TicketStore using GORM.
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GormTicketRepository.
func NewGormTicketRepository(db *gorm.DB) services.TicketStore {
	return &GormTicketRepository{db: db}
}

func (r *GormTicketRepository) Create(ctx context.Context, ticket *models.StreamTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

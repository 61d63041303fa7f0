package services

import (
	"checkout-service/models"
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ticket types a product can grant. The set is closed: a product carrying
// any other value is treated as not being a ticket at all.
const (
	TicketTypeSingle = "single" // access to one game
	TicketTypeSeason = "season" // access to a season's games
	TicketTypeTimed  = "timed"  // access to anything within a time window
)

// StreamTicketService grants stream access after a ticket order completes.
// Ticket creation is part of the best-effort completion tail; a failure is
// logged and repaired out of band, never rolled into the order transaction.
type StreamTicketService struct {
	tickets TicketStore
	logger  *zap.Logger
}

// NewStreamTicketService creates a new StreamTicketService.
func NewStreamTicketService(tickets TicketStore, logger *zap.Logger) *StreamTicketService {
	return &StreamTicketService{tickets: tickets, logger: logger}
}

// ValidateCheckout checks a stream-ticket checkout before completion: a
// checkout declaring a purchase intent must carry exactly one line whose
// product grants a ticket of the declared shape. Checkouts without intent
// metadata always pass.
func (s *StreamTicketService) ValidateCheckout(info *models.CheckoutInfo, lines []models.CheckoutLineInfo) error {
	meta, err := info.Checkout.StreamMeta()
	if err != nil {
		return &ValidationError{Field: "metadata", Message: "Stream ticket metadata is malformed", Code: CodeInvalid}
	}
	if meta.IsEmpty() {
		return nil
	}

	matched := 0
	for _, line := range lines {
		if line.Product.TicketType == nil {
			continue
		}
		if _, ok := s.buildTicket(*line.Product.TicketType, meta, uuid.Nil); ok {
			matched++
		}
	}
	if matched != 1 {
		return &ValidationError{Field: "lines", Message: "Checkout must contain exactly one line matching the stream ticket intent", Code: CodeInvalid}
	}
	return nil
}

// CreateFromOrder creates one ticket per ticket line in the order, shaped
// by the line's ticket type and the checkout's purchase-intent metadata.
// Orders without a user or without ticket lines are a no-op.
func (s *StreamTicketService) CreateFromOrder(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo, order *models.Order) error {
	if order.UserID == nil {
		return nil
	}
	meta, err := info.Checkout.StreamMeta()
	if err != nil {
		return err
	}

	for _, line := range lines {
		if line.Product.TicketType == nil {
			continue
		}
		ticket, ok := s.buildTicket(*line.Product.TicketType, meta, *order.UserID)
		if !ok {
			s.logger.Warn("Ticket line has no matching purchase intent, skipping",
				zap.String("order_id", order.ID.String()),
				zap.String("ticket_type", *line.Product.TicketType),
				zap.String("sku", line.Variant.SKU),
			)
			continue
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		s.logger.Info("Stream ticket created",
			zap.String("order_id", order.ID.String()),
			zap.String("user_id", order.UserID.String()),
			zap.String("ticket_type", ticket.Type),
		)
	}
	return nil
}

// buildTicket matches one ticket type against the declared purchase intent.
func (s *StreamTicketService) buildTicket(ticketType string, meta models.StreamMeta, userID uuid.UUID) (*models.StreamTicket, bool) {
	switch ticketType {
	case TicketTypeSingle:
		if meta.GameID == nil {
			return nil, false
		}
		return &models.StreamTicket{
			UserID:    userID,
			Type:      TicketTypeSingle,
			GameID:    meta.GameID,
			StartTime: meta.StartTime,
			Expires:   meta.Expires,
		}, true
	case TicketTypeSeason:
		if meta.SeasonID == nil {
			return nil, false
		}
		return &models.StreamTicket{
			UserID:    userID,
			Type:      TicketTypeSeason,
			SeasonID:  meta.SeasonID,
			TeamIDs:   meta.TeamIDs,
			LeagueIDs: meta.LeagueIDs,
		}, true
	case TicketTypeTimed:
		if meta.Expires == nil {
			return nil, false
		}
		return &models.StreamTicket{
			UserID:    userID,
			Type:      TicketTypeTimed,
			TeamIDs:   meta.TeamIDs,
			LeagueIDs: meta.LeagueIDs,
			StartTime: meta.StartTime,
			Expires:   meta.Expires,
		}, true
	default:
		return nil, false
	}
}

package services

import (
	"context"
	"testing"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func ticketCheckout(metadata string) (*models.CheckoutInfo, *models.Order) {
	userID := uuid.New()
	info := testCheckoutInfo()
	info.Checkout.UserID = &userID
	if metadata != "" {
		info.Checkout.Metadata = &metadata
	}
	order := &models.Order{ID: uuid.New(), CheckoutToken: info.Checkout.Token, UserID: &userID}
	return info, order
}

func ticketLine(ticketType string) models.CheckoutLineInfo {
	line := testLine(10, 1, false)
	line.Product.TicketType = &ticketType
	return line
}

func TestCreateFromOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("SingleGameTicket", func(t *testing.T) {
		store := new(MockTicketStore)
		svc := NewStreamTicketService(store, zap.NewNop())

		info, order := ticketCheckout(`{"game_id":"game-42"}`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSingle)}

		store.On("Create", ctx, mock.MatchedBy(func(ticket *models.StreamTicket) bool {
			return ticket.Type == TicketTypeSingle && ticket.GameID != nil && *ticket.GameID == "game-42"
		})).Return(nil)

		err := svc.CreateFromOrder(ctx, info, lines, order)
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("SeasonTicket", func(t *testing.T) {
		store := new(MockTicketStore)
		svc := NewStreamTicketService(store, zap.NewNop())

		info, order := ticketCheckout(`{"season_id":"2026","team_ids":"team-1,team-2"}`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSeason)}

		store.On("Create", ctx, mock.MatchedBy(func(ticket *models.StreamTicket) bool {
			return ticket.Type == TicketTypeSeason && ticket.SeasonID != nil && *ticket.SeasonID == "2026"
		})).Return(nil)

		err := svc.CreateFromOrder(ctx, info, lines, order)
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("TimedTicketNeedsExpiry", func(t *testing.T) {
		store := new(MockTicketStore)
		svc := NewStreamTicketService(store, zap.NewNop())

		expires := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
		info, order := ticketCheckout(`{"expires":"` + expires + `"}`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeTimed)}

		store.On("Create", ctx, mock.MatchedBy(func(ticket *models.StreamTicket) bool {
			return ticket.Type == TicketTypeTimed && ticket.Expires != nil
		})).Return(nil)

		err := svc.CreateFromOrder(ctx, info, lines, order)
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("MismatchedIntentSkipsLine", func(t *testing.T) {
		store := new(MockTicketStore)
		svc := NewStreamTicketService(store, zap.NewNop())

		// single-game product, but the checkout declares a season
		info, order := ticketCheckout(`{"season_id":"2026"}`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSingle)}

		err := svc.CreateFromOrder(ctx, info, lines, order)
		assert.NoError(t, err)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("NonTicketLinesIgnored", func(t *testing.T) {
		store := new(MockTicketStore)
		svc := NewStreamTicketService(store, zap.NewNop())

		info, order := ticketCheckout(`{"game_id":"game-42"}`)
		lines := []models.CheckoutLineInfo{testLine(10, 1, true)}

		err := svc.CreateFromOrder(ctx, info, lines, order)
		assert.NoError(t, err)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("AnonymousOrderIsNoop", func(t *testing.T) {
		store := new(MockTicketStore)
		svc := NewStreamTicketService(store, zap.NewNop())

		info, order := ticketCheckout(`{"game_id":"game-42"}`)
		order.UserID = nil
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSingle)}

		err := svc.CreateFromOrder(ctx, info, lines, order)
		assert.NoError(t, err)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestValidateCheckout(t *testing.T) {
	svc := NewStreamTicketService(new(MockTicketStore), zap.NewNop())

	t.Run("NoIntentAlwaysPasses", func(t *testing.T) {
		info, _ := ticketCheckout("")
		lines := []models.CheckoutLineInfo{testLine(10, 1, true)}
		assert.NoError(t, svc.ValidateCheckout(info, lines))
	})

	t.Run("OneMatchingLinePasses", func(t *testing.T) {
		info, _ := ticketCheckout(`{"game_id":"game-42"}`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSingle)}
		assert.NoError(t, svc.ValidateCheckout(info, lines))
	})

	t.Run("MismatchedIntentFails", func(t *testing.T) {
		info, _ := ticketCheckout(`{"season_id":"2026"}`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSingle)}

		err := svc.ValidateCheckout(info, lines)
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Equal(t, "lines", vErr.Field)
	})

	t.Run("TwoMatchingLinesFail", func(t *testing.T) {
		info, _ := ticketCheckout(`{"game_id":"game-42"}`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSingle), ticketLine(TicketTypeSingle)}

		var vErr *ValidationError
		assert.ErrorAs(t, svc.ValidateCheckout(info, lines), &vErr)
	})

	t.Run("MalformedMetadataFails", func(t *testing.T) {
		info, _ := ticketCheckout(`{not json`)
		lines := []models.CheckoutLineInfo{ticketLine(TicketTypeSingle)}

		var vErr *ValidationError
		assert.ErrorAs(t, svc.ValidateCheckout(info, lines), &vErr)
		assert.Equal(t, "metadata", vErr.Field)
	})
}

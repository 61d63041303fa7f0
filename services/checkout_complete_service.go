package services

import (
	"checkout-service/gateway"
	"checkout-service/models"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CompleteInput is the client payload for a completion attempt.
type CompleteInput struct {
	RedirectURL string
	StoreSource bool
	PaymentData map[string]any
}

// CompletionResult is what a completion attempt produced: either an order,
// or a confirmation the customer still has to act on.
type CompletionResult struct {
	Order              *models.Order
	ConfirmationNeeded bool
	ConfirmationData   map[string]any
}

// CheckoutCompleteService turns a paid checkout into an order. The sequence
// is strict: validate, prepare order data (voucher redemption + stock
// reservation), execute payment, then atomically create the order and
// destroy the checkout. Any failure after a side effect compensates it.
type CheckoutCompleteService struct {
	checkouts    CheckoutStore
	vouchers     VoucherStore
	stocks       StockStore
	payments     PaymentStore
	orders       OrderStore
	discounts    *DiscountService
	pricer       *PricingService
	stockChecker *StockService
	tickets      *StreamTicketService
	gateways     map[string]gateway.PaymentGateway
	locker       CheckoutLocker

	orderEvents   OrderEventPublisher
	paymentEvents PaymentEventPublisher

	allowedRedirectHosts []string
	logger               *zap.Logger
}

// NewCheckoutCompleteService wires the completion orchestrator.
func NewCheckoutCompleteService(
	checkouts CheckoutStore,
	vouchers VoucherStore,
	stocks StockStore,
	payments PaymentStore,
	orders OrderStore,
	discounts *DiscountService,
	pricer *PricingService,
	stockChecker *StockService,
	tickets *StreamTicketService,
	gateways map[string]gateway.PaymentGateway,
	locker CheckoutLocker,
	orderEvents OrderEventPublisher,
	paymentEvents PaymentEventPublisher,
	allowedRedirectHosts []string,
	logger *zap.Logger,
) *CheckoutCompleteService {
	return &CheckoutCompleteService{
		checkouts:            checkouts,
		vouchers:             vouchers,
		stocks:               stocks,
		payments:             payments,
		orders:               orders,
		discounts:            discounts,
		pricer:               pricer,
		stockChecker:         stockChecker,
		tickets:              tickets,
		gateways:             gateways,
		locker:               locker,
		orderEvents:          orderEvents,
		paymentEvents:        paymentEvents,
		allowedRedirectHosts: allowedRedirectHosts,
		logger:               logger,
	}
}

// Complete runs one completion attempt for the checkout. Concurrent
// attempts for the same token are rejected with ErrAlreadyProcessing; the
// losing caller must retry after the winner finishes.
func (s *CheckoutCompleteService) Complete(ctx context.Context, token uuid.UUID, input CompleteInput) (*CompletionResult, error) {
	return s.run(ctx, token, input, false)
}

// CompleteConfirmed finishes a checkout whose payment the provider already
// confirmed out of band. No gateway call is made; the webhook event is the
// proof of payment.
func (s *CheckoutCompleteService) CompleteConfirmed(ctx context.Context, token uuid.UUID) (*models.Order, error) {
	result, err := s.run(ctx, token, CompleteInput{}, true)
	if err != nil {
		return nil, err
	}
	return result.Order, nil
}

func (s *CheckoutCompleteService) run(ctx context.Context, token uuid.UUID, input CompleteInput, confirmed bool) (*CompletionResult, error) {
	claimed, err := s.locker.Claim(ctx, token)
	if err != nil {
		// The fast path is advisory; the durable flag below still
		// serializes writers.
		s.logger.Warn("Completion lock unavailable, falling back to database claim",
			zap.String("checkout_token", token.String()), zap.Error(err))
	} else if !claimed {
		return nil, ErrAlreadyProcessing
	} else {
		defer func() {
			if releaseErr := s.locker.Release(context.WithoutCancel(ctx), token); releaseErr != nil {
				s.logger.Warn("Failed to release completion lock",
					zap.String("checkout_token", token.String()), zap.Error(releaseErr))
			}
		}()
	}

	claimed, err = s.checkouts.ClaimWebhookProcessing(ctx, token)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrAlreadyProcessing
	}

	// The claim is handed back on every path where the checkout survives:
	// errors, confirmation-needed results, and panics unwinding through
	// here. Only a completed attempt keeps it, because the checkout row is
	// gone and there is nothing to reset.
	completed := false
	defer func() {
		if completed {
			return
		}
		if releaseErr := s.checkouts.ReleaseWebhookProcessing(context.WithoutCancel(ctx), token); releaseErr != nil {
			s.logger.Error("Failed to release completion claim",
				zap.String("checkout_token", token.String()), zap.Error(releaseErr))
		}
	}()

	result, err := s.complete(ctx, token, input, confirmed)
	completed = err == nil && result != nil && !result.ConfirmationNeeded
	return result, err
}

func (s *CheckoutCompleteService) complete(ctx context.Context, token uuid.UUID, input CompleteInput, confirmed bool) (*CompletionResult, error) {
	info, lines, err := s.checkouts.LoadContext(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.validate(ctx, info, lines, input); err != nil {
		return nil, err
	}

	payment := info.ActivePayment()

	orderData, release, err := s.prepareOrderData(ctx, info, lines, input)
	if err != nil {
		return nil, err
	}

	resp := gateway.Response{Success: true}
	if !confirmed {
		resp, err = s.executePayment(ctx, info, payment, input)
		if err != nil {
			release(ctx)
			return nil, err
		}
	}

	if resp.ActionRequired {
		// The customer has to finish authentication on the provider side;
		// the checkout stays as it is and the webhook path finishes the
		// job. Reservations must not outlive this attempt.
		release(ctx)
		if err := s.payments.UpdateChargeStatus(ctx, payment.ID, models.ChargeStatusPending); err != nil {
			return nil, err
		}
		return &CompletionResult{ConfirmationNeeded: true, ConfirmationData: resp.ActionData}, nil
	}

	if err := s.payments.UpdateChargeStatus(ctx, payment.ID, models.ChargeStatusFullyCharged); err != nil {
		release(ctx)
		return nil, err
	}

	order, err := s.orders.CreateFromCheckout(ctx, orderData)
	if err != nil {
		release(ctx)
		return nil, err
	}

	s.afterOrderCreated(ctx, info, lines, order, payment, resp, input)

	return &CompletionResult{Order: order}, nil
}

// validate is completion step 1. It performs no writes except discount
// recalculation, so a failing checkout can be corrected and retried.
func (s *CheckoutCompleteService) validate(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo, input CompleteInput) error {
	if len(lines) == 0 {
		return &ValidationError{Field: "lines", Message: "Cannot complete checkout without lines.", Code: CodeInvalid}
	}

	if input.RedirectURL != "" {
		if err := s.validateRedirectURL(input.RedirectURL); err != nil {
			return err
		}
	}

	if models.ShippingRequired(lines) {
		if info.Checkout.ShippingAddress == nil {
			return &ValidationError{Field: "shipping_address", Message: "Shipping address is not set", Code: CodeShippingAddressError}
		}
		if info.ShippingMethod == nil {
			return &ValidationError{Field: "shipping_method", Message: "Shipping method is not set", Code: CodeShippingMethodError}
		}
		if info.ShippingMethod.ChannelSlug != info.Checkout.ChannelSlug ||
			!info.ShippingMethod.CoversCountry(info.Checkout.ShippingAddress.Country) {
			// An invalid method is detached so the next attempt starts from a
			// clean checkout rather than tripping on the same stale choice.
			if err := s.checkouts.ClearShippingMethod(ctx, info.Checkout.Token); err != nil {
				return err
			}
			info.ShippingMethod = nil
			return &ValidationError{Field: "shipping_method", Message: "Shipping method is not valid for your shipping address", Code: CodeShippingMethodError}
		}
	}
	if info.Checkout.BillingAddress == nil {
		return &ValidationError{Field: "billing_address", Message: "Billing address is not set", Code: CodeBillingAddressError}
	}

	if err := s.tickets.ValidateCheckout(info, lines); err != nil {
		return err
	}

	// Advisory re-check: availability may have moved since the lines were
	// added. The authoritative check happens again under row locks when the
	// reservation is taken.
	if err := s.stockChecker.CheckQuantityBulk(ctx, lines, info.Checkout.Country(), info.Checkout.ChannelSlug, nil, true); err != nil {
		return err
	}

	// The voucher may have expired or stopped matching since it was
	// attached; the snapshot must be fresh before the covered check.
	if err := s.refreshVoucher(ctx, info); err != nil {
		return err
	}
	if err := s.discounts.Recalculate(ctx, info, lines); err != nil {
		return err
	}

	payment := info.ActivePayment()
	if payment == nil {
		return &ValidationError{Field: "payment", Message: "Provided payment methods can not cover the checkout's total amount", Code: CodeCheckoutNotFullyPaid}
	}
	total, err := s.pricer.Total(ctx, info, lines)
	if err != nil {
		return err
	}
	covered := payment.Total.Add(info.GiftCardBalance())
	if covered.LessThan(total) {
		return &ValidationError{Field: "payment", Message: "Provided payment methods can not cover the checkout's total amount", Code: CodeCheckoutNotFullyPaid}
	}
	return nil
}

func (s *CheckoutCompleteService) refreshVoucher(ctx context.Context, info *models.CheckoutInfo) error {
	if info.Checkout.VoucherCode == nil {
		info.Voucher = nil
		return nil
	}
	voucher, err := s.vouchers.ActiveByCode(ctx, *info.Checkout.VoucherCode, info.Checkout.ChannelSlug, time.Now())
	if err != nil {
		if errors.Is(err, ErrVoucherNotFound) {
			info.Voucher = nil
			return nil
		}
		return err
	}
	info.Voucher = voucher
	return nil
}

// prepareOrderData is completion step 2: redeem the voucher, reserve stock
// and freeze the order snapshot. The returned release func compensates both
// side effects and must be called on any later failure.
func (s *CheckoutCompleteService) prepareOrderData(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo, input CompleteInput) (*models.OrderData, func(context.Context), error) {
	noop := func(context.Context) {}

	var redeemed *models.Voucher
	if info.Checkout.VoucherCode != nil && info.Voucher != nil {
		voucher, err := s.vouchers.Redeem(ctx, *info.Checkout.VoucherCode, time.Now())
		if err != nil {
			if errors.Is(err, ErrVoucherUsageLimitReached) || errors.Is(err, ErrVoucherNotFound) {
				return nil, noop, &ValidationError{Field: "voucher_code", Message: "Voucher not applicable", Code: CodeVoucherNotApplicable}
			}
			return nil, noop, err
		}
		redeemed = voucher
	}

	releaseVoucher := func(ctx context.Context) {
		if redeemed == nil {
			return
		}
		if err := s.vouchers.ReleaseUsage(ctx, redeemed.Code); err != nil {
			s.logger.Error("Failed to release voucher usage",
				zap.String("voucher_code", redeemed.Code), zap.Error(err))
		}
	}

	reservations := make([]StockReservation, 0, len(lines))
	for _, line := range lines {
		reservations = append(reservations, StockReservation{
			VariantID:      line.Variant.ID,
			SKU:            line.Variant.SKU,
			Quantity:       line.Line.Quantity,
			TrackInventory: line.Variant.TrackInventory,
		})
	}
	if err := s.stocks.Reserve(ctx, info.Checkout.Token, info.Checkout.Country(), info.Checkout.ChannelSlug, reservations); err != nil {
		releaseVoucher(context.WithoutCancel(ctx))
		return nil, noop, err
	}

	release := func(ctx context.Context) {
		ctx = context.WithoutCancel(ctx)
		if err := s.stocks.Release(ctx, info.Checkout.Token); err != nil {
			s.logger.Error("Failed to release stock reservations",
				zap.String("checkout_token", info.Checkout.Token.String()), zap.Error(err))
		}
		releaseVoucher(ctx)
	}

	orderData, err := s.buildOrderData(ctx, info, lines, input)
	if err != nil {
		release(ctx)
		return nil, noop, err
	}
	return orderData, release, nil
}

func (s *CheckoutCompleteService) buildOrderData(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo, input CompleteInput) (*models.OrderData, error) {
	checkout := &info.Checkout

	subtotal, err := s.pricer.Subtotal(ctx, info, lines)
	if err != nil {
		return nil, err
	}
	shippingPrice, err := s.pricer.ShippingPrice(ctx, info, lines)
	if err != nil {
		return nil, err
	}
	total, err := s.pricer.Total(ctx, info, lines)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		ID:             uuid.New(),
		CheckoutToken:  checkout.Token,
		UserID:         checkout.UserID,
		Email:          checkout.Email,
		ChannelSlug:    checkout.ChannelSlug,
		Currency:       checkout.Currency,
		ShippingPrice:  shippingPrice,
		Subtotal:       subtotal,
		Total:          total,
		DiscountAmount: checkout.DiscountAmount,
		DiscountName:   checkout.DiscountName,
		VoucherCode:    checkout.VoucherCode,
	}
	if input.RedirectURL != "" {
		redirect := input.RedirectURL
		order.RedirectURL = &redirect
	}
	if checkout.BillingAddress != nil {
		order.BillingAddress = checkout.BillingAddress.Snapshot()
	}
	if checkout.ShippingAddress != nil {
		order.ShippingAddress = checkout.ShippingAddress.Snapshot()
	}
	if info.ShippingMethod != nil {
		order.ShippingMethod = info.ShippingMethod.Name
	}

	orderLines := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		unitPrice, err := s.pricer.UnitPrice(ctx, info, line)
		if err != nil {
			return nil, err
		}
		orderLines = append(orderLines, models.OrderLine{
			OrderID:     order.ID,
			VariantID:   line.Variant.ID,
			ProductName: line.Product.Name,
			SKU:         line.Variant.SKU,
			Quantity:    line.Line.Quantity,
			UnitPrice:   unitPrice,
			TotalPrice:  unitPrice.Mul(decimal.NewFromInt(int64(line.Line.Quantity))),
		})
	}

	return &models.OrderData{Order: order, Lines: orderLines}, nil
}

// executePayment drives the gateway: confirm for two-step payments whose
// client already authenticated, process otherwise. A refused payment is a
// PaymentError; the transaction log records both outcomes.
func (s *CheckoutCompleteService) executePayment(ctx context.Context, info *models.CheckoutInfo, payment *models.Payment, input CompleteInput) (gateway.Response, error) {
	gw, ok := s.gateways[payment.Gateway]
	if !ok {
		return gateway.Response{}, &PaymentError{Msg: fmt.Sprintf("unknown payment gateway %q", payment.Gateway)}
	}

	req := gateway.Request{
		PaymentToken: payment.Token,
		Amount:       payment.Total,
		Currency:     payment.Currency,
		ReturnURL:    input.RedirectURL,
		StoreSource:  input.StoreSource,
		Data:         input.PaymentData,
	}
	if payment.CustomerID != nil {
		req.CustomerID = *payment.CustomerID
	}

	kind := models.TransactionCapture
	var resp gateway.Response
	var err error
	if payment.ToConfirm {
		kind = models.TransactionConfirm
		resp, err = gw.ConfirmPayment(ctx, req)
	} else {
		resp, err = gw.ProcessPayment(ctx, req)
	}
	if err != nil {
		s.recordTransaction(ctx, payment, kind, gateway.Response{Error: err.Error()})
		return gateway.Response{}, &PaymentError{Msg: err.Error()}
	}
	if resp.ActionRequired {
		kind = models.TransactionActionToConfirm
	}
	s.recordTransaction(ctx, payment, kind, resp)

	if !resp.Success && !resp.ActionRequired {
		if err := s.payments.UpdateChargeStatus(ctx, payment.ID, models.ChargeStatusRefused); err != nil {
			s.logger.Error("Failed to mark payment refused",
				zap.String("payment_id", payment.ID.String()), zap.Error(err))
		}
		msg := resp.Error
		if msg == "" {
			msg = "payment was refused"
		}
		return gateway.Response{}, &PaymentError{Msg: msg}
	}
	return resp, nil
}

func (s *CheckoutCompleteService) recordTransaction(ctx context.Context, payment *models.Payment, kind models.TransactionKind, resp gateway.Response) {
	txn := &models.Transaction{
		PaymentID:      payment.ID,
		Kind:           kind,
		Token:          resp.TransactionID,
		Amount:         payment.Total,
		Currency:       payment.Currency,
		IsSuccess:      resp.Success || resp.ActionRequired,
		ActionRequired: resp.ActionRequired,
	}
	if txn.Token == "" {
		txn.Token = payment.Token
	}
	if resp.Error != "" {
		errMsg := resp.Error
		txn.Error = &errMsg
	}
	if err := s.payments.CreateTransaction(context.WithoutCancel(ctx), txn); err != nil {
		s.logger.Error("Failed to record gateway transaction",
			zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}

// afterOrderCreated runs the best-effort tail of a successful completion.
// The order already exists; nothing here may fail the request.
func (s *CheckoutCompleteService) afterOrderCreated(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo, order *models.Order, payment *models.Payment, resp gateway.Response, input CompleteInput) {
	ctx = context.WithoutCancel(ctx)

	if err := s.tickets.CreateFromOrder(ctx, info, lines, order); err != nil {
		s.logger.Error("Failed to create stream tickets",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	if input.StoreSource && resp.CustomerID != "" && info.Checkout.UserID != nil {
		if err := s.payments.StoreCustomerID(ctx, *info.Checkout.UserID, payment.Gateway, resp.CustomerID); err != nil {
			s.logger.Error("Failed to store gateway customer id",
				zap.String("user_id", info.Checkout.UserID.String()), zap.Error(err))
		}
	}

	event := models.OrderCreatedEvent{
		Event:         "order.created",
		OrderID:       order.ID.String(),
		CheckoutToken: order.CheckoutToken.String(),
		Total:         order.Total.String(),
		Currency:      order.Currency,
		Timestamp:     time.Now().UTC(),
	}
	if order.UserID != nil {
		event.UserID = order.UserID.String()
	}
	if err := s.orderEvents.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish order created event",
			zap.String("order_id", order.ID.String()), zap.Error(err))
	}

	paymentEvent := models.PaymentEvent{
		Type:      "payment_succeeded",
		PaymentID: payment.ID.String(),
		OrderID:   order.ID.String(),
		Amount:    payment.Total.String(),
		Currency:  payment.Currency,
		Timestamp: time.Now().UTC(),
	}
	if err := s.paymentEvents.PublishPaymentEvent(ctx, paymentEvent); err != nil {
		s.logger.Error("Failed to publish payment event",
			zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}

// CancelActivePayments voids every still-active payment of a checkout and
// deactivates them, used when the client swaps the payment method.
func (s *CheckoutCompleteService) CancelActivePayments(ctx context.Context, token uuid.UUID) error {
	info, _, err := s.checkouts.LoadContext(ctx, token)
	if err != nil {
		return err
	}
	for i := range info.Payments {
		payment := &info.Payments[i]
		if !payment.IsActive || payment.ChargeStatus != models.ChargeStatusNotCharged && payment.ChargeStatus != models.ChargeStatusPending {
			continue
		}
		gw, ok := s.gateways[payment.Gateway]
		if !ok {
			continue
		}
		resp, err := gw.Void(ctx, gateway.Request{PaymentToken: payment.Token, Amount: payment.Total, Currency: payment.Currency})
		if err != nil {
			s.logger.Warn("Failed to void payment",
				zap.String("payment_id", payment.ID.String()), zap.Error(err))
			continue
		}
		s.recordTransaction(ctx, payment, models.TransactionVoid, resp)
	}
	return s.payments.DeactivateForCheckout(ctx, token)
}

func (s *CheckoutCompleteService) validateRedirectURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &RedirectURLError{URL: raw}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &RedirectURLError{URL: raw}
	}
	host := parsed.Hostname()
	for _, allowed := range s.allowedRedirectHosts {
		if strings.EqualFold(host, allowed) {
			return nil
		}
	}
	return &RedirectURLError{URL: raw}
}

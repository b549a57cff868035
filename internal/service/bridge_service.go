package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"payment-bridge-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// maxOrderAge bounds how long after creation an order webhook is still acted
// on. Deliveries can be retried by the platform for a long time; charging a
// day-old order is worse than dropping the event.
const maxOrderAge = 24 * time.Hour

// invoiceDescriptionPrefix must stay byte-compatible with the pattern the
// settlement handler parses the order id back out with.
const invoiceDescriptionPrefix = "Order ID: "

const paymentEmailBody = `<p>Thank you for your order.</p>
<p>Please complete your payment using the secure link below:</p>
<p><a href="%s">Pay your invoice</a></p>
<p>If you have already paid, you can ignore this email.</p>`

// DedupGate suppresses repeat processing of one order identifier.
type DedupGate interface {
	HasBeenProcessed(ctx context.Context, orderID string) (bool, error)
	MarkProcessed(ctx context.Context, orderID string) error
}

// InvoiceCreator is the payment processor's invoice API.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, store entity.StoreProfile, inv entity.Invoice) (*entity.InvoiceResult, error)
}

// PaymentMailer delivers the payment-link email.
type PaymentMailer interface {
	SendPaymentLink(to, subject, htmlBody string) error
}

// EventPublisher emits lifecycle events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// BridgeService runs the order-webhook pipeline: dedup gate, precondition
// checks, invoice creation, payment-link email, gate marking.
type BridgeService struct {
	gate         DedupGate
	invoices     InvoiceCreator
	mailer       PaymentMailer
	publisher    EventPublisher
	store        entity.StoreProfile
	gatewayLabel string

	now func() time.Time
}

func NewBridgeService(gate DedupGate, invoices InvoiceCreator, mailer PaymentMailer, publisher EventPublisher, store entity.StoreProfile, gatewayLabel string) *BridgeService {
	return &BridgeService{
		gate:         gate,
		invoices:     invoices,
		mailer:       mailer,
		publisher:    publisher,
		store:        store,
		gatewayLabel: gatewayLabel,
		now:          time.Now,
	}
}

// DispatchResult reports what the pipeline did with one order event.
type DispatchResult struct {
	Skipped     bool
	Reason      string
	Token       string
	RedirectURL string
}

// ProcessOrderEvent handles one verified order-creation event end to end.
// Skips (wrong gateway, duplicate, stale, already paid) come back as a
// non-error result so the webhook can be acknowledged.
func (s *BridgeService) ProcessOrderEvent(ctx context.Context, order *entity.Order) (*DispatchResult, error) {
	if order == nil || order.ID == 0 {
		return nil, validationErr(CodeMissingOrderData, errors.New("order identifier missing from payload"))
	}
	orderID := order.OrderIDString()

	if s.gatewayLabel != "" && order.Gateway != s.gatewayLabel {
		logger.Info().Str("order_id", orderID).Str("gateway", order.Gateway).Msg("Order uses a different payment channel, skipping")
		return &DispatchResult{Skipped: true, Reason: "order not handled by this payment channel"}, nil
	}

	processed, err := s.gate.HasBeenProcessed(ctx, orderID)
	if err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Dedup lookup failed")
		return nil, downstreamErr(CodeDedupUnavailable, err)
	}
	if processed {
		logger.Info().Str("order_id", orderID).Msg("Order already processed, skipping")
		return &DispatchResult{Skipped: true, Reason: "order already processed"}, nil
	}

	store := s.storeFor(order)
	if err := s.checkPreconditions(store, order); err != nil {
		var be *BridgeError
		if errors.As(err, &be) && be.Kind == KindPrecondition {
			logger.Info().Str("order_id", orderID).Str("code", string(be.Code)).Msg("Order rejected by precondition, skipping")
			return &DispatchResult{Skipped: true, Reason: string(be.Code)}, nil
		}
		return nil, err
	}

	if order.Email == "" {
		return nil, validationErr(CodeMissingOrderData, errors.New("customer email missing from payload"))
	}

	result, err := s.CreateInvoice(ctx, store, order)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("%s, your payment link for order #%d", order.Customer.DisplayName(), order.OrderNumber)
	body := fmt.Sprintf(paymentEmailBody, result.RedirectURL)
	if err := s.mailer.SendPaymentLink(order.Email, subject, body); err != nil {
		// The invoice exists at the processor either way; nothing is rolled
		// back, and the gate stays unmarked so a redelivery can re-notify.
		logger.Error().Err(err).Str("order_id", orderID).Str("token", result.Token).Msg("Payment link email failed")
		return nil, downstreamErr(CodeEmailSendFailed, err)
	}

	if err := s.gate.MarkProcessed(ctx, orderID); err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to write dedup marker")
	}

	publishEvent(ctx, s.publisher, "invoice-created-"+orderID, map[string]string{
		"order_id": orderID,
		"token":    result.Token,
		"url":      result.RedirectURL,
	})

	return &DispatchResult{Token: result.Token, RedirectURL: result.RedirectURL}, nil
}

// checkPreconditions evaluates the business gates in a fixed order. Staleness
// and paid status always win over field validity; a day-old order is rejected
// as stale no matter what else is wrong with it.
func (s *BridgeService) checkPreconditions(store entity.StoreProfile, order *entity.Order) error {
	if order == nil || order.ID == 0 {
		return validationErr(CodeMissingOrderData, errors.New("order identifier missing"))
	}
	if age := s.now().Sub(order.CreatedAt); age > maxOrderAge {
		return preconditionErr(CodeStaleOrder)
	}
	if order.FinancialStatus == "paid" {
		return preconditionErr(CodeAlreadyPaid)
	}
	if store.Name == "" {
		return validationErr(CodeMissingStore, errors.New("store profile not configured"))
	}
	return nil
}

// CreateInvoice applies the business preconditions and, when they pass,
// requests a hosted invoice for the order.
func (s *BridgeService) CreateInvoice(ctx context.Context, store entity.StoreProfile, order *entity.Order) (*entity.InvoiceResult, error) {
	if err := s.checkPreconditions(store, order); err != nil {
		return nil, err
	}

	inv, err := s.buildInvoice(order)
	if err != nil {
		return nil, validationErr(CodeMissingOrderData, err)
	}

	result, err := s.invoices.CreateInvoice(ctx, store, inv)
	if err != nil {
		logger.Error().Err(err).Str("order_id", order.OrderIDString()).Msg("Invoice creation failed")
		return nil, downstreamErr(CodeInvoiceCreateFailed, err)
	}

	logger.Info().Str("order_id", order.OrderIDString()).Str("token", result.Token).Msg("Invoice created")
	return result, nil
}

// buildInvoice mirrors the order's line items onto an invoice. Line subtotals
// are recomputed from quantity and unit price; payload subtotals are never
// trusted.
func (s *BridgeService) buildInvoice(order *entity.Order) (entity.Invoice, error) {
	inv := entity.Invoice{
		Description: invoiceDescriptionPrefix + order.OrderIDString(),
		Items:       make([]entity.InvoiceItem, 0, len(order.LineItems)),
	}

	for _, li := range order.LineItems {
		unit, err := li.UnitPrice()
		if err != nil {
			return entity.Invoice{}, fmt.Errorf("line item %q has unparsable price: %w", li.Name, err)
		}
		inv.Items = append(inv.Items, entity.InvoiceItem{
			Name:        li.Name,
			Quantity:    li.Quantity,
			UnitPrice:   unit,
			TotalPrice:  float64(li.Quantity) * unit,
			Description: li.Title,
		})
	}

	total, err := order.TotalPrice()
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("order total unparsable: %w", err)
	}
	inv.TotalAmount = total

	return inv, nil
}

// storeFor derives the per-order merchant profile. The return URL points the
// payer back at their own order status page when the platform provides one.
func (s *BridgeService) storeFor(order *entity.Order) entity.StoreProfile {
	store := s.store
	if order.OrderStatusURL != "" {
		store.ReturnURL = order.OrderStatusURL
	}
	return store
}

// publishEvent is best-effort; a broker outage must not fail a request that
// already succeeded against the processor or the platform.
func publishEvent(ctx context.Context, p EventPublisher, key string, payload map[string]string) {
	if p == nil {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := p.Publish(ctx, key, value); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Failed to publish event")
	}
}

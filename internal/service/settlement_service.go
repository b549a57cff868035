package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"payment-bridge-service/internal/entity"
	"payment-bridge-service/internal/signature"
)

// orderIDPattern recovers the order identifier the orchestrator embedded in
// the invoice description.
var orderIDPattern = regexp.MustCompile(`Order ID: (\d+)`)

// OrderPlatform is the commerce platform's mutation surface used during
// settlement.
type OrderPlatform interface {
	MarkOrderPaid(ctx context.Context, orderID string) error
	AttachReceipt(ctx context.Context, orderID, receiptURL string) error
}

// SettlementService validates and applies the processor's asynchronous
// payment-confirmation callback.
type SettlementService struct {
	platform  OrderPlatform
	masterKey string
	publisher EventPublisher
}

func NewSettlementService(platform OrderPlatform, masterKey string, publisher EventPublisher) *SettlementService {
	return &SettlementService{
		platform:  platform,
		masterKey: masterKey,
		publisher: publisher,
	}
}

// SettlementResult reports what one notification led to.
type SettlementResult struct {
	OrderID string
	Settled bool
	Message string
}

// HandleNotification runs the settlement gates in order. The authenticity
// digest is checked before anything is read out of the payload; an
// unauthentic notification must not influence any processing.
func (s *SettlementService) HandleNotification(ctx context.Context, n *entity.SettlementNotification) (*SettlementResult, error) {
	expected, err := signature.NotificationDigest(s.masterKey)
	if err != nil {
		return nil, downstreamErr(CodeUnauthentic, err)
	}
	if !signature.DigestsEqual(expected, n.Hash) {
		logger.Warn().Msg("Settlement notification failed digest check")
		return nil, authErr(CodeUnauthentic)
	}

	match := orderIDPattern.FindStringSubmatch(n.Invoice.Description)
	if match == nil {
		return nil, validationErr(CodeOrderIDNotFound, errors.New("order identifier not present in invoice description"))
	}
	orderID := match[1]

	if n.Status != "completed" {
		logger.Info().Str("order_id", orderID).Str("status", n.Status).Msg("Payment not completed, acknowledging without settlement")
		return &SettlementResult{OrderID: orderID, Message: "payment failed or cancelled"}, nil
	}

	if err := s.platform.MarkOrderPaid(ctx, orderID); err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to mark order paid")
		return nil, downstreamErr(CodeOrderMutationFailed, err)
	}

	if err := s.platform.AttachReceipt(ctx, orderID, n.ReceiptURL); err != nil {
		logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to attach receipt reference")
		return nil, downstreamErr(CodeReceiptAttachFailed, err)
	}

	publishEvent(ctx, s.publisher, "order-settled-"+orderID, map[string]string{
		"order_id":    orderID,
		"receipt_url": n.ReceiptURL,
	})

	logger.Info().Str("order_id", orderID).Msg("Order settled")
	return &SettlementResult{
		OrderID: orderID,
		Settled: true,
		Message: fmt.Sprintf("Payment settled for order %s.", orderID),
	}, nil
}

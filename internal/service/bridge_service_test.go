package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-bridge-service/internal/entity"
)

type fakeGate struct {
	processed map[string]bool
	lookupErr error
	markErr   error
	marked    []string
}

func newFakeGate() *fakeGate {
	return &fakeGate{processed: make(map[string]bool)}
}

func (f *fakeGate) HasBeenProcessed(_ context.Context, orderID string) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.processed[orderID], nil
}

func (f *fakeGate) MarkProcessed(_ context.Context, orderID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.processed[orderID] = true
	f.marked = append(f.marked, orderID)
	return nil
}

type fakeInvoiceCreator struct {
	calls   int
	lastInv entity.Invoice
	result  *entity.InvoiceResult
	err     error
}

func (f *fakeInvoiceCreator) CreateInvoice(_ context.Context, _ entity.StoreProfile, inv entity.Invoice) (*entity.InvoiceResult, error) {
	f.calls++
	f.lastInv = inv
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &entity.InvoiceResult{Token: "tok_test", RedirectURL: "https://pay.example/checkout/tok_test"}, nil
}

type fakeMailer struct {
	sent    int
	lastTo  string
	lastSub string
	lastBod string
	err     error
}

func (f *fakeMailer) SendPaymentLink(to, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent++
	f.lastTo = to
	f.lastSub = subject
	f.lastBod = htmlBody
	return nil
}

type fakePublisher struct {
	keys []string
}

func (f *fakePublisher) Publish(_ context.Context, key string, _ []byte) error {
	f.keys = append(f.keys, key)
	return nil
}

type fakePlatform struct {
	paid        []string
	receipts    map[string]string
	markErr     error
	attachErr   error
	attachCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{receipts: make(map[string]string)}
}

func (f *fakePlatform) MarkOrderPaid(_ context.Context, orderID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.paid = append(f.paid, orderID)
	return nil
}

func (f *fakePlatform) AttachReceipt(_ context.Context, orderID, receiptURL string) error {
	f.attachCalls++
	if f.attachErr != nil {
		return f.attachErr
	}
	f.receipts[orderID] = receiptURL
	return nil
}

func testStore() entity.StoreProfile {
	return entity.StoreProfile{
		Name:      "Test Boutique",
		ReturnURL: "https://shop.example/return",
	}
}

func testOrder(createdAt time.Time) *entity.Order {
	return &entity.Order{
		ID:                450789469,
		OrderNumber:       1001,
		CreatedAt:         createdAt,
		FinancialStatus:   "pending",
		Gateway:           "paydunya",
		CurrentTotalPrice: "3500.00",
		Email:             "bob@example.com",
		Customer:          entity.Customer{FirstName: "Bob", LastName: "Norman"},
		LineItems: []entity.LineItem{
			{Name: "IPod Nano - 8gb", Title: "IPod Nano", Quantity: 2, Price: "1500.00", TotalPrice: "9999.99"},
			{Name: "Case", Title: "Case", Quantity: 1, Price: "500.00", TotalPrice: "0.01"},
		},
	}
}

type bridgeFixture struct {
	svc       *BridgeService
	gate      *fakeGate
	invoices  *fakeInvoiceCreator
	mailer    *fakeMailer
	publisher *fakePublisher
}

func newBridgeFixture(gatewayLabel string) *bridgeFixture {
	f := &bridgeFixture{
		gate:      newFakeGate(),
		invoices:  &fakeInvoiceCreator{},
		mailer:    &fakeMailer{},
		publisher: &fakePublisher{},
	}
	f.svc = NewBridgeService(f.gate, f.invoices, f.mailer, f.publisher, testStore(), gatewayLabel)
	return f
}

func TestProcessOrderEventSuccess(t *testing.T) {
	f := newBridgeFixture("paydunya")
	order := testOrder(time.Now().Add(-1 * time.Hour))

	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "tok_test", result.Token)
	assert.Equal(t, "https://pay.example/checkout/tok_test", result.RedirectURL)

	assert.Equal(t, 1, f.invoices.calls)
	assert.Equal(t, 1, f.mailer.sent)
	assert.Equal(t, "bob@example.com", f.mailer.lastTo)
	assert.Contains(t, f.mailer.lastSub, "Bob Norman")
	assert.Contains(t, f.mailer.lastSub, "#1001")
	assert.Contains(t, f.mailer.lastBod, "https://pay.example/checkout/tok_test")

	assert.Equal(t, []string{"450789469"}, f.gate.marked)
	assert.Equal(t, []string{"invoice-created-450789469"}, f.publisher.keys)
}

func TestProcessOrderEventInvoiceDescription(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())

	_, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "Order ID: 450789469", f.invoices.lastInv.Description)
}

func TestProcessOrderEventSubtotalsRecomputed(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())

	_, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)

	// Payload subtotals (9999.99, 0.01) are ignored.
	require.Len(t, f.invoices.lastInv.Items, 2)
	assert.Equal(t, 3000.0, f.invoices.lastInv.Items[0].TotalPrice)
	assert.Equal(t, 500.0, f.invoices.lastInv.Items[1].TotalPrice)
	assert.Equal(t, 3500.0, f.invoices.lastInv.TotalAmount)
}

func TestProcessOrderEventGatewaySkip(t *testing.T) {
	f := newBridgeFixture("paydunya")
	order := testOrder(time.Now())
	order.Gateway = "manual"

	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 0, f.invoices.calls)
}

func TestProcessOrderEventDuplicateSkip(t *testing.T) {
	f := newBridgeFixture("")
	f.gate.processed["450789469"] = true
	order := testOrder(time.Now())

	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.Reason, "already processed")
	assert.Equal(t, 0, f.invoices.calls)
	assert.Equal(t, 0, f.mailer.sent)
}

func TestProcessOrderEventDedupLookupError(t *testing.T) {
	f := newBridgeFixture("")
	f.gate.lookupErr = errors.New("cache down")
	order := testOrder(time.Now())

	_, err := f.svc.ProcessOrderEvent(context.Background(), order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeDedupUnavailable, be.Code)
	assert.Equal(t, KindDownstream, be.Kind)
	assert.Equal(t, 0, f.invoices.calls)
}

func TestProcessOrderEventStaleOrderSkip(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now().Add(-25 * time.Hour))

	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, string(CodeStaleOrder), result.Reason)
	assert.Equal(t, 0, f.invoices.calls)
	assert.Empty(t, f.gate.marked)
}

func TestProcessOrderEventAlreadyPaidSkip(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())
	order.FinancialStatus = "paid"

	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, string(CodeAlreadyPaid), result.Reason)
	assert.Equal(t, 0, f.invoices.calls)
}

func TestProcessOrderEventMissingID(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())
	order.ID = 0

	_, err := f.svc.ProcessOrderEvent(context.Background(), order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeMissingOrderData, be.Code)
	assert.Equal(t, KindValidation, be.Kind)
}

func TestProcessOrderEventMissingEmail(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())
	order.Email = ""

	_, err := f.svc.ProcessOrderEvent(context.Background(), order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeMissingOrderData, be.Code)
	assert.Equal(t, 0, f.invoices.calls)
}

func TestProcessOrderEventProcessorFailure(t *testing.T) {
	f := newBridgeFixture("")
	f.invoices.err = errors.New("processor 502")
	order := testOrder(time.Now())

	_, err := f.svc.ProcessOrderEvent(context.Background(), order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeInvoiceCreateFailed, be.Code)
	assert.Equal(t, 0, f.mailer.sent)
	assert.Empty(t, f.gate.marked)
}

func TestProcessOrderEventEmailFailureLeavesGateUnmarked(t *testing.T) {
	f := newBridgeFixture("")
	f.mailer.err = errors.New("smtp timeout")
	order := testOrder(time.Now())

	_, err := f.svc.ProcessOrderEvent(context.Background(), order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeEmailSendFailed, be.Code)

	// The invoice was created but dispatch failed; a redelivery may retry.
	assert.Equal(t, 1, f.invoices.calls)
	assert.Empty(t, f.gate.marked)
}

func TestCreateInvoiceMissingStore(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())

	_, err := f.svc.CreateInvoice(context.Background(), entity.StoreProfile{}, order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeMissingStore, be.Code)
}

func TestCreateInvoiceBadLinePrice(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())
	order.LineItems[0].Price = "not-a-price"

	_, err := f.svc.CreateInvoice(context.Background(), testStore(), order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeMissingOrderData, be.Code)
	assert.True(t, strings.Contains(err.Error(), "price"))
}

func TestProcessOrderEventStaleWinsOverMissingEmail(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now().Add(-30 * time.Hour))
	order.Email = ""

	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, string(CodeStaleOrder), result.Reason)
	assert.Equal(t, 0, f.invoices.calls)
}

func TestProcessOrderEventStaleWinsOverMissingStore(t *testing.T) {
	f := &bridgeFixture{
		gate:      newFakeGate(),
		invoices:  &fakeInvoiceCreator{},
		mailer:    &fakeMailer{},
		publisher: &fakePublisher{},
	}
	f.svc = NewBridgeService(f.gate, f.invoices, f.mailer, f.publisher, entity.StoreProfile{}, "")
	order := testOrder(time.Now().Add(-30 * time.Hour))

	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, string(CodeStaleOrder), result.Reason)
}

func TestCreateInvoiceStaleWinsOverMissingStore(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now().Add(-30 * time.Hour))

	_, err := f.svc.CreateInvoice(context.Background(), entity.StoreProfile{}, order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeStaleOrder, be.Code)
	assert.Equal(t, KindPrecondition, be.Kind)
}

func TestCreateInvoiceAlreadyPaidWinsOverMissingStore(t *testing.T) {
	f := newBridgeFixture("")
	order := testOrder(time.Now())
	order.FinancialStatus = "paid"

	_, err := f.svc.CreateInvoice(context.Background(), entity.StoreProfile{}, order)
	var be *BridgeError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, CodeAlreadyPaid, be.Code)
}

func TestProcessOrderEventStaleBoundary(t *testing.T) {
	f := newBridgeFixture("")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	// Just inside the window still dispatches.
	order := testOrder(base.Add(-23 * time.Hour))
	result, err := f.svc.ProcessOrderEvent(context.Background(), order)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"payment-bridge-service/internal/cache"
	"payment-bridge-service/internal/entity"
	"payment-bridge-service/internal/service"
	"payment-bridge-service/internal/signature"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const webhookSignatureHeader = "X-Shopify-Hmac-Sha256"

// CacheAdmin is the maintenance surface exposed on the admin routes.
type CacheAdmin interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Flush(ctx context.Context) error
}

// EventRecorder persists and reads back the webhook audit trail. May be nil
// when the audit database is not configured.
type EventRecorder interface {
	Record(ctx context.Context, ev *entity.WebhookEvent) error
	RecentByEventID(ctx context.Context, eventID string, limit int) ([]entity.WebhookEvent, error)
}

type Handler struct {
	bridge        *service.BridgeService
	settlement    *service.SettlementService
	cacheAdmin    CacheAdmin
	recorder      EventRecorder
	webhookSecret string
}

func NewHandler(bridge *service.BridgeService, settlement *service.SettlementService, cacheAdmin CacheAdmin, recorder EventRecorder, webhookSecret string) *Handler {
	return &Handler{
		bridge:        bridge,
		settlement:    settlement,
		cacheAdmin:    cacheAdmin,
		recorder:      recorder,
		webhookSecret: webhookSecret,
	}
}

// Register wires the routes. Admin routes are mounted only when a JWT secret
// is configured.
func (h *Handler) Register(e *echo.Echo, adminJWTSecret string) {
	e.POST("/webhook/orders/create", h.HandleOrderWebhook)
	e.POST("/payment/ipn", h.HandleIPN)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "payment-bridge-service",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	if adminJWTSecret != "" {
		admin := e.Group("/admin", echojwt.WithConfig(echojwt.Config{
			SigningKey: []byte(adminJWTSecret),
		}))
		admin.GET("/cache/stats", h.CacheStats)
		admin.POST("/cache/flush", h.FlushCache)
		admin.GET("/events/:id", h.RecentEvents)
	}
}

// HandleOrderWebhook receives the platform's order-creation webhook. The
// body is verified byte-for-byte against the signature header before any
// parsing.
func (h *Handler) HandleOrderWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(400, map[string]string{"error": "unreadable request body"})
	}

	provided := c.Request().Header.Get(webhookSignatureHeader)
	if !signature.VerifyWebhookSignature(h.webhookSecret, body, provided) {
		h.record(ctx, "commerce", "", "orders/create", string(body), false, string(service.CodeUnauthentic), "hmac verification failed")
		return c.JSON(401, map[string]string{"error": "HMAC verification failed"})
	}

	var order entity.Order
	if err := json.Unmarshal(body, &order); err != nil {
		h.record(ctx, "commerce", "", "orders/create", string(body), true, string(service.CodeMissingOrderData), err.Error())
		return c.JSON(400, map[string]string{"error": "malformed order payload"})
	}

	result, err := h.bridge.ProcessOrderEvent(ctx, &order)
	if err != nil {
		h.record(ctx, "commerce", order.OrderIDString(), "orders/create", string(body), true, outcomeCode(err), err.Error())
		return h.respondError(c, err)
	}

	if result.Skipped {
		h.record(ctx, "commerce", order.OrderIDString(), "orders/create", string(body), true, "SKIPPED", result.Reason)
		return c.JSON(200, map[string]string{"status": "skipped", "reason": result.Reason})
	}

	h.record(ctx, "commerce", order.OrderIDString(), "orders/create", string(body), true, "DISPATCHED", "")
	return c.JSON(200, map[string]string{"redirect_url": result.RedirectURL})
}

// HandleIPN receives the processor's settlement notification.
func (h *Handler) HandleIPN(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(400, map[string]string{"error": "unreadable request body"})
	}

	var env entity.IPNEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return c.JSON(400, map[string]string{"error": "malformed notification payload"})
	}

	result, err := h.settlement.HandleNotification(ctx, &env.Data)
	if err != nil {
		code := outcomeCode(err)
		h.record(ctx, "processor", env.Data.Invoice.Token, "ipn", string(body), code != string(service.CodeUnauthentic), code, err.Error())
		return h.respondError(c, err)
	}

	h.record(ctx, "processor", result.OrderID, "ipn", string(body), true, settledCode(result.Settled), "")
	return c.JSON(200, map[string]string{"message": result.Message})
}

func (h *Handler) CacheStats(c echo.Context) error {
	stats, err := h.cacheAdmin.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": "cache stats unavailable"})
	}
	return c.JSON(200, stats)
}

// RecentEvents returns the newest audit rows for one order id or invoice
// token.
func (h *Handler) RecentEvents(c echo.Context) error {
	if h.recorder == nil {
		return c.JSON(404, map[string]string{"error": "audit trail not configured"})
	}
	events, err := h.recorder.RecentByEventID(c.Request().Context(), c.Param("id"), 20)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read webhook events")
		return c.JSON(500, map[string]string{"error": "audit lookup failed"})
	}
	return c.JSON(200, events)
}

func (h *Handler) FlushCache(c echo.Context) error {
	if err := h.cacheAdmin.Flush(c.Request().Context()); err != nil {
		return c.JSON(500, map[string]string{"error": "cache flush failed"})
	}
	return c.JSON(200, map[string]string{"status": "flushed"})
}

// respondError maps the service taxonomy onto HTTP. Only the outcome code
// leaves the process; upstream detail stays in the logs.
func (h *Handler) respondError(c echo.Context, err error) error {
	var be *service.BridgeError
	if !errors.As(err, &be) {
		logger.Error().Err(err).Msg("Unclassified handler error")
		return c.JSON(500, map[string]string{"error": "internal error"})
	}

	status := http.StatusInternalServerError
	switch be.Kind {
	case service.KindAuthentication:
		status = http.StatusUnauthorized
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindPrecondition:
		status = http.StatusOK
	}

	if be.Kind == service.KindDownstream {
		logger.Error().Err(be.Err).Str("code", string(be.Code)).Msg("Downstream failure")
	}
	return c.JSON(status, map[string]string{"error": string(be.Code)})
}

func (h *Handler) record(ctx context.Context, provider, eventID, eventType, payload string, sigValid bool, code, procErr string) {
	if h.recorder == nil {
		return
	}
	err := h.recorder.Record(ctx, &entity.WebhookEvent{
		Provider:        provider,
		EventID:         eventID,
		EventType:       eventType,
		Payload:         payload,
		SignatureValid:  sigValid,
		OutcomeCode:     code,
		ProcessingError: procErr,
	})
	if err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Msg("Failed to record webhook event")
	}
}

func outcomeCode(err error) string {
	var be *service.BridgeError
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return "INTERNAL"
}

func settledCode(settled bool) string {
	if settled {
		return "SETTLED"
	}
	return "PAYMENT_NOT_COMPLETED"
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
	"github.com/Sashankstar/Food-order-tracking/internal/messaging"
)

// NotificationHandler tells customers about status changes of their orders.
// Delivery details are looked up from the orders service because the event
// carries only the order id and the new status.
type NotificationHandler struct {
	ordersServiceURL string
	httpClient       *http.Client
	logger           *slog.Logger
}

func NewNotificationHandler(ordersServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		ordersServiceURL: ordersServiceURL,
		httpClient:       client,
		logger:           logger,
	}
}

// Handle processes one order.status_changed message. Orders that no longer
// exist are skipped. Malformed payloads and ids the orders service rejects
// are marked permanent; any other failure is returned so the message is not
// committed.
func (h *NotificationHandler) Handle(ctx context.Context, msg messaging.Message) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return messaging.Permanent(fmt.Errorf("unmarshal order status changed event: %w", err))
	}

	h.logger.Info("processing order status changed event", "order_id", event.OrderID, "status", event.Status)

	order, err := h.fetchOrder(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn("order not found, notification skipped", "order_id", event.OrderID)
			return nil
		}
		if errors.Is(err, domain.ErrInvalidID) {
			return messaging.Permanent(fmt.Errorf("fetch order %q: %w", event.OrderID, err))
		}
		h.logger.Error("failed to fetch order", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("fetch order %s: %w", event.OrderID, err)
	}

	h.logger.Info("customer notified",
		"order_id", order.ID,
		"status", event.Status,
		"name", order.DeliveryDetails.Name,
		"phone", order.DeliveryDetails.Phone,
	)
	return nil
}

func (h *NotificationHandler) fetchOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	endpoint := fmt.Sprintf("%s/api/orders/%s", h.ordersServiceURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	case http.StatusBadRequest:
		return nil, domain.ErrInvalidID
	default:
		return nil, fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

// Package tracker follows a single order by polling the orders API.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
	"github.com/Sashankstar/Food-order-tracking/internal/telemetry"
)

// DefaultInterval matches the spacing of the lifecycle schedule.
const DefaultInterval = 3 * domain.DefaultTimeUnit

// Renderer receives every poll outcome. Snapshot is the last order that was
// fetched successfully, or nil before the first success. Err is the failure
// of the current poll, if any; domain.ErrNotFound means the order does not
// exist.
type Renderer interface {
	Render(snapshot *domain.Order, err error)
}

type RenderFunc func(snapshot *domain.Order, err error)

func (f RenderFunc) Render(snapshot *domain.Order, err error) { f(snapshot, err) }

type Poller struct {
	baseURL    string
	interval   time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithHTTPClient replaces the default client. nil keeps the default.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) {
		if c != nil {
			p.httpClient = c
		}
	}
}

func NewPoller(baseURL string, logger *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		baseURL:  strings.TrimRight(baseURL, "/"),
		interval: DefaultInterval,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: telemetry.NewTransport(nil),
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Fetch reads the current state of an order once.
func (p *Poller) Fetch(ctx context.Context, orderID string) (*domain.Order, error) {
	endpoint := fmt.Sprintf("%s/api/orders/%s", p.baseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	case http.StatusBadRequest:
		return nil, domain.ErrInvalidID
	default:
		return nil, fmt.Errorf("orders api returned status %d", resp.StatusCode)
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

// Watch polls orderID immediately and then on every interval until ctx is
// done. Each successful poll replaces the snapshot handed to r; a failed
// poll keeps the previous snapshot. With untilDelivered set, Watch returns
// nil once the order is Delivered.
func (p *Poller) Watch(ctx context.Context, orderID string, r Renderer, untilDelivered bool) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var snapshot *domain.Order
	for {
		order, err := p.Fetch(ctx, orderID)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				p.logger.Warn("poll failed", "error", err, "order_id", orderID)
			}
		} else {
			snapshot = order
		}
		r.Render(snapshot, err)

		if untilDelivered && snapshot != nil && snapshot.Status.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

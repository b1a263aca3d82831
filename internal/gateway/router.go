package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Sashankstar/Food-order-tracking/internal/telemetry"
)

type RouterConfig struct {
	CORSOrigins []string
	// CreateRateLimit and CreateRateBurst apply per client IP.
	CreateRateLimit float64
	CreateRateBurst int
}

// NewRouter builds the public /api surface in front of the upstream services.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	createLimiter := NewClientLimiter(cfg.CreateRateLimit, cfg.CreateRateBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api", telemetry.WithHTTPRoute(h.HandleIndex))
	mux.HandleFunc("GET /api/menu", telemetry.WithHTTPRoute(h.HandleMenu))
	mux.HandleFunc("GET /api/orders", telemetry.WithHTTPRoute(h.HandleOrders))
	mux.HandleFunc("POST /api/orders", telemetry.WithHTTPRoute(RateLimit(createLimiter, h.HandleOrders)))
	mux.HandleFunc("GET /api/orders/{id}", telemetry.WithHTTPRoute(h.HandleOrders))

	var handler http.Handler = mux
	handler = CORS(cfg.CORSOrigins)(handler)
	handler = middleware.Recoverer(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)

	return handler
}

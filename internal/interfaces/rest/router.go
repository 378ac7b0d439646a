package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the connector's route tree. Cross-cutting middleware
// (recovery, logging, timeouts) is layered on top by the caller.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/live", h.health)
	r.Get("/ready", h.ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/docs", h.Docs)

	// Session-scoped surface for the checkout enabler.
	r.Group(func(r chi.Router) {
		r.Use(h.sessionGuard)
		r.Post("/balance", h.Balance)
		r.Post("/redeem", h.Redeem)
		r.Delete("/payment/{paymentID}", h.RemovePayment)
	})

	// Operations surface for the checkout platform.
	r.Group(func(r chi.Router) {
		r.Use(h.jwtGuard)
		r.Get("/operations/status", h.Status)
		r.Post("/operations/payment-intents/{paymentID}", h.ModifyPayment)
	})

	return r
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"service": "giftcard-connector",
		"status":  "ok",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

// ready checks downstream connectivity, mirroring the operations status
// endpoint without requiring a token.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	result := h.service.Status(r.Context())
	status := http.StatusOK
	if result.Status != "UP" {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, map[string]string{"status": result.Status})
}

package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// CheckoutHandler exposes checkout-session creation, the purchase option
// catalog and the payment webhook.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
	validate        *validator.Validate
	logger          zerolog.Logger
}

func NewCheckoutHandler(checkoutService *service.CheckoutService, validate *validator.Validate, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, validate: validate, logger: logger}
}

// RegisterRoutes mounts the checkout routes. The webhook is deliberately
// outside the auth middleware; Stripe authenticates through the signature.
func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/checkout-sessions", authMw(http.HandlerFunc(h.createCheckoutSession)))
	mux.Handle("/purchase-options", authMw(http.HandlerFunc(h.listPurchaseOptions)))
	mux.HandleFunc("/webhooks/stripe", h.checkoutService.HandleWebhook)
}

func (h *CheckoutHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req dto.CreateCheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing priceId in request body")
		return
	}
	url, err := h.checkoutService.CreateCheckoutSession(r.Context(), userID, req.PriceID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create checkout session")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CheckoutSessionData{URL: url})
}

func (h *CheckoutHandler) listPurchaseOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.checkoutService.PurchaseOptions())
}

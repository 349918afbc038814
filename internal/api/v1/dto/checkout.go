package dto

// CreateCheckoutSessionRequest is the body of POST /checkout-sessions.
type CreateCheckoutSessionRequest struct {
	PriceID string `json:"priceId" validate:"required"`
}

// CheckoutSessionData carries the hosted checkout URL.
type CheckoutSessionData struct {
	URL string `json:"url"`
}

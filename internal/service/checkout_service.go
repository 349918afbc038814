package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"app/internal/config"
	"app/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrUnknownPriceID is returned when a webhook references a price that maps
// to no configured purchase option. Surfaced and logged, never retried.
var ErrUnknownPriceID = errors.New("unknown price id")

// PurchaseOption is one credit pack a user can buy.
type PurchaseOption struct {
	ID      string `json:"id"`
	PriceID string `json:"price_id"`
	Credits int    `json:"credits"`
	Price   int    `json:"price"`
	Tagline string `json:"tagline"`
}

// CheckoutService creates Stripe checkout sessions and fulfills completed
// ones by crediting the user's balance.
type CheckoutService struct {
	cfg     *config.Config
	users   repository.UserRepository
	options []PurchaseOption
	logger  zerolog.Logger
}

// NewCheckoutService initializes the Stripe key and builds the purchase
// option table from config.
func NewCheckoutService(cfg *config.Config, users repository.UserRepository, logger zerolog.Logger) *CheckoutService {
	stripe.Key = cfg.StripeSecretKey
	options := []PurchaseOption{
		{ID: "1", PriceID: cfg.StripePriceStarter, Credits: 5, Price: 5, Tagline: "Perfect to try things out"},
		{ID: "2", PriceID: cfg.StripePriceValue, Credits: 15, Price: 10, Tagline: "Save 33%"},
		{ID: "3", PriceID: cfg.StripePricePlus, Credits: 35, Price: 20, Tagline: "Save 43%"},
		{ID: "4", PriceID: cfg.StripePriceMax, Credits: 100, Price: 50, Tagline: "Best value! Save 50%"},
	}
	return &CheckoutService{
		cfg:     cfg,
		users:   users,
		options: options,
		logger:  logger.With().Str("service", "CheckoutService").Logger(),
	}
}

// PurchaseOptions returns the configured credit packs.
func (s *CheckoutService) PurchaseOptions() []PurchaseOption {
	return s.options
}

func (s *CheckoutService) optionByPriceID(priceID string) (PurchaseOption, bool) {
	for _, opt := range s.options {
		if opt.PriceID != "" && opt.PriceID == priceID {
			return opt, true
		}
	}
	return PurchaseOption{}, false
}

// CreateCheckoutSession starts a one-time Stripe payment for the given price
// and returns the hosted checkout URL. The user and price land in the session
// metadata so the webhook can fulfill the order.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error) {
	if _, ok := s.optionByPriceID(priceID); !ok {
		return "", ErrUnknownPriceID
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(s.cfg.BaseURL + "/?payment=success"),
		CancelURL:          stripe.String(s.cfg.BaseURL + "/?payment=cancelled"),
		Metadata:           map[string]string{"userId": userID, "priceId": priceID},
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error().Err(err).Str("price_id", priceID).Msg("Failed to create checkout session")
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// FulfillOrder credits the user for a completed checkout session. The session
// ID doubles as the ledger idempotency key, so a redelivered webhook applies
// the credit exactly once.
func (s *CheckoutService) FulfillOrder(ctx context.Context, sessionID, userID, priceID string) error {
	opt, ok := s.optionByPriceID(priceID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPriceID, priceID)
	}
	reason := fmt.Sprintf("Fulfilled checkout session %s", sessionID)
	if err := s.users.AdjustBalance(ctx, userID, opt.Credits, reason, sessionID); err != nil {
		return fmt.Errorf("credit user %s: %w", userID, err)
	}
	s.logger.Info().
		Str("session_id", sessionID).
		Str("user_id", userID).
		Int("credits", opt.Credits).
		Msg("Order fulfilled")
	return nil
}

// HandleWebhook processes Stripe webhook events. Signature verification
// happens before anything else; unhandled event types are acknowledged and
// ignored.
func (s *CheckoutService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Error().Err(err).Msg("Signature verification failed for Stripe webhook")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}
	s.logger.Info().Str("event_type", string(event.Type)).Msg("Stripe webhook received")

	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			s.logger.Error().Err(err).Msg("Invalid checkout.session data")
			http.Error(w, "invalid checkout.session data", http.StatusBadRequest)
			return
		}
		userID := cs.Metadata["userId"]
		priceID := cs.Metadata["priceId"]
		if userID == "" || priceID == "" {
			s.logger.Error().Str("session_id", cs.ID).Msg("Checkout session missing userId/priceId metadata")
			http.Error(w, "missing metadata", http.StatusBadRequest)
			return
		}
		if err := s.FulfillOrder(r.Context(), cs.ID, userID, priceID); err != nil {
			// An unknown user or price can never fulfill; acknowledge so
			// Stripe stops redelivering and leave the error in the logs.
			if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, ErrUnknownPriceID) {
				s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Order can never be fulfilled, dropping event")
				break
			}
			s.logger.Error().Err(err).Str("session_id", cs.ID).Msg("Failed to fulfill order")
			http.Error(w, "failed to fulfill order", http.StatusInternalServerError)
			return
		}
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe event type")
	}

	w.WriteHeader(http.StatusOK)
}

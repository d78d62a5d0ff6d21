package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

type Config struct {
	WebhookSecret string
	// Tolerance is the accepted clock skew for the signature timestamp.
	Tolerance time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		WebhookSecret: envutil.String("STRIPE_WEBHOOK_SECRET", ""),
		Tolerance:     envutil.Seconds("STRIPE_WEBHOOK_TOLERANCE_SECONDS", webhook.DefaultTolerance),
	}
}

// Event is the subset of a Stripe event the billing service acts on.
// Checkout and Subscription are set according to Type.
type Event struct {
	ID           string
	Type         string
	Checkout     *CheckoutCompleted
	Subscription *SubscriptionChange
}

type CheckoutCompleted struct {
	// UserRef is the checkout session's client_reference_id.
	UserRef    string
	CustomerID string
	Plan       string
}

type SubscriptionChange struct {
	CustomerID       string
	Status           string
	Plan             string
	CurrentPeriodEnd time.Time
	Deleted          bool
}

// Active reports whether the subscription still grants a paid plan.
func (s SubscriptionChange) Active() bool {
	if s.Deleted {
		return false
	}
	switch stripe.SubscriptionStatus(s.Status) {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing, stripe.SubscriptionStatusPastDue:
		return true
	}
	return false
}

type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(cfg Config) (*WebhookVerifier, error) {
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, fmt.Errorf("missing STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = webhook.DefaultTolerance
	}
	return &WebhookVerifier{secret: cfg.WebhookSecret, tolerance: cfg.Tolerance}, nil
}

// Parse verifies the Stripe-Signature header over the raw payload and decodes the event.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, apierr.Wrap(apierr.KindValidation, fmt.Errorf("invalid webhook signature: %w", err))
	}

	out := Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}
	switch out.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return Event{}, apierr.Wrap(apierr.KindValidation, fmt.Errorf("decode checkout session: %w", err))
		}
		c := &CheckoutCompleted{UserRef: sess.ClientReferenceID, Plan: sess.Metadata["plan"]}
		if sess.Customer != nil {
			c.CustomerID = sess.Customer.ID
		}
		out.Checkout = c
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return Event{}, apierr.Wrap(apierr.KindValidation, fmt.Errorf("decode subscription: %w", err))
		}
		s := &SubscriptionChange{
			Status:  string(sub.Status),
			Plan:    sub.Metadata["plan"],
			Deleted: out.Type == EventSubscriptionDeleted,
		}
		if sub.Customer != nil {
			s.CustomerID = sub.Customer.ID
		}
		if sub.CurrentPeriodEnd > 0 {
			s.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		}
		out.Subscription = s
	}
	return out, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/repos"
	types "github.com/yungbote/coursegen-backend/internal/domain"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	stripebilling "github.com/yungbote/coursegen-backend/internal/platform/billing"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type PlanInfo struct {
	ID                  types.Plan `json:"id"`
	PriceCents          int        `json:"price_cents"`
	Currency            string     `json:"currency"`
	Interval            string     `json:"interval,omitempty"`
	MaxCourses          int        `json:"max_courses"`
	MaxModules          int        `json:"max_modules"`
	MaxLessonsPerModule int        `json:"max_lessons_per_module"`
}

type PlanPrices struct {
	MonthlyCents int
	YearlyCents  int
	Currency     string
}

type WebhookParser interface {
	Parse(payload []byte, signature string) (stripebilling.Event, error)
}

type WebhookOutcome struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate"`
	Handled   bool   `json:"handled"`
}

type BillingService interface {
	Plans() []PlanInfo
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookOutcome, error)
}

type billingService struct {
	db        *gorm.DB
	log       *logger.Logger
	userRepo  repos.UserRepo
	eventRepo repos.PaymentEventRepo
	parser    WebhookParser
	prices    PlanPrices
}

func NewBillingService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	eventRepo repos.PaymentEventRepo,
	parser WebhookParser,
	prices PlanPrices,
) BillingService {
	serviceLog := log.With("service", "BillingService")
	if prices.Currency == "" {
		prices.Currency = "usd"
	}
	return &billingService{
		db:        db,
		log:       serviceLog,
		userRepo:  userRepo,
		eventRepo: eventRepo,
		parser:    parser,
		prices:    prices,
	}
}

func (bs *billingService) Plans() []PlanInfo {
	plan := func(p types.Plan, cents int, interval string) PlanInfo {
		l := p.Limits()
		return PlanInfo{
			ID:                  p,
			PriceCents:          cents,
			Currency:            bs.prices.Currency,
			Interval:            interval,
			MaxCourses:          l.MaxCourses,
			MaxModules:          l.MaxModules,
			MaxLessonsPerModule: l.MaxLessons,
		}
	}
	return []PlanInfo{
		plan(types.PlanFree, 0, ""),
		plan(types.PlanMonthly, bs.prices.MonthlyCents, "month"),
		plan(types.PlanYearly, bs.prices.YearlyCents, "year"),
	}
}

func (bs *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookOutcome, error) {
	if bs.parser == nil {
		return nil, apierr.Newf(apierr.KindNotConfigured, "payments are not configured")
	}
	ev, err := bs.parser.Parse(payload, signature)
	if err != nil {
		observability.Current().IncWebhookEvent("unknown", "rejected")
		return nil, err
	}
	out := &WebhookOutcome{EventID: ev.ID, Type: ev.Type}

	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userID, handled, err := bs.apply(ctx, tx, ev)
		if err != nil {
			return err
		}
		record := &types.PaymentEvent{StripeEventID: ev.ID, Type: ev.Type}
		if userID != uuid.Nil {
			record.UserID = &userID
		}
		fresh, err := bs.eventRepo.Record(ctx, tx, record)
		if err != nil {
			return fmt.Errorf("record payment event: %w", err)
		}
		if !fresh {
			out.Duplicate = true
			return errDuplicateEvent
		}
		out.Handled = handled
		return nil
	})
	if errors.Is(err, errDuplicateEvent) {
		bs.log.Info("duplicate webhook event ignored", "event_id", ev.ID, "type", ev.Type)
		observability.Current().IncWebhookEvent(ev.Type, "duplicate")
		return out, nil
	}
	if err != nil {
		observability.Current().IncWebhookEvent(ev.Type, "error")
		return nil, err
	}
	result := "ignored"
	if out.Handled {
		result = "applied"
	}
	observability.Current().IncWebhookEvent(ev.Type, result)
	return out, nil
}

// errDuplicateEvent rolls back plan changes made for an already processed event.
var errDuplicateEvent = errors.New("duplicate payment event")

func (bs *billingService) apply(ctx context.Context, tx *gorm.DB, ev stripebilling.Event) (uuid.UUID, bool, error) {
	switch {
	case ev.Checkout != nil:
		userID, err := uuid.Parse(ev.Checkout.UserRef)
		if err != nil {
			bs.log.Warn("checkout without a user reference", "event_id", ev.ID)
			return uuid.Nil, false, nil
		}
		users, err := bs.userRepo.GetByIDs(ctx, tx, []uuid.UUID{userID})
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("load user: %w", err)
		}
		if len(users) == 0 {
			bs.log.Warn("checkout for unknown user", "event_id", ev.ID, "user_id", userID)
			return uuid.Nil, false, nil
		}
		plan := types.ParsePlan(ev.Checkout.Plan)
		if !plan.Paid() {
			bs.log.Warn("checkout without a paid plan", "event_id", ev.ID, "plan", ev.Checkout.Plan)
			return userID, false, nil
		}
		if err := bs.userRepo.UpdatePlan(ctx, tx, userID, plan, nil); err != nil {
			return uuid.Nil, false, fmt.Errorf("update plan: %w", err)
		}
		if ev.Checkout.CustomerID != "" {
			if err := bs.userRepo.UpdateStripeCustomerID(ctx, tx, userID, ev.Checkout.CustomerID); err != nil {
				return uuid.Nil, false, fmt.Errorf("store customer: %w", err)
			}
		}
		bs.log.Info("plan activated", "user_id", userID, "plan", plan)
		return userID, true, nil

	case ev.Subscription != nil:
		sub := ev.Subscription
		user, err := bs.userRepo.GetByStripeCustomerID(ctx, tx, sub.CustomerID)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("load user: %w", err)
		}
		if user == nil {
			bs.log.Warn("subscription event for unknown customer", "event_id", ev.ID)
			return uuid.Nil, false, nil
		}
		plan := types.PlanFree
		var renews *time.Time
		if sub.Active() {
			plan = types.ParsePlan(sub.Plan)
			if !plan.Paid() {
				// Metadata missing: keep the paid plan the user already has.
				plan = user.Plan
			}
			if !sub.CurrentPeriodEnd.IsZero() {
				end := sub.CurrentPeriodEnd
				renews = &end
			}
		}
		if err := bs.userRepo.UpdatePlan(ctx, tx, user.ID, plan, renews); err != nil {
			return uuid.Nil, false, fmt.Errorf("update plan: %w", err)
		}
		bs.log.Info("subscription applied", "user_id", user.ID, "plan", plan, "status", sub.Status)
		return user.ID, true, nil
	}
	return uuid.Nil, false, nil
}

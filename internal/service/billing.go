package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/keepat/api/internal/apperr"
	"github.com/keepat/api/internal/models"
	"github.com/keepat/api/internal/payment"
	"github.com/keepat/api/internal/store"
)

// BillingService drives plan and card changes against the payment provider
// and keeps the application row's cached views in sync.
type BillingService struct {
	store         store.Store
	payments      payment.Provider
	applications  *ApplicationService
	plans         []models.Plan
	defaultPlanID string
}

// NewBillingService constructs a BillingService over the configured plan
// catalog.
func NewBillingService(st store.Store, payments payment.Provider, applications *ApplicationService, plans []models.Plan, defaultPlanID string) *BillingService {
	return &BillingService{
		store:         st,
		payments:      payments,
		applications:  applications,
		plans:         plans,
		defaultPlanID: defaultPlanID,
	}
}

// Plans returns the plan catalog.
func (s *BillingService) Plans() []models.Plan {
	return s.plans
}

func (s *BillingService) plan(id string) (models.Plan, error) {
	for _, plan := range s.plans {
		if plan.ID == id {
			return plan, nil
		}
	}
	return models.Plan{}, apperr.NotFound("PlanNotFound", "Plan does not exist.")
}

// UpdateCreditCard attaches the card behind token to the application's
// customer and stores the card summary on the application row.
func (s *BillingService) UpdateCreditCard(ctx context.Context, applicationID, token string) (models.Card, error) {
	log.Infof("billing updateCreditCard app %s", applicationID)

	if err := s.payments.AttachCard(ctx, applicationID, token); err != nil {
		log.Warnf("billing updateCreditCard app %s: %v", applicationID, err)
		return models.Card{}, err
	}

	card, err := s.payments.RetrieveToken(ctx, token)
	if err != nil {
		return models.Card{}, err
	}

	cardItem, err := models.ToItem(card)
	if err != nil {
		return models.Card{}, fmt.Errorf("service: encode card: %w", err)
	}
	if _, err := s.store.Update(ctx, store.TableApplication, store.Keys{"id": applicationID}, map[string]any{
		"card": cardItem,
	}); err != nil {
		return models.Card{}, err
	}
	return card, nil
}

// ChangePlan moves the application to another plan. An upgrade takes effect
// immediately through a subscription update; a downgrade cancels the
// subscription at the period end and records the upcoming plan, which the
// provider's subscription-deleted event later activates.
func (s *BillingService) ChangePlan(ctx context.Context, applicationID, planID string) (models.Subscription, error) {
	log.Infof("billing changePlan app %s plan %s", applicationID, planID)

	application, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return models.Subscription{}, err
	}

	if application.Card == nil || application.Card.Last4 == "" {
		return models.Subscription{}, apperr.Validation("CreditCardNotFound", "Please add a card to your account before choosing a plan.")
	}
	if application.Subscription.Plan.ID == planID {
		return models.Subscription{}, apperr.Validation("SamePlan", "The selected plan is the same as the current plan.")
	}

	currentPlan, err := s.plan(application.Subscription.Plan.ID)
	if err != nil {
		return models.Subscription{}, err
	}
	newPlan, err := s.plan(planID)
	if err != nil {
		return models.Subscription{}, err
	}

	var subscription models.Subscription
	if newPlan.Price < currentPlan.Price {
		// Downgrade: cancel at the period end; the provider emits a
		// subscription-deleted event then, and reconciliation subscribes the
		// customer to the upcoming plan.
		subscription, err = s.payments.CancelSubscription(ctx, application.Subscription.ID, true)
		if err != nil {
			return models.Subscription{}, err
		}
		subscription.Plan.UpcomingPlanID = newPlan.ID
	} else {
		subscription, err = s.payments.UpdateSubscription(ctx, application.Subscription.ID, planID)
		if err != nil {
			return models.Subscription{}, err
		}
	}

	if err := s.persistSubscription(ctx, applicationID, subscription); err != nil {
		return models.Subscription{}, err
	}
	return subscription, nil
}

// UpcomingCost quotes the prorated cost of switching to planID right now.
// The proration arithmetic itself lives with the provider.
func (s *BillingService) UpcomingCost(ctx context.Context, applicationID, planID string) (float64, error) {
	application, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return 0, err
	}
	if _, err := s.plan(planID); err != nil {
		return 0, err
	}
	return s.payments.UpcomingProrationCost(ctx, applicationID, application.Subscription.ID, planID)
}

// CancelUpcomingPlan aborts a pending downgrade by re-subscribing the
// application to its current plan.
func (s *BillingService) CancelUpcomingPlan(ctx context.Context, applicationID string) (models.Subscription, error) {
	log.Infof("billing cancelUpcomingPlan app %s", applicationID)

	application, err := s.applications.Get(ctx, applicationID)
	if err != nil {
		return models.Subscription{}, err
	}
	if application.Subscription.Plan.UpcomingPlanID == "" {
		return models.Subscription{}, apperr.Validation("NoUpcomingPlan", "There is no upcoming plan set.")
	}

	subscription, err := s.payments.UpdateSubscription(ctx, application.Subscription.ID, application.Subscription.Plan.ID)
	if err != nil {
		return models.Subscription{}, err
	}
	if err := s.persistSubscription(ctx, applicationID, subscription); err != nil {
		return models.Subscription{}, err
	}
	return subscription, nil
}

// ReconcileSubscriptionEvent processes a provider subscription-deleted
// event: when the deleted subscription is still the application's current
// one, the customer is re-subscribed to the upcoming plan, falling back to
// the default plan. Returns false when the event was already processed.
func (s *BillingService) ReconcileSubscriptionEvent(ctx context.Context, event payment.Event) (models.Subscription, bool, error) {
	log.Infof("billing reconcile event %s type %s customer %s", event.ID, event.Type, event.CustomerID)

	application, err := s.applications.Get(ctx, event.CustomerID)
	if err != nil {
		return models.Subscription{}, false, err
	}

	// A differing subscription id with a newer period means a replacement
	// subscription was already created for this deletion.
	if application.Subscription.ID != event.SubscriptionID &&
		application.Subscription.CurrentPeriodStart >= event.CurrentPeriodStart {
		return models.Subscription{}, false, nil
	}

	planID := application.Subscription.Plan.UpcomingPlanID
	if planID == "" {
		planID = s.defaultPlanID
	}

	subscription, err := s.payments.CreateSubscription(ctx, event.CustomerID, planID)
	if err != nil {
		return models.Subscription{}, false, err
	}
	if err := s.persistSubscription(ctx, event.CustomerID, subscription); err != nil {
		return models.Subscription{}, false, err
	}
	return subscription, true, nil
}

func (s *BillingService) persistSubscription(ctx context.Context, applicationID string, subscription models.Subscription) error {
	subscriptionItem, err := models.ToItem(subscription)
	if err != nil {
		return fmt.Errorf("service: encode subscription: %w", err)
	}
	_, err = s.store.Update(ctx, store.TableApplication, store.Keys{"id": applicationID}, map[string]any{
		"subscription": subscriptionItem,
	})
	return err
}

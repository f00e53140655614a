package service

import (
	"context"
	"testing"

	"github.com/keepat/api/internal/apperr"
	"github.com/keepat/api/internal/models"
	"github.com/keepat/api/internal/payment"
)

// billingFixture provisions one application on the personal plan with a card
// attached.
func billingFixture(t *testing.T) (*stubProvider, *ApplicationService, *BillingService, string) {
	t.Helper()
	_, provider, applications, _, billing, _ := newFixture()
	ctx := context.Background()

	application, err := applications.Create(ctx, CreateApplicationParams{
		UserID:    "u1",
		UserEmail: "u1@example.org",
		PlanID:    "personal",
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := billing.UpdateCreditCard(ctx, application.ID, "tok_visa"); err != nil {
		t.Fatalf("updateCreditCard: %v", err)
	}
	return provider, applications, billing, application.ID
}

func TestChangePlanRequiresCard(t *testing.T) {
	_, _, applications, _, billing, _ := newFixture()
	ctx := context.Background()

	application, err := applications.Create(ctx, CreateApplicationParams{
		UserID:    "u1",
		UserEmail: "u1@example.org",
		PlanID:    "personal",
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}

	if _, err := billing.ChangePlan(ctx, application.ID, "professional"); !apperr.IsName(err, "CreditCardNotFound") {
		t.Fatalf("expected CreditCardNotFound, got %v", err)
	}
}

func TestChangePlanSamePlan(t *testing.T) {
	_, _, billing, applicationID := billingFixture(t)

	if _, err := billing.ChangePlan(context.Background(), applicationID, "personal"); !apperr.IsName(err, "SamePlan") {
		t.Fatalf("expected SamePlan, got %v", err)
	}
}

func TestChangePlanUnknownPlan(t *testing.T) {
	_, _, billing, applicationID := billingFixture(t)

	if _, err := billing.ChangePlan(context.Background(), applicationID, "platinum"); !apperr.IsName(err, "PlanNotFound") {
		t.Fatalf("expected PlanNotFound, got %v", err)
	}
}

func TestChangePlanUpgradeAppliesImmediately(t *testing.T) {
	provider, applications, billing, applicationID := billingFixture(t)
	ctx := context.Background()

	subscription, err := billing.ChangePlan(ctx, applicationID, "professional")
	if err != nil {
		t.Fatalf("changePlan: %v", err)
	}
	if subscription.Plan.ID != "professional" {
		t.Fatalf("subscription plan = %s, want professional", subscription.Plan.ID)
	}
	if len(provider.updatedPlans) != 1 || provider.updatedPlans[0] != "professional" {
		t.Fatalf("updated plans = %v, want [professional]", provider.updatedPlans)
	}
	if len(provider.canceledAtPeriodEnd) != 0 {
		t.Fatalf("unexpected cancellations: %v", provider.canceledAtPeriodEnd)
	}

	application, err := applications.Get(ctx, applicationID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if application.Subscription.Plan.ID != "professional" {
		t.Fatalf("persisted plan = %s, want professional", application.Subscription.Plan.ID)
	}
}

func TestChangePlanDowngradeDefersToPeriodEnd(t *testing.T) {
	provider, applications, billing, applicationID := billingFixture(t)
	ctx := context.Background()

	if _, err := billing.ChangePlan(ctx, applicationID, "enterprise"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	subscription, err := billing.ChangePlan(ctx, applicationID, "professional")
	if err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	if subscription.Plan.UpcomingPlanID != "professional" {
		t.Fatalf("upcoming plan = %q, want professional", subscription.Plan.UpcomingPlanID)
	}
	if len(provider.canceledAtPeriodEnd) != 1 {
		t.Fatalf("cancellations = %v, want 1", provider.canceledAtPeriodEnd)
	}

	application, err := applications.Get(ctx, applicationID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if application.Subscription.Plan.UpcomingPlanID != "professional" {
		t.Fatalf("persisted upcoming plan = %q, want professional", application.Subscription.Plan.UpcomingPlanID)
	}
}

func TestCancelUpcomingPlan(t *testing.T) {
	_, applications, billing, applicationID := billingFixture(t)
	ctx := context.Background()

	if _, err := billing.CancelUpcomingPlan(ctx, applicationID); !apperr.IsName(err, "NoUpcomingPlan") {
		t.Fatalf("expected NoUpcomingPlan, got %v", err)
	}

	if _, err := billing.ChangePlan(ctx, applicationID, "enterprise"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if _, err := billing.ChangePlan(ctx, applicationID, "professional"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}

	subscription, err := billing.CancelUpcomingPlan(ctx, applicationID)
	if err != nil {
		t.Fatalf("cancelUpcomingPlan: %v", err)
	}
	if subscription.Plan.UpcomingPlanID != "" {
		t.Fatalf("upcoming plan = %q, want empty", subscription.Plan.UpcomingPlanID)
	}

	application, err := applications.Get(ctx, applicationID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if application.Subscription.Plan.UpcomingPlanID != "" {
		t.Fatalf("persisted upcoming plan = %q, want empty", application.Subscription.Plan.UpcomingPlanID)
	}
}

func TestUpdateCreditCardPersistsSummary(t *testing.T) {
	_, applications, _, applicationID := billingFixture(t)

	application, err := applications.Get(context.Background(), applicationID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}
	if application.Card == nil || application.Card.Last4 != "4242" || application.Card.Brand != "Visa" {
		t.Fatalf("persisted card = %+v", application.Card)
	}
}

func TestUpcomingCost(t *testing.T) {
	_, _, billing, applicationID := billingFixture(t)
	ctx := context.Background()

	cost, err := billing.UpcomingCost(ctx, applicationID, "professional")
	if err != nil {
		t.Fatalf("upcomingCost: %v", err)
	}
	if cost != 3.21 {
		t.Fatalf("cost = %v, want 3.21", cost)
	}

	if _, err := billing.UpcomingCost(ctx, applicationID, "platinum"); !apperr.IsName(err, "PlanNotFound") {
		t.Fatalf("expected PlanNotFound, got %v", err)
	}
}

func TestReconcileSubscriptionEventResubscribes(t *testing.T) {
	provider, applications, billing, applicationID := billingFixture(t)
	ctx := context.Background()

	if _, err := billing.ChangePlan(ctx, applicationID, "enterprise"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if _, err := billing.ChangePlan(ctx, applicationID, "professional"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}

	application, err := applications.Get(ctx, applicationID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}

	created := provider.subscriptionsCreated
	subscription, handled, err := billing.ReconcileSubscriptionEvent(ctx, payment.Event{
		ID:                 "evt_1",
		Type:               "customer.subscription.deleted",
		CustomerID:         applicationID,
		SubscriptionID:     application.Subscription.ID,
		CurrentPeriodStart: application.Subscription.CurrentPeriodStart,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !handled {
		t.Fatal("expected event to be handled")
	}
	if subscription.Plan.ID != "professional" {
		t.Fatalf("new plan = %s, want professional", subscription.Plan.ID)
	}
	if provider.subscriptionsCreated != created+1 {
		t.Fatalf("subscriptions created = %d, want %d", provider.subscriptionsCreated, created+1)
	}
}

func TestReconcileSubscriptionEventFallsBackToDefaultPlan(t *testing.T) {
	_, applications, billing, applicationID := billingFixture(t)
	ctx := context.Background()

	application, err := applications.Get(ctx, applicationID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}

	subscription, handled, err := billing.ReconcileSubscriptionEvent(ctx, payment.Event{
		ID:                 "evt_1",
		Type:               "customer.subscription.deleted",
		CustomerID:         applicationID,
		SubscriptionID:     application.Subscription.ID,
		CurrentPeriodStart: application.Subscription.CurrentPeriodStart,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !handled {
		t.Fatal("expected event to be handled")
	}
	if subscription.Plan.ID != "personal" {
		t.Fatalf("new plan = %s, want personal", subscription.Plan.ID)
	}
}

func TestReconcileSubscriptionEventAlreadyProcessed(t *testing.T) {
	provider, applications, billing, applicationID := billingFixture(t)
	ctx := context.Background()

	application, err := applications.Get(ctx, applicationID)
	if err != nil {
		t.Fatalf("get application: %v", err)
	}

	created := provider.subscriptionsCreated
	_, handled, err := billing.ReconcileSubscriptionEvent(ctx, payment.Event{
		ID:                 "evt_1",
		Type:               "customer.subscription.deleted",
		CustomerID:         applicationID,
		SubscriptionID:     "sub_gone",
		CurrentPeriodStart: application.Subscription.CurrentPeriodStart - 100,
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if handled {
		t.Fatal("expected event to be skipped")
	}
	if provider.subscriptionsCreated != created {
		t.Fatalf("subscriptions created = %d, want %d", provider.subscriptionsCreated, created)
	}
}

func TestPlansCatalog(t *testing.T) {
	_, _, _, _, billing, _ := newFixture()

	plans := billing.Plans()
	if len(plans) != 4 {
		t.Fatalf("plans = %d, want 4", len(plans))
	}
	want := []models.Plan{
		{ID: "personal", Name: "Personal", Price: 0},
		{ID: "professional", Name: "Professional", Price: 4.99},
		{ID: "enterprise", Name: "Enterprise", Price: 9.99},
		{ID: "extreme", Name: "Extreme", Price: 19.9},
	}
	for i := range want {
		if plans[i] != want[i] {
			t.Fatalf("plan %d = %+v, want %+v", i, plans[i], want[i])
		}
	}
}

// Package payment wraps the external payment provider. The provider is the
// system of record for customers and subscriptions; applications cache its
// views.
package payment

import (
	"context"

	"github.com/keepat/api/internal/models"
)

// Customer is a provider customer together with its initial subscription.
type Customer struct {
	ID           string
	Email        string
	Subscription models.Subscription
}

// Event is a provider webhook event, reduced to the fields the billing
// reconciliation needs.
type Event struct {
	ID                 string
	Type               string
	CustomerID         string
	SubscriptionID     string
	CurrentPeriodStart int64
}

// Provider is the payment provider client surface.
type Provider interface {
	// CreateCustomer creates a customer and subscribes it to planID.
	CreateCustomer(ctx context.Context, email, planID string) (Customer, error)
	// DeleteCustomer removes a customer. A customer that is already gone is
	// treated as success.
	DeleteCustomer(ctx context.Context, customerID string) error
	CreateSubscription(ctx context.Context, customerID, planID string) (models.Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID, planID string) (models.Subscription, error)
	// CancelSubscription cancels a subscription, optionally at the period end.
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (models.Subscription, error)
	// AttachCard replaces the customer's default payment source with the
	// card behind the given token.
	AttachCard(ctx context.Context, customerID, token string) error
	RetrieveToken(ctx context.Context, token string) (models.Card, error)
	// UpcomingProrationCost returns the prorated cost of switching the
	// subscription to planID right now, in currency units.
	UpcomingProrationCost(ctx context.Context, customerID, subscriptionID, planID string) (float64, error)
	RetrieveEvent(ctx context.Context, eventID string) (Event, error)
}

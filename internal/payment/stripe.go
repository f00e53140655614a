package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/keepat/api/internal/models"
)

// StripeProvider implements Provider on Stripe. Plan ids double as Stripe
// price ids; customer ids double as application ids.
type StripeProvider struct {
	api *client.API
}

// NewStripeProvider constructs a StripeProvider with the given secret key.
func NewStripeProvider(secretKey string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api}
}

// CreateCustomer creates the customer, then subscribes it to planID.
func (p *StripeProvider) CreateCustomer(ctx context.Context, email, planID string) (Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return Customer{}, fmt.Errorf("payment: create customer: %w", err)
	}
	log.Infof("payment customer created %s", cust.ID)

	sub, err := p.CreateSubscription(ctx, cust.ID, planID)
	if err != nil {
		return Customer{}, err
	}

	return Customer{ID: cust.ID, Email: cust.Email, Subscription: sub}, nil
}

// DeleteCustomer removes a customer, treating an already-deleted customer as
// success.
func (p *StripeProvider) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	if _, err := p.api.Customers.Del(customerID, params); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			log.Infof("payment customer %s already deleted", customerID)
			return nil
		}
		return fmt.Errorf("payment: delete customer: %w", err)
	}
	return nil
}

// CreateSubscription subscribes a customer to a plan.
func (p *StripeProvider) CreateSubscription(ctx context.Context, customerID, planID string) (models.Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(planID)},
		},
	}
	params.Context = ctx

	sub, err := p.api.Subscriptions.New(params)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("payment: create subscription: %w", err)
	}
	return subscriptionView(sub), nil
}

// UpdateSubscription moves a subscription to a new plan.
func (p *StripeProvider) UpdateSubscription(ctx context.Context, subscriptionID, planID string) (models.Subscription, error) {
	current, err := p.api.Subscriptions.Get(subscriptionID, nil)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("payment: get subscription: %w", err)
	}
	if len(current.Items.Data) == 0 {
		return models.Subscription{}, fmt.Errorf("payment: subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(planID),
			},
		},
	}
	params.Context = ctx

	sub, err := p.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("payment: update subscription: %w", err)
	}
	return subscriptionView(sub), nil
}

// CancelSubscription cancels a subscription, at the period end when asked.
func (p *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (models.Subscription, error) {
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		params.Context = ctx
		sub, err := p.api.Subscriptions.Update(subscriptionID, params)
		if err != nil {
			return models.Subscription{}, fmt.Errorf("payment: cancel subscription: %w", err)
		}
		return subscriptionView(sub), nil
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("payment: cancel subscription: %w", err)
	}
	return subscriptionView(sub), nil
}

// AttachCard sets the card behind token as the customer's default source.
func (p *StripeProvider) AttachCard(ctx context.Context, customerID, token string) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	params.Source = stripe.String(token)

	if _, err := p.api.Customers.Update(customerID, params); err != nil {
		return fmt.Errorf("payment: attach card: %w", err)
	}
	return nil
}

// RetrieveToken fetches the card summary behind a card token.
func (p *StripeProvider) RetrieveToken(ctx context.Context, token string) (models.Card, error) {
	params := &stripe.TokenParams{}
	params.Context = ctx

	tok, err := p.api.Tokens.Get(token, params)
	if err != nil {
		return models.Card{}, fmt.Errorf("payment: retrieve token: %w", err)
	}
	if tok.Card == nil {
		return models.Card{}, fmt.Errorf("payment: token %s carries no card", token)
	}
	return models.Card{
		Brand:    string(tok.Card.Brand),
		Last4:    tok.Card.Last4,
		ExpMonth: tok.Card.ExpMonth,
		ExpYear:  tok.Card.ExpYear,
	}, nil
}

// UpcomingProrationCost sums the proration lines of the upcoming invoice for
// a plan switch issued right now.
func (p *StripeProvider) UpcomingProrationCost(ctx context.Context, customerID, subscriptionID, planID string) (float64, error) {
	prorationDate := time.Now().Unix()

	current, err := p.api.Subscriptions.Get(subscriptionID, nil)
	if err != nil {
		return 0, fmt.Errorf("payment: get subscription: %w", err)
	}
	if len(current.Items.Data) == 0 {
		return 0, fmt.Errorf("payment: subscription %s has no items", subscriptionID)
	}

	params := &stripe.InvoiceUpcomingParams{
		Customer:     stripe.String(customerID),
		Subscription: stripe.String(subscriptionID),
		SubscriptionItems: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(current.Items.Data[0].ID),
				Price: stripe.String(planID),
			},
		},
		SubscriptionProrationDate: stripe.Int64(prorationDate),
	}
	params.Context = ctx

	invoice, err := p.api.Invoices.Upcoming(params)
	if err != nil {
		return 0, fmt.Errorf("payment: upcoming invoice: %w", err)
	}

	var cost int64
	for _, line := range invoice.Lines.Data {
		if line.Period != nil && line.Period.Start == prorationDate {
			cost += line.Amount
		}
	}
	return float64(cost) / 100, nil
}

// RetrieveEvent fetches a webhook event by id to confirm it is genuine.
func (p *StripeProvider) RetrieveEvent(ctx context.Context, eventID string) (Event, error) {
	params := &stripe.EventParams{}
	params.Context = ctx

	ev, err := p.api.Events.Get(eventID, params)
	if err != nil {
		return Event{}, fmt.Errorf("payment: retrieve event: %w", err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		if customer, ok := ev.Data.Object["customer"].(string); ok {
			out.CustomerID = customer
		}
		if id, ok := ev.Data.Object["id"].(string); ok {
			out.SubscriptionID = id
		}
		if start, ok := ev.Data.Object["current_period_start"].(float64); ok {
			out.CurrentPeriodStart = int64(start)
		}
	}
	return out, nil
}

func subscriptionView(sub *stripe.Subscription) models.Subscription {
	view := models.Subscription{
		ID:                 sub.ID,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		TrialStart:         sub.TrialStart,
		TrialEnd:           sub.TrialEnd,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		price := sub.Items.Data[0].Price
		if price != nil {
			view.Plan.ID = price.ID
			if price.Recurring != nil {
				view.Plan.Interval = string(price.Recurring.Interval)
			}
		}
	}
	return view
}

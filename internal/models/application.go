package models

// Application is the billable tenant entity. Its id is the payment provider's
// customer id; the provider is the system of record for billing state, this
// row caches the views the API serves.
type Application struct {
	ID           string       `json:"id" dynamodbav:"id"`
	BillingEmail string       `json:"billingEmail" dynamodbav:"billingEmail"`
	Subscription Subscription `json:"subscription" dynamodbav:"subscription"`
	Card         *Card        `json:"card,omitempty" dynamodbav:"card,omitempty"`
	CreatedAt    int64        `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt    int64        `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Subscription is the cached view of the provider subscription.
type Subscription struct {
	ID                 string           `json:"id" dynamodbav:"id"`
	CurrentPeriodStart int64            `json:"current_period_start" dynamodbav:"current_period_start"`
	CurrentPeriodEnd   int64            `json:"current_period_end" dynamodbav:"current_period_end"`
	TrialStart         int64            `json:"trial_start,omitempty" dynamodbav:"trial_start,omitempty"`
	TrialEnd           int64            `json:"trial_end,omitempty" dynamodbav:"trial_end,omitempty"`
	Plan               SubscriptionPlan `json:"plan" dynamodbav:"plan"`
}

// SubscriptionPlan identifies the plan a subscription is on. UpcomingPlanID is
// set while a downgrade waits for the period end.
type SubscriptionPlan struct {
	ID             string `json:"id" dynamodbav:"id"`
	Interval       string `json:"interval,omitempty" dynamodbav:"interval,omitempty"`
	UpcomingPlanID string `json:"upcomingPlanId,omitempty" dynamodbav:"upcomingPlanId,omitempty"`
}

// Card is the stored summary of the application's payment card.
type Card struct {
	Brand    string `json:"brand" dynamodbav:"brand"`
	Last4    string `json:"last4" dynamodbav:"last4"`
	ExpMonth int64  `json:"exp_month" dynamodbav:"exp_month"`
	ExpYear  int64  `json:"exp_year" dynamodbav:"exp_year"`
}

// Plan is one entry of the billable plan catalog.
type Plan struct {
	ID    string  `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Price float64 `json:"price" yaml:"price"`
}

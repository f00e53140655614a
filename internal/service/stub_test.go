package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keepat/api/internal/models"
	"github.com/keepat/api/internal/payment"
	"github.com/keepat/api/internal/store"
)

// stubProvider is an in-memory payment.Provider recording every call.
type stubProvider struct {
	mu sync.Mutex

	customersCreated     int
	subscriptionsCreated int
	deletedCustomers     []string
	updatedPlans         []string
	canceledAtPeriodEnd  []string

	createCustomerErr error
	tokenCard         models.Card
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		tokenCard: models.Card{Brand: "Visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030},
	}
}

func (p *stubProvider) CreateCustomer(_ context.Context, email, planID string) (payment.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createCustomerErr != nil {
		return payment.Customer{}, p.createCustomerErr
	}
	p.customersCreated++
	id := fmt.Sprintf("cus_%03d", p.customersCreated)
	sub, _ := p.newSubscription(id, planID)
	return payment.Customer{ID: id, Email: email, Subscription: sub}, nil
}

func (p *stubProvider) DeleteCustomer(_ context.Context, customerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletedCustomers = append(p.deletedCustomers, customerID)
	return nil
}

func (p *stubProvider) CreateSubscription(_ context.Context, customerID, planID string) (models.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, _ := p.newSubscription(customerID, planID)
	return sub, nil
}

func (p *stubProvider) newSubscription(customerID, planID string) (models.Subscription, error) {
	p.subscriptionsCreated++
	return models.Subscription{
		ID:                 fmt.Sprintf("sub_%s_%03d", customerID, p.subscriptionsCreated),
		CurrentPeriodStart: time.Now().Unix(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
		Plan:               models.SubscriptionPlan{ID: planID, Interval: "month"},
	}, nil
}

func (p *stubProvider) UpdateSubscription(_ context.Context, subscriptionID, planID string) (models.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updatedPlans = append(p.updatedPlans, planID)
	return models.Subscription{
		ID:                 subscriptionID,
		CurrentPeriodStart: time.Now().Unix(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
		Plan:               models.SubscriptionPlan{ID: planID, Interval: "month"},
	}, nil
}

func (p *stubProvider) CancelSubscription(_ context.Context, subscriptionID string, atPeriodEnd bool) (models.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if atPeriodEnd {
		p.canceledAtPeriodEnd = append(p.canceledAtPeriodEnd, subscriptionID)
	}
	return models.Subscription{
		ID:                 subscriptionID,
		CurrentPeriodStart: time.Now().Unix(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
		Plan:               models.SubscriptionPlan{ID: "professional", Interval: "month"},
	}, nil
}

func (p *stubProvider) AttachCard(_ context.Context, _, _ string) error {
	return nil
}

func (p *stubProvider) RetrieveToken(_ context.Context, _ string) (models.Card, error) {
	return p.tokenCard, nil
}

func (p *stubProvider) UpcomingProrationCost(_ context.Context, _, _, _ string) (float64, error) {
	return 3.21, nil
}

func (p *stubProvider) RetrieveEvent(_ context.Context, eventID string) (payment.Event, error) {
	return payment.Event{ID: eventID}, nil
}

// stubQueue records enqueued conversion jobs.
type stubQueue struct {
	mu   sync.Mutex
	jobs map[string]models.ConversionJob
	next int
}

func newStubQueue() *stubQueue {
	return &stubQueue{jobs: make(map[string]models.ConversionJob)}
}

func (q *stubQueue) Enqueue(_ context.Context, _ string, job models.ConversionJob) (models.ConversionJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.next++
	job.ID = fmt.Sprintf("job_%03d", q.next)
	job.State = models.JobStateWaiting
	q.jobs[job.ID] = job
	return job, nil
}

func (q *stubQueue) Job(_ context.Context, _ string, id string) (models.ConversionJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return models.ConversionJob{}, fmt.Errorf("job %s not found", id)
	}
	return job, nil
}

// failingStore wraps a Store and fails inserts into one table.
type failingStore struct {
	store.Store
	failTable string
	err       error
}

func (s *failingStore) Insert(ctx context.Context, table string, item map[string]any) (map[string]any, error) {
	if table == s.failTable {
		return nil, s.err
	}
	return s.Store.Insert(ctx, table, item)
}

func newFixture() (*store.MemoryStore, *stubProvider, *ApplicationService, *UserService, *BillingService, *RedirectService) {
	st := store.NewMemoryStore()
	provider := newStubProvider()
	applications := NewApplicationService(st, provider)
	users := NewUserService(st, applications, "personal")
	billing := NewBillingService(st, provider, applications, testPlans(), "personal")
	redirects := NewRedirectService(st, newStubQueue())
	return st, provider, applications, users, billing, redirects
}

func testPlans() []models.Plan {
	return []models.Plan{
		{ID: "personal", Name: "Personal", Price: 0},
		{ID: "professional", Name: "Professional", Price: 4.99},
		{ID: "enterprise", Name: "Enterprise", Price: 9.99},
		{ID: "extreme", Name: "Extreme", Price: 19.9},
	}
}

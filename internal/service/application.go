package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/keepat/api/internal/apperr"
	"github.com/keepat/api/internal/models"
	"github.com/keepat/api/internal/payment"
	"github.com/keepat/api/internal/store"
)

// ApplicationService manages the billable tenant entities. An application's
// id is the payment provider's customer id; creating an application means
// creating the customer first.
type ApplicationService struct {
	store    store.Store
	payments payment.Provider
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(st store.Store, payments payment.Provider) *ApplicationService {
	return &ApplicationService{store: st, payments: payments}
}

// CreateApplicationParams are the inputs for application creation.
type CreateApplicationParams struct {
	UserID    string
	UserEmail string
	PlanID    string
}

// Create provisions a payment customer subscribed to the given plan, inserts
// the application row under the customer id and links the creating user via
// a join row. The three steps are not transactional; a failure mid-way is
// surfaced without rolling back the earlier steps.
func (s *ApplicationService) Create(ctx context.Context, params CreateApplicationParams) (models.Application, error) {
	log.Infof("application create user %s plan %s", params.UserID, params.PlanID)

	customer, err := s.payments.CreateCustomer(ctx, params.UserEmail, params.PlanID)
	if err != nil {
		log.Warnf("application create user %s: %v", params.UserID, err)
		return models.Application{}, err
	}

	subscriptionItem, err := models.ToItem(customer.Subscription)
	if err != nil {
		return models.Application{}, fmt.Errorf("service: encode subscription: %w", err)
	}

	item, err := s.store.Insert(ctx, store.TableApplication, map[string]any{
		"id":           customer.ID,
		"billingEmail": params.UserEmail,
		"subscription": subscriptionItem,
	})
	if err != nil {
		return models.Application{}, err
	}

	if _, err := s.store.Insert(ctx, store.TableApplicationUser, map[string]any{
		"applicationId": customer.ID,
		"userId":        params.UserID,
	}); err != nil {
		return models.Application{}, err
	}

	return applicationFromItem(item)
}

// Get fetches one application row.
func (s *ApplicationService) Get(ctx context.Context, applicationID string) (models.Application, error) {
	item, err := s.store.Get(ctx, store.TableApplication, store.Keys{"id": applicationID})
	if err != nil {
		return models.Application{}, err
	}
	if item == nil {
		return models.Application{}, apperr.NotFound("ApplicationNotFound", "Application does not exist.")
	}
	return applicationFromItem(item)
}

// GetRefsByUserID lists the applications a user belongs to, as join-row
// references.
func (s *ApplicationService) GetRefsByUserID(ctx context.Context, userID string) ([]models.ApplicationRef, error) {
	items, err := s.store.Query(ctx, store.TableApplicationUser, store.Keys{"userId": userID}, store.IndexUserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NotFound("ApplicationsNotFound", "Applications do not exist.")
	}

	refs := make([]models.ApplicationRef, 0, len(items))
	for _, item := range items {
		if id, ok := item["applicationId"].(string); ok {
			refs = append(refs, models.ApplicationRef{ID: id})
		}
	}
	return refs, nil
}

// Members lists the users joined to an application.
func (s *ApplicationService) Members(ctx context.Context, applicationID string) ([]models.ApplicationUser, error) {
	items, err := s.store.Query(ctx, store.TableApplicationUser, store.Keys{"applicationId": applicationID}, "")
	if err != nil {
		return nil, err
	}
	members := make([]models.ApplicationUser, 0, len(items))
	for _, item := range items {
		var member models.ApplicationUser
		if err := models.FromItem(item, &member); err != nil {
			return nil, fmt.Errorf("service: decode application user: %w", err)
		}
		members = append(members, member)
	}
	return members, nil
}

// Delete removes the application: the payment customer (idempotently, a
// customer already gone is fine), the application row, and every join row.
func (s *ApplicationService) Delete(ctx context.Context, applicationID string) error {
	log.Infof("application delete %s", applicationID)

	if err := s.payments.DeleteCustomer(ctx, applicationID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.TableApplication, store.Keys{"id": applicationID}); err != nil {
		return err
	}

	members, err := s.Members(ctx, applicationID)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, member := range members {
		member := member
		g.Go(func() error {
			return s.store.Delete(ctx, store.TableApplicationUser, store.Keys{
				"applicationId": member.ApplicationID,
				"userId":        member.UserID,
			})
		})
	}
	return g.Wait()
}

// RemoveUser detaches a user from all their applications. When
// deleteOrphan is set, an application left without members is deleted too.
func (s *ApplicationService) RemoveUser(ctx context.Context, userID string, deleteOrphan bool) error {
	log.Infof("application removeUser %s orphan=%t", userID, deleteOrphan)

	refs, err := s.GetRefsByUserID(ctx, userID)
	if err != nil {
		if apperr.IsName(err, "ApplicationsNotFound") {
			return nil
		}
		return err
	}

	for _, ref := range refs {
		if err := s.store.Delete(ctx, store.TableApplicationUser, store.Keys{
			"applicationId": ref.ID,
			"userId":        userID,
		}); err != nil {
			return err
		}
		if !deleteOrphan {
			continue
		}
		members, err := s.Members(ctx, ref.ID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			if err := s.Delete(ctx, ref.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func applicationFromItem(item map[string]any) (models.Application, error) {
	var application models.Application
	if err := models.FromItem(item, &application); err != nil {
		return models.Application{}, fmt.Errorf("service: decode application: %w", err)
	}
	return application, nil
}

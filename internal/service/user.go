package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/keepat/api/internal/apperr"
	"github.com/keepat/api/internal/models"
	"github.com/keepat/api/internal/store"
)

// UserService manages user records and consolidates them with application
// membership into profiles. Users and applications are provisioned lazily on
// first profile access.
type UserService struct {
	store         store.Store
	applications  *ApplicationService
	defaultPlanID string
}

// NewUserService constructs a UserService. New applications created during
// profile consolidation are subscribed to defaultPlanID.
func NewUserService(st store.Store, applications *ApplicationService, defaultPlanID string) *UserService {
	return &UserService{store: st, applications: applications, defaultPlanID: defaultPlanID}
}

// Get fetches a user row.
func (s *UserService) Get(ctx context.Context, userID string) (models.User, error) {
	item, err := s.store.Get(ctx, store.TableUser, store.Keys{"id": userID})
	if err != nil {
		return models.User{}, err
	}
	if item == nil {
		return models.User{}, apperr.NotFound("UserNotFound", "User does not exist.")
	}

	var user models.User
	if err := models.FromItem(item, &user); err != nil {
		return models.User{}, fmt.Errorf("service: decode user: %w", err)
	}
	return user, nil
}

// Create inserts a user row.
func (s *UserService) Create(ctx context.Context, userID string) (models.User, error) {
	log.Infof("user create %s", userID)

	item, err := s.store.Insert(ctx, store.TableUser, map[string]any{"id": userID})
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	if err := models.FromItem(item, &user); err != nil {
		return models.User{}, fmt.Errorf("service: decode user: %w", err)
	}
	return user, nil
}

// ProfileParams identify the authenticated principal a profile is built for.
type ProfileParams struct {
	UserID    string
	UserEmail string
}

// GetProfile returns the consolidated profile for the principal.
func (s *UserService) GetProfile(ctx context.Context, params ProfileParams) (models.Profile, error) {
	log.Infof("user getProfile %s", params.UserID)
	return s.consolidateProfile(ctx, params)
}

// consolidateProfile joins two independently stored records into one view:
// the user row and the set of owned applications. Each side is fetched and,
// when absent, created on the spot (the first access pays the setup cost).
// The two branches run concurrently and meet at a fail-fast barrier; when one
// branch fails after the other already created its record, the surviving
// record is not rolled back.
//
// Nothing ties concurrent first accesses for the same user together: two such
// requests can both observe the empty state and both create an application.
func (s *UserService) consolidateProfile(ctx context.Context, params ProfileParams) (models.Profile, error) {
	var (
		user         models.User
		applications []models.ApplicationRef
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		refs, err := s.applications.GetRefsByUserID(ctx, params.UserID)
		if err == nil {
			applications = refs
			return nil
		}
		if !apperr.IsName(err, "ApplicationsNotFound") {
			return err
		}

		// First access: provision the default application.
		log.Infof("user consolidateProfile %s creating first application", params.UserID)
		application, err := s.applications.Create(ctx, CreateApplicationParams{
			UserID:    params.UserID,
			UserEmail: params.UserEmail,
			PlanID:    s.defaultPlanID,
		})
		if err != nil {
			return err
		}
		applications = []models.ApplicationRef{{ID: application.ID}}
		return nil
	})

	g.Go(func() error {
		found, err := s.Get(ctx, params.UserID)
		if err == nil {
			user = found
			return nil
		}
		if !apperr.IsName(err, "UserNotFound") {
			return err
		}

		// First access: provision the user row.
		log.Infof("user consolidateProfile %s creating user", params.UserID)
		created, err := s.Create(ctx, params.UserID)
		if err != nil {
			return err
		}
		user = created
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Warnf("user consolidateProfile %s: %v", params.UserID, err)
		return models.Profile{}, err
	}

	return models.Profile{User: user, Applications: applications}, nil
}

// IsAuthorized checks that the user is a member of the application. A
// missing join row is reported as a PermissionDenied error rather than a
// false return, so an unauthorized caller is indistinguishable from any
// other failure at the type level.
func (s *UserService) IsAuthorized(ctx context.Context, applicationID, userID string) (bool, error) {
	item, err := s.store.Get(ctx, store.TableApplicationUser, store.Keys{
		"applicationId": applicationID,
		"userId":        userID,
	})
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, apperr.PermissionDenied("User is not authorized for this application.")
	}
	return true, nil
}

// Delete removes the user row and detaches the user from their applications,
// concurrently. With deleteOrphanApplication set, applications left without
// members are deleted as well.
func (s *UserService) Delete(ctx context.Context, userID string, deleteOrphanApplication bool) error {
	log.Infof("user delete %s", userID)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.applications.RemoveUser(ctx, userID, deleteOrphanApplication)
	})
	g.Go(func() error {
		return s.store.Delete(ctx, store.TableUser, store.Keys{"id": userID})
	})
	if err := g.Wait(); err != nil {
		log.Warnf("user delete %s: %v", userID, err)
		return err
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/keepat/api/internal/apperr"
	"github.com/keepat/api/internal/store"
)

func TestCreateApplicationLinksUser(t *testing.T) {
	st, provider, applications, _, _, _ := newFixture()
	ctx := context.Background()

	application, err := applications.Create(ctx, CreateApplicationParams{
		UserID:    "u1",
		UserEmail: "u1@example.org",
		PlanID:    "personal",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if application.ID == "" {
		t.Fatal("expected the customer id as application id")
	}
	if application.Subscription.Plan.ID != "personal" {
		t.Fatalf("plan = %s, want personal", application.Subscription.Plan.ID)
	}
	if provider.customersCreated != 1 {
		t.Fatalf("customers created = %d, want 1", provider.customersCreated)
	}
	if n := st.Count(store.TableApplicationUser); n != 1 {
		t.Fatalf("join rows = %d, want 1", n)
	}

	refs, err := applications.GetRefsByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("getRefsByUserID: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != application.ID {
		t.Fatalf("refs = %+v", refs)
	}
}

func TestCreateApplicationCustomerFailure(t *testing.T) {
	st, provider, applications, _, _, _ := newFixture()
	provider.createCustomerErr = errors.New("card network down")

	_, err := applications.Create(context.Background(), CreateApplicationParams{
		UserID:    "u1",
		UserEmail: "u1@example.org",
		PlanID:    "personal",
	})
	if err == nil {
		t.Fatal("expected create to fail")
	}
	if n := st.Count(store.TableApplication); n != 0 {
		t.Fatalf("application rows = %d, want 0", n)
	}
}

func TestGetRefsByUserIDWithoutMemberships(t *testing.T) {
	_, _, applications, _, _, _ := newFixture()

	if _, err := applications.GetRefsByUserID(context.Background(), "nobody"); !apperr.IsName(err, "ApplicationsNotFound") {
		t.Fatalf("expected ApplicationsNotFound, got %v", err)
	}
}

func TestGetApplicationNotFound(t *testing.T) {
	_, _, applications, _, _, _ := newFixture()

	if _, err := applications.Get(context.Background(), "cus_missing"); !apperr.IsName(err, "ApplicationNotFound") {
		t.Fatalf("expected ApplicationNotFound, got %v", err)
	}
}

func TestDeleteApplicationRemovesJoinRows(t *testing.T) {
	st, provider, applications, _, _, _ := newFixture()
	ctx := context.Background()

	application, err := applications.Create(ctx, CreateApplicationParams{
		UserID:    "u1",
		UserEmail: "u1@example.org",
		PlanID:    "personal",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.Insert(ctx, store.TableApplicationUser, map[string]any{
		"applicationId": application.ID,
		"userId":        "u2",
	}); err != nil {
		t.Fatalf("insert join row: %v", err)
	}

	if err := applications.Delete(ctx, application.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if n := st.Count(store.TableApplication); n != 0 {
		t.Fatalf("application rows = %d, want 0", n)
	}
	if n := st.Count(store.TableApplicationUser); n != 0 {
		t.Fatalf("join rows = %d, want 0", n)
	}
	if len(provider.deletedCustomers) != 1 || provider.deletedCustomers[0] != application.ID {
		t.Fatalf("deleted customers = %v", provider.deletedCustomers)
	}
}

func TestRemoveUserWithoutMembershipsIsNoOp(t *testing.T) {
	_, _, applications, _, _, _ := newFixture()

	if err := applications.RemoveUser(context.Background(), "nobody", true); err != nil {
		t.Fatalf("removeUser: %v", err)
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"readu-app-go/internal/db"
	"readu-app-go/internal/models"
)

// memoryUserRepo is an in-memory db.UserRepository for service tests.
type memoryUserRepo struct {
	users     map[string]*models.User
	getErr    error
	createErr error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*models.User)}
}

func (r *memoryUserRepo) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrNotFound, userID)
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memoryUserRepo) UpdateSubscription(ctx context.Context, userID, plan, status, stripeCustomerID string) error {
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", db.ErrNotFound, userID)
	}
	u.Plan = plan
	u.SubscriptionStatus = status
	u.IsSubscribed = status == "active"
	if stripeCustomerID != "" {
		u.StripeCustomerID = stripeCustomerID
	}
	return nil
}

func TestGetOrCreateCreatesNewProfile(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewUserService(repo)

	user, created, err := svc.GetOrCreate(context.Background(), "uid-1", "a@b.c", "Ana", "https://p.example/a.png")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Error("expected created=true for a fresh profile")
	}
	if user.ID != "uid-1" || user.Email != "a@b.c" || user.DisplayName != "Ana" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.Plan != "free" {
		t.Errorf("new profile plan = %q, want free", user.Plan)
	}
	if user.IsSubscribed {
		t.Error("new profile should not be subscribed")
	}
}

func TestGetOrCreateReturnsExistingProfile(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users["uid-1"] = &models.User{ID: "uid-1", Email: "a@b.c", Plan: "premium", IsSubscribed: true}
	svc := NewUserService(repo)

	user, created, err := svc.GetOrCreate(context.Background(), "uid-1", "ignored@b.c", "Ignored", "")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if created {
		t.Error("expected created=false for an existing profile")
	}
	// Existing profile data wins over the token claims.
	if user.Email != "a@b.c" || user.Plan != "premium" || !user.IsSubscribed {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestGetOrCreateValidation(t *testing.T) {
	svc := NewUserService(newMemoryUserRepo())
	if _, _, err := svc.GetOrCreate(context.Background(), "", "a@b.c", "", ""); err == nil {
		t.Error("empty userID should be rejected")
	}
}

func TestGetOrCreatePropagatesRepoErrors(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.getErr = errors.New("firestore down")
	svc := NewUserService(repo)
	if _, _, err := svc.GetOrCreate(context.Background(), "uid-1", "", "", ""); err == nil {
		t.Error("repo failure should propagate")
	}

	repo2 := newMemoryUserRepo()
	repo2.createErr = errors.New("write denied")
	svc2 := NewUserService(repo2)
	if _, _, err := svc2.GetOrCreate(context.Background(), "uid-1", "", "", ""); err == nil {
		t.Error("create failure should propagate")
	}
}

func TestGetByID(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users["uid-1"] = &models.User{ID: "uid-1", Email: "a@b.c"}
	svc := NewUserService(repo)

	user, err := svc.GetByID(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Email != "a@b.c" {
		t.Errorf("unexpected user: %+v", user)
	}

	_, err = svc.GetByID(context.Background(), "uid-missing")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

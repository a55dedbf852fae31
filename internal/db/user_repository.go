package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"readu-app-go/internal/models"
)

const usersCollection = "users"

// ErrNotFound is returned when a document does not exist in Firestore.
var ErrNotFound = errors.New("document not found")

// firestoreUserRepository implements UserRepository on Firestore. The user's
// Firebase Auth UID is the document ID.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a Firestore-backed UserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s' already exists: %w", user.ID, err)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}

	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
	}
	user.ID = docSnap.Ref.ID

	return &user, nil
}

func (r *firestoreUserRepository) Update(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Set(ctx, user, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", user.ID, err)
	}
	return nil
}

func (r *firestoreUserRepository) UpdateSubscription(ctx context.Context, userID, plan, subscriptionStatus, stripeCustomerID string) error {
	if userID == "" {
		return errors.New("userID cannot be empty for UpdateSubscription operation")
	}
	updates := []firestore.Update{
		{Path: "plan", Value: plan},
		{Path: "isSubscribed", Value: subscriptionStatus == "active"},
		{Path: "subscriptionStatus", Value: subscriptionStatus},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if stripeCustomerID != "" {
		updates = append(updates, firestore.Update{Path: "stripeCustomerId", Value: stripeCustomerID})
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to update subscription for user '%s': %w", userID, err)
	}
	return nil
}

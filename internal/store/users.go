package store

import (
	"context" // Request-scoped queries

	"feedback_system/internal/domain" // Domain models

	"github.com/pkg/errors" // Error wrapping
	"gorm.io/gorm"          // GORM ORM library
)

// UserStore persists users
type UserStore struct {
	db *gorm.DB // Database connection
}

// NewUserStore creates a UserStore on top of a GORM handle
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user, rejecting a taken username or email
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		// Check username availability
		if err := tx.Model(&domain.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return errors.Wrap(err, "count users by username")
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		// Check email availability
		if err := tx.Model(&domain.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return errors.Wrap(err, "count users by email")
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Omit("Feedback").Create(user).Error // Insert the user row only
	})
	// A concurrent insert can still win the race; the unique index catches it
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return s.conflict(ctx, user)
	}
	if err != nil && !errors.Is(err, ErrUsernameTaken) && !errors.Is(err, ErrEmailTaken) {
		return errors.Wrapf(err, "create user %q", user.Username)
	}
	return err
}

// conflict reports which unique column a failed insert collided on
func (s *UserStore) conflict(ctx context.Context, user *domain.User) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", user.Email).Count(&count).Error
	if err != nil {
		return errors.Wrapf(err, "resolve conflict for user %q", user.Username)
	}
	if count > 0 {
		return ErrEmailTaken // Email collided
	}
	return ErrUsernameTaken // Otherwise the primary key did
}

// Get loads a user by primary key
func (s *UserStore) Get(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound // No such user
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %q", username)
	}
	return &user, nil
}

// Delete removes a user together with the feedback it owns
func (s *UserStore) Delete(ctx context.Context, username string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Dependent rows first so the foreign key never dangles
		if err := tx.Where("username = ?", username).Delete(&domain.Feedback{}).Error; err != nil {
			return errors.Wrapf(err, "delete feedback of %q", username)
		}
		res := tx.Where("username = ?", username).Delete(&domain.User{}) // Delete the user
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete user %q", username)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound // Rolls back the feedback delete too
		}
		return nil
	})
}

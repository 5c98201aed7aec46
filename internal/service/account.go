package service

import (
	"context" // Request-scoped operations

	"feedback_system/internal/auth"   // Password hashing
	"feedback_system/internal/domain" // Domain models
	"feedback_system/internal/forms"  // Form validation
	"feedback_system/internal/store"  // Persistence

	"github.com/pkg/errors"      // Error wrapping
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"golang.org/x/crypto/bcrypt" // For the password length error
)

// ErrInvalidCredentials is returned for any failed login, whatever the cause
var ErrInvalidCredentials = errors.New("invalid username or password")

// ValidationError carries per-field messages back to the form
type ValidationError struct {
	Fields forms.Errors // Messages keyed by form field
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// AccountService registers, authenticates and removes users
type AccountService struct {
	users    *store.UserStore     // User persistence
	feedback *store.FeedbackStore // Feedback persistence
	hasher   *auth.Hasher         // bcrypt hasher
}

// NewAccountService wires an AccountService
func NewAccountService(users *store.UserStore, feedback *store.FeedbackStore, hasher *auth.Hasher) *AccountService {
	return &AccountService{users: users, feedback: feedback, hasher: hasher}
}

// Register validates the form, hashes the password and creates the user
func (s *AccountService) Register(ctx context.Context, form forms.RegisterForm) (*domain.User, error) {
	if errs := forms.Validate(form); errs.Any() {
		return nil, &ValidationError{Fields: errs}
	}
	hash, err := s.hasher.Hash(form.Password) // Hash the password
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, &ValidationError{Fields: forms.Errors{"password": "Password cannot be longer than 72 bytes."}}
	}
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	user := &domain.User{
		Username:  form.Username,
		Password:  hash,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	}
	// Create user; uniqueness conflicts go back to the form
	switch err := s.users.Create(ctx, user); {
	case errors.Is(err, store.ErrUsernameTaken):
		return nil, &ValidationError{Fields: forms.Errors{"username": "Username is already taken."}}
	case errors.Is(err, store.ErrEmailTaken):
		return nil, &ValidationError{Fields: forms.Errors{"email": "Email is already registered."}}
	case err != nil:
		return nil, err
	}
	logrus.WithField("username", user.Username).Info("User registered") // Log registration
	return user, nil
}

// Authenticate returns the user whose credentials match, or ErrInvalidCredentials
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.Get(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		s.hasher.Burn(password) // Same cost as a real comparison
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Check(user.Password, password) {
		return nil, ErrInvalidCredentials // Same error as an unknown user
	}
	return user, nil
}

// Profile loads a user and the feedback it owns
func (s *AccountService) Profile(ctx context.Context, username string) (*domain.User, []domain.Feedback, error) {
	user, err := s.users.Get(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.feedback.ListByUser(ctx, username) // Oldest first
	if err != nil {
		return nil, nil, err
	}
	return user, list, nil
}

// Delete removes a user and all of its feedback
func (s *AccountService) Delete(ctx context.Context, username string) error {
	if err := s.users.Delete(ctx, username); err != nil {
		return err
	}
	logrus.WithField("username", username).Info("User deleted") // Log deletion
	return nil
}

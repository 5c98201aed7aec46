package service

import (
	"context" // Request-scoped operations

	"feedback_system/internal/domain" // Domain models
	"feedback_system/internal/forms"  // Form validation
	"feedback_system/internal/store"  // Persistence

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// FeedbackService manages feedback entries
type FeedbackService struct {
	feedback *store.FeedbackStore // Feedback persistence
}

// NewFeedbackService wires a FeedbackService
func NewFeedbackService(feedback *store.FeedbackStore) *FeedbackService {
	return &FeedbackService{feedback: feedback}
}

// Add creates feedback owned by username
func (s *FeedbackService) Add(ctx context.Context, username string, form forms.FeedbackForm) (*domain.Feedback, error) {
	if errs := forms.Validate(form); errs.Any() {
		return nil, &ValidationError{Fields: errs}
	}
	fb := &domain.Feedback{Title: form.Title, Content: form.Content, Username: username} // Owned by the path user
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"username": username, "feedback_id": fb.ID}).Info("Feedback added")
	return fb, nil
}

// Get loads one feedback entry
func (s *FeedbackService) Get(ctx context.Context, id uint) (*domain.Feedback, error) {
	return s.feedback.Get(ctx, id)
}

// Update overwrites title and content of fb
func (s *FeedbackService) Update(ctx context.Context, fb *domain.Feedback, form forms.FeedbackForm) error {
	if errs := forms.Validate(form); errs.Any() {
		return &ValidationError{Fields: errs}
	}
	fb.Title = form.Title     // New title
	fb.Content = form.Content // New content
	if err := s.feedback.Update(ctx, fb); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"username": fb.Username, "feedback_id": fb.ID}).Info("Feedback updated")
	return nil
}

// Delete removes one feedback entry
func (s *FeedbackService) Delete(ctx context.Context, fb *domain.Feedback) error {
	if err := s.feedback.Delete(ctx, fb.ID); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"username": fb.Username, "feedback_id": fb.ID}).Info("Feedback deleted")
	return nil
}

package store

import (
	"context" // Request-scoped queries

	"feedback_system/internal/domain" // Domain models

	"github.com/pkg/errors" // Error wrapping
	"gorm.io/gorm"          // GORM ORM library
)

// FeedbackStore persists feedback entries
type FeedbackStore struct {
	db *gorm.DB // Database connection
}

// NewFeedbackStore creates a FeedbackStore on top of a GORM handle
func NewFeedbackStore(db *gorm.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

// Create inserts a feedback entry; its owner must exist
func (s *FeedbackStore) Create(ctx context.Context, fb *domain.Feedback) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		// Check the owner exists
		if err := tx.Model(&domain.User{}).Where("username = ?", fb.Username).Count(&count).Error; err != nil {
			return errors.Wrap(err, "check feedback owner")
		}
		if count == 0 {
			return ErrNotFound
		}
		// Insert the entry
		if err := tx.Create(fb).Error; err != nil {
			return errors.Wrap(err, "create feedback")
		}
		return nil
	})
}

// Get loads a feedback entry by id
func (s *FeedbackStore) Get(ctx context.Context, id uint) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := s.db.WithContext(ctx).First(&fb, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound // No such entry
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get feedback %d", id)
	}
	return &fb, nil
}

// ListByUser returns the feedback owned by username, oldest first
func (s *FeedbackStore) ListByUser(ctx context.Context, username string) ([]domain.Feedback, error) {
	var list []domain.Feedback
	if err := s.db.WithContext(ctx).Where("username = ?", username).Order("id").Find(&list).Error; err != nil {
		return nil, errors.Wrapf(err, "list feedback of %q", username)
	}
	return list, nil
}

// Update overwrites title and content of an existing entry
func (s *FeedbackStore) Update(ctx context.Context, fb *domain.Feedback) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current domain.Feedback
		err := tx.Select("id").First(&current, fb.ID).Error // Lock in existence first
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrapf(err, "load feedback %d", fb.ID)
		}
		// MySQL reports zero affected rows for unchanged values, so existence is checked above
		err = tx.Model(&current).Updates(map[string]any{"title": fb.Title, "content": fb.Content}).Error
		return errors.Wrapf(err, "update feedback %d", fb.ID)
	})
}

// Delete removes a feedback entry by id
func (s *FeedbackStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&domain.Feedback{}, id) // Delete the entry
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete feedback %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound // Nothing was there
	}
	return nil
}

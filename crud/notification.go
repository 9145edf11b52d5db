package crud

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chirper/domain"
	"chirper/errs"
	"chirper/pagination"
)

// NotificationService manages Notifications. Dispatch is the write side,
// triggered by likes and comments; the rest serves the recipient's inbox.
// It implements the domain.NotificationService interface.
type NotificationService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewNotificationService returns an instance of NotificationService.
func NewNotificationService(db *gorm.DB, logger *zap.Logger) *NotificationService {
	return &NotificationService{db: db, logger: logger}
}

var _ domain.NotificationService = &NotificationService{}

// Dispatch stores an unread notification for the recipient. It is fire and
// forget: self-notifications are skipped and failures are logged, never
// propagated to the mutation that triggered them.
func (s *NotificationService) Dispatch(ctx context.Context, n *domain.Notification) {
	if n.RecipientID == n.ActorID {
		return
	}
	n.Unread = true
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.Int("recipient_id", n.RecipientID), zap.String("verb", n.Verb), zap.Error(err))
	}
}

// ByRecipient serves a counted page of the recipient's notifications,
// newest first.
func (s *NotificationService) ByRecipient(ctx context.Context, recipientID int, req pagination.PageRequest) (pagination.NumberedPage[domain.Notification], error) {
	q := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ?", recipientID).
		Order("created_at desc, id desc")
	return pagination.PaginatePage[domain.Notification](q, req)
}

// UnreadCount returns how many unread notifications the recipient has.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND unread = ?", recipientID, true).
		Count(&count).Error
	return count, err
}

// MarkAllRead marks every unread notification of the recipient as read and
// returns how many were updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID int) (int64, error) {
	result := s.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND unread = ?", recipientID, true).
		Update("unread", false)
	return result.RowsAffected, result.Error
}

// MarkRead sets the unread flag of one notification owned by the recipient.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id int, unread bool) (*domain.Notification, error) {
	var n domain.Notification
	err := s.db.WithContext(ctx).First(&n, "id = ? AND recipient_id = ?", id, recipientID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The notification does not exist.")
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&n).Update("unread", unread).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

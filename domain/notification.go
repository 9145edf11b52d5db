package domain

import (
	"context"
	"time"

	"chirper/pagination"
)

// Notification verbs.
const (
	NotificationVerbLiked     = "liked"
	NotificationVerbCommented = "commented"
)

// Notification is a recipient-facing unread marker produced as a side effect
// of a like or comment. Dispatch is fire-and-forget: a failed notification
// never fails the mutation that triggered it.
type Notification struct {
	ID          int    `json:"id"`
	RecipientID int    `json:"recipient_id" gorm:"notNull;index:idx_notifications_recipient_unread"`
	ActorID     int    `json:"actor_id" gorm:"notNull"`
	Verb        string `json:"verb" gorm:"notNull"`
	TargetType  string `json:"target_type" gorm:"notNull"`
	TargetID    int    `json:"target_id" gorm:"notNull"`
	Unread      bool   `json:"unread" gorm:"notNull;default:true;index:idx_notifications_recipient_unread"`

	CreatedAt time.Time `json:"created_at"`
}

// NotificationService is a set of methods to manipulate and work with the
// Notification model.
type NotificationService interface {
	ByRecipient(ctx context.Context, recipientID int, req pagination.PageRequest) (pagination.NumberedPage[Notification], error)
	UnreadCount(ctx context.Context, recipientID int) (int64, error)
	MarkAllRead(ctx context.Context, recipientID int) (int64, error)
	MarkRead(ctx context.Context, recipientID, id int, unread bool) (*Notification, error)
}

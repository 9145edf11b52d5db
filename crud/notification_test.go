package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirper/domain"
	"chirper/errs"
	"chirper/pagination"
)

func TestNotificationInbox(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	recipient := createUser(t, s, "recipient@example.com")
	actor := createUser(t, s, "actor@example.com")

	for i := 0; i < 3; i++ {
		s.Notification.Dispatch(ctx, &domain.Notification{
			RecipientID: recipient.ID,
			ActorID:     actor.ID,
			Verb:        domain.NotificationVerbLiked,
			TargetType:  domain.LikeTargetTweet,
			TargetID:    i + 1,
		})
	}

	count, err := s.Notification.UnreadCount(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	page, err := s.Notification.ByRecipient(ctx, recipient.ID, pagination.PageRequest{Page: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalResults)
	assert.Len(t, page.Results, 3)

	marked, err := s.Notification.MarkAllRead(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	count, err = s.Notification.UnreadCount(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationMarkRead(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	recipient := createUser(t, s, "recipient@example.com")
	actor := createUser(t, s, "actor@example.com")
	intruder := createUser(t, s, "intruder@example.com")

	s.Notification.Dispatch(ctx, &domain.Notification{
		RecipientID: recipient.ID,
		ActorID:     actor.ID,
		Verb:        domain.NotificationVerbCommented,
		TargetType:  domain.LikeTargetTweet,
		TargetID:    1,
	})

	var n domain.Notification
	require.NoError(t, s.db.First(&n, "recipient_id = ?", recipient.ID).Error)

	// Only the recipient can touch their notifications.
	_, err := s.Notification.MarkRead(ctx, intruder.ID, n.ID, false)
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))

	updated, err := s.Notification.MarkRead(ctx, recipient.ID, n.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Unread)

	// And back to unread.
	updated, err = s.Notification.MarkRead(ctx, recipient.ID, n.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Unread)
}

func TestDispatchSkipsSelf(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	user := createUser(t, s, "self@example.com")

	s.Notification.Dispatch(ctx, &domain.Notification{
		RecipientID: user.ID,
		ActorID:     user.ID,
		Verb:        domain.NotificationVerbLiked,
		TargetType:  domain.LikeTargetTweet,
		TargetID:    1,
	})

	count, err := s.Notification.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_Lifecycle(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	rc := w.rc(t, w.student)

	_, err := w.notifications.Notify(ctx, NotificationInput{RecipientID: w.student.ID, Message: " "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = w.notifications.Notify(ctx, NotificationInput{Message: "hi"})
	assert.ErrorIs(t, err, ErrValidation)

	first, err := w.notifications.Notify(ctx, NotificationInput{RecipientID: w.student.ID, Message: "one", Link: "/student/forms/1"})
	require.NoError(t, err)
	_, err = w.notifications.Notify(ctx, NotificationInput{RecipientID: w.student.ID, Message: "two"})
	require.NoError(t, err)
	_, err = w.notifications.Notify(ctx, NotificationInput{RecipientID: w.admin.ID, Message: "other"})
	require.NoError(t, err)

	n, err := w.notifications.UnreadCount(ctx, rc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// 不能标记他人的通知
	assert.ErrorIs(t, w.notifications.MarkRead(ctx, w.rc(t, w.admin), first.ID), ErrNotFound)
	require.NoError(t, w.notifications.MarkRead(ctx, rc, first.ID))

	page, err := w.notifications.List(ctx, rc, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(1), page.UnreadCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "two", page.Items[0].Message)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	marked, err := w.notifications.MarkAllRead(ctx, rc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
	n, err = w.notifications.UnreadCount(ctx, rc)
	require.NoError(t, err)
	assert.Zero(t, n)
}

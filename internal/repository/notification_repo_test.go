package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thanaruk598-0/CPmail/internal/model"
)

func TestNotificationRepository_ListUnreadFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	items := []*model.Notification{
		{UserID: 1, Message: "old unread", CreatedAt: base},
		{UserID: 1, Message: "new read", CreatedAt: base.Add(2 * time.Hour)},
		{UserID: 1, Message: "new unread", CreatedAt: base.Add(time.Hour)},
		{UserID: 2, Message: "someone else", CreatedAt: base},
	}
	for _, n := range items {
		if err := repo.Create(ctx, n); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if err := repo.MarkRead(ctx, items[1].ID, 1); err != nil {
		t.Fatalf("MarkRead error: %v", err)
	}

	list, total, err := repo.ListByUser(ctx, 1, 0, 20)
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Fatalf("expected 3 notifications, got total=%d len=%d", total, len(list))
	}
	want := []string{"new unread", "old unread", "new read"}
	for i, msg := range want {
		if list[i].Message != msg {
			t.Fatalf("position %d: expected %q, got %q", i, msg, list[i].Message)
		}
	}

	unread, err := repo.UnreadCount(ctx, 1)
	if err != nil {
		t.Fatalf("UnreadCount error: %v", err)
	}
	if unread != 2 {
		t.Fatalf("expected 2 unread, got %d", unread)
	}
}

func TestNotificationRepository_MarkReadOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	n := &model.Notification{UserID: 1, Message: "hello"}
	if err := repo.Create(ctx, n); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.MarkRead(ctx, n.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign notification, got %v", err)
	}
	affected, err := repo.MarkAllRead(ctx, 1)
	if err != nil {
		t.Fatalf("MarkAllRead error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 updated row, got %d", affected)
	}
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// Dispatcher produces notification records for workflow events and exposes
// the recipient-facing read/unread operations.
type Dispatcher struct {
	store  ports.Store
	logger *slog.Logger
}

// NewDispatcher wires the notification store.
func NewDispatcher(store ports.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, logger: logger}
}

// Notify appends a notification inside the caller's transaction, so the
// record becomes visible atomically with the mutation that triggered it.
func (d *Dispatcher) Notify(tx ports.UpdateTx, recipient domain.Principal, message string) error {
	n := domain.Notification{
		Recipient: recipient,
		Message:   message,
		At:        time.Now().UTC(),
	}
	if err := tx.InsertNotification(&n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListFor returns the identity's notifications, newest first, with the
// change-feed version of the read.
func (d *Dispatcher) ListFor(ctx context.Context, identity domain.Principal) ([]domain.Notification, uint64, error) {
	return d.store.ListNotifications(ctx, identity)
}

// UnreadCount returns how many of the identity's notifications are unread.
func (d *Dispatcher) UnreadCount(ctx context.Context, identity domain.Principal) (int, uint64, error) {
	return d.store.CountUnreadNotifications(ctx, identity)
}

// MarkRead flips the given notification ids to read. Ids not owned by the
// identity or already read are ignored; a call that flips nothing is a no-op
// and leaves the change feed untouched.
func (d *Dispatcher) MarkRead(ctx context.Context, identity domain.Principal, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return d.store.Update(ctx, func(tx ports.UpdateTx) error {
		flipped, err := tx.MarkNotificationsRead(identity, ids)
		if err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
		if flipped == 0 {
			return ports.ErrNoChange
		}
		return nil
	})
}

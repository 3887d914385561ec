package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 4 * time.Second

// maxNotifications caps the feed; the oldest entries are dropped first.
const maxNotifications = 50

// Notification is a short-lived user-facing message.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NotificationFeed is an in-memory ports.Notifier whose entries expire after
// a fixed TTL.
type NotificationFeed struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries []Notification
}

// NewNotificationFeed creates a feed. A non-positive ttl means DefaultNotificationTTL.
func NewNotificationFeed(ttl time.Duration) *NotificationFeed {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}

	return &NotificationFeed{ttl: ttl, now: time.Now}
}

// Notify implements ports.Notifier.
func (f *NotificationFeed) Notify(_ context.Context, message string) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneLocked(now)

	f.entries = append(f.entries, Notification{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(f.ttl),
	})

	if over := len(f.entries) - maxNotifications; over > 0 {
		f.entries = append([]Notification(nil), f.entries[over:]...)
	}
}

// Active returns unexpired notifications, newest first.
func (f *NotificationFeed) Active() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pruneLocked(f.now())

	out := make([]Notification, len(f.entries))
	for i, n := range f.entries {
		out[len(out)-1-i] = n
	}

	return out
}

func (f *NotificationFeed) pruneLocked(now time.Time) {
	keep := f.entries[:0]

	for _, n := range f.entries {
		if now.Before(n.ExpiresAt) {
			keep = append(keep, n)
		}
	}

	clear(f.entries[len(keep):])
	f.entries = keep
}

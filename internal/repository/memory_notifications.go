package repository

import (
	"context"
	"sort"
	"sync"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryNotificationsRepo keeps driver notifications in process when DB is disabled.
type MemoryNotificationsRepo struct {
	mu            sync.RWMutex
	notifications map[string]domain.Notification // id -> Notification
}

func NewMemoryNotificationsRepo() *MemoryNotificationsRepo {
	return &MemoryNotificationsRepo{notifications: map[string]domain.Notification{}}
}

var _ NotificationsRepository = (*MemoryNotificationsRepo)(nil)

func (r *MemoryNotificationsRepo) CreateNotification(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	r.notifications[n.ID] = cloneNotification(*n)
	return nil
}

func (r *MemoryNotificationsRepo) ListUnread(_ context.Context, driverEmail string) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Notification{}
	for _, n := range r.notifications {
		if n.DriverEmail != driverEmail || n.IsRead {
			continue
		}
		c := cloneNotification(n)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryNotificationsRepo) CountUnread(_ context.Context, driverEmail string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications {
		if n.DriverEmail == driverEmail && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *MemoryNotificationsRepo) MarkRead(_ context.Context, id string) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok {
		return nil, domain.NotFound("notification", id)
	}
	n.IsRead = true
	r.notifications[id] = n
	out := cloneNotification(n)
	return &out, nil
}

func cloneNotification(n domain.Notification) domain.Notification {
	c := n
	if n.Reason != nil {
		s := *n.Reason
		c.Reason = &s
	}
	return c
}

package repository

import (
	"context"
	"sort"
	"sync"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryContactsRepo keeps contact form submissions in process when DB is disabled.
type MemoryContactsRepo struct {
	mu       sync.RWMutex
	contacts map[string]domain.ContactMessage
}

func NewMemoryContactsRepo() *MemoryContactsRepo {
	return &MemoryContactsRepo{contacts: map[string]domain.ContactMessage{}}
}

var _ ContactsRepository = (*MemoryContactsRepo)(nil)

func (r *MemoryContactsRepo) CreateContact(_ context.Context, c *domain.ContactMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.contacts[c.ID] = *c
	return nil
}

func (r *MemoryContactsRepo) ListContacts(_ context.Context) ([]*domain.ContactMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ContactMessage, 0, len(r.contacts))
	for _, c := range r.contacts {
		c := c
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (r *MemoryContactsRepo) UpdateContactStatus(_ context.Context, id string, status domain.ContactStatus) (*domain.ContactMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok {
		return nil, domain.NotFound("contact", id)
	}
	c.Status = status
	r.contacts[id] = c
	return &c, nil
}

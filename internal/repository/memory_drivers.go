package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryDriversRepo keeps drivers in process when DB is disabled.
type MemoryDriversRepo struct {
	mu      sync.RWMutex
	byEmail map[string]domain.Driver // email -> Driver
	emailOf map[string]string        // id -> email
}

func NewMemoryDriversRepo() *MemoryDriversRepo {
	return &MemoryDriversRepo{
		byEmail: map[string]domain.Driver{},
		emailOf: map[string]string{},
	}
}

var _ DriversRepository = (*MemoryDriversRepo)(nil)

func (r *MemoryDriversRepo) CreateDriver(_ context.Context, d *domain.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[d.Email]; ok {
		return fmt.Errorf("create driver: %w: email %s already registered", domain.ErrConflict, d.Email)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	r.byEmail[d.Email] = cloneDriver(*d)
	r.emailOf[d.ID] = d.Email
	return nil
}

func (r *MemoryDriversRepo) GetDriverByEmail(_ context.Context, email string) (*domain.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byEmail[email]
	if !ok {
		return nil, domain.NotFound("driver", email)
	}
	out := cloneDriver(d)
	return &out, nil
}

func (r *MemoryDriversRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email, ok := r.emailOf[id]
	if !ok {
		return domain.NotFound("driver", id)
	}
	d := r.byEmail[email]
	t := at
	d.LastLogin = &t
	r.byEmail[email] = d
	return nil
}

func cloneDriver(d domain.Driver) domain.Driver {
	c := d
	c.PasswordHash = append([]byte(nil), d.PasswordHash...)
	if d.LastLogin != nil {
		t := *d.LastLogin
		c.LastLogin = &t
	}
	return c
}

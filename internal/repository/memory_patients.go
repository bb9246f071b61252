package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryPatientsRepo keeps patients in process when DB is disabled.
type MemoryPatientsRepo struct {
	mu       sync.RWMutex
	patients map[string]domain.Patient // id -> Patient
}

func NewMemoryPatientsRepo() *MemoryPatientsRepo {
	return &MemoryPatientsRepo{patients: map[string]domain.Patient{}}
}

var _ PatientsRepository = (*MemoryPatientsRepo)(nil)

func (r *MemoryPatientsRepo) CreatePatient(_ context.Context, p *domain.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := r.patients[p.ID]; ok {
		return fmt.Errorf("create patient: %w: id %s exists", domain.ErrConflict, p.ID)
	}
	r.patients[p.ID] = clonePatient(*p)
	return nil
}

func (r *MemoryPatientsRepo) GetPatient(_ context.Context, id string) (*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, domain.NotFound("patient", id)
	}
	out := clonePatient(p)
	return &out, nil
}

func (r *MemoryPatientsRepo) ListPatients(_ context.Context, filter domain.PatientFilter) ([]*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Patient{}
	for _, p := range r.patients {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, p.Status) {
			continue
		}
		c := clonePatient(p)
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

func (r *MemoryPatientsRepo) TransitionStatus(_ context.Context, id string, from []domain.PatientStatus, to domain.PatientStatus, declineReason *string, at time.Time) (*domain.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, domain.NotFound("patient", id)
	}
	if !containsStatus(from, p.Status) {
		return nil, fmt.Errorf("patient %q is %s, cannot move to %s: %w", id, p.Status, to, domain.ErrInvalidTransition)
	}

	p.Status = to
	p.DeclineReason = nil
	if declineReason != nil {
		reason := *declineReason
		p.DeclineReason = &reason
	}
	updated := at
	p.UpdatedAt = &updated
	r.patients[id] = p

	out := clonePatient(p)
	return &out, nil
}

// clonePatient copies pointer and slice fields so callers never share state with the map.
func clonePatient(p domain.Patient) domain.Patient {
	c := p
	c.Age = cloneInt(p.Age)
	c.HeartRate = cloneInt(p.HeartRate)
	c.OxygenSaturation = cloneInt(p.OxygenSaturation)
	c.MedicalNeeds = append([]string{}, p.MedicalNeeds...)
	if p.Location != nil {
		loc := *p.Location
		c.Location = &loc
	}
	if p.DeclineReason != nil {
		s := *p.DeclineReason
		c.DeclineReason = &s
	}
	if p.SubmittedBy != nil {
		snap := *p.SubmittedBy
		c.SubmittedBy = &snap
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	i := *v
	return &i
}

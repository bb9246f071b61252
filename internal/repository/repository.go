package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediroute-data/internal/domain"

	"github.com/lib/pq"
)

// PatientsRepository 病人记录存储
type PatientsRepository interface {
	CreatePatient(ctx context.Context, p *domain.Patient) error
	GetPatient(ctx context.Context, id string) (*domain.Patient, error)
	// ListPatients returns matching patients ordered by created_at, newest first.
	ListPatients(ctx context.Context, filter domain.PatientFilter) ([]*domain.Patient, error)
	// TransitionStatus moves the patient to `to` only if its current status is one of `from`.
	// declineReason replaces the stored reason (nil clears it).
	// Returns domain.ErrNotFound or domain.ErrInvalidTransition when nothing was updated.
	TransitionStatus(ctx context.Context, id string, from []domain.PatientStatus, to domain.PatientStatus, declineReason *string, at time.Time) (*domain.Patient, error)
}

// DriversRepository 司机目录存储
type DriversRepository interface {
	// CreateDriver returns domain.ErrConflict when the email is already registered.
	CreateDriver(ctx context.Context, d *domain.Driver) error
	GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// NotificationsRepository 司机通知存储
type NotificationsRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	// ListUnread returns unread notifications for driverEmail, newest first. Unbounded.
	ListUnread(ctx context.Context, driverEmail string) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, driverEmail string) (int, error)
	// MarkRead sets is_read and returns the notification; already-read is not an error.
	MarkRead(ctx context.Context, id string) (*domain.Notification, error)
}

// ContactsRepository 联系表单存储
type ContactsRepository interface {
	CreateContact(ctx context.Context, c *domain.ContactMessage) error
	// ListContacts returns all contact messages, newest first.
	ListContacts(ctx context.Context) ([]*domain.ContactMessage, error)
	UpdateContactStatus(ctx context.Context, id string, status domain.ContactStatus) (*domain.ContactMessage, error)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const pqUniqueViolation = "23505"

// translateErr maps driver errors onto domain error kinds.
func translateErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pqErr.Detail)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return domain.Storage(op, err)
}

func statusStrings(statuses []domain.PatientStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func containsStatus(statuses []domain.PatientStatus, s domain.PatientStatus) bool {
	for _, x := range statuses {
		if x == s {
			return true
		}
	}
	return false
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresNotificationsRepository 通知 Repository（PostgreSQL 实现）
type PostgresNotificationsRepository struct {
	db *sql.DB
}

func NewPostgresNotificationsRepository(db *sql.DB) *PostgresNotificationsRepository {
	return &PostgresNotificationsRepository{db: db}
}

var _ NotificationsRepository = (*PostgresNotificationsRepository)(nil)

const notificationColumns = `id::text, driver_email, patient_id, patient_name, hospital_name, status, message, reason, is_read, created_at`

func (r *PostgresNotificationsRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, driver_email, patient_id, patient_name, hospital_name, status, message, reason, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		n.ID,
		n.DriverEmail,
		n.PatientID,
		n.PatientName,
		n.HospitalName,
		string(n.Status),
		n.Message,
		nullString(n.Reason),
		n.IsRead,
		n.CreatedAt,
	)
	return translateErr("create notification", err)
}

func (r *PostgresNotificationsRepository) ListUnread(ctx context.Context, driverEmail string) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE driver_email = $1 AND is_read = false
		ORDER BY created_at DESC
	`, driverEmail)
	if err != nil {
		return nil, translateErr("list unread notifications", err)
	}
	defer rows.Close()

	out := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, translateErr("scan notification", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr("list unread notifications", err)
	}
	return out, nil
}

func (r *PostgresNotificationsRepository) CountUnread(ctx context.Context, driverEmail string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE driver_email = $1 AND is_read = false`,
		driverEmail,
	).Scan(&n)
	if err != nil {
		return 0, translateErr("count unread notifications", err)
	}
	return n, nil
}

// MarkRead is_read 只会 false -> true
func (r *PostgresNotificationsRepository) MarkRead(ctx context.Context, id string) (*domain.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFound("notification", id)
	}
	n, err := scanNotification(r.db.QueryRowContext(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1
		RETURNING `+notificationColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("notification", id)
	}
	if err != nil {
		return nil, translateErr("mark notification read", err)
	}
	return n, nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var (
		n      domain.Notification
		status string
		reason sql.NullString
	)
	if err := row.Scan(
		&n.ID,
		&n.DriverEmail,
		&n.PatientID,
		&n.PatientName,
		&n.HospitalName,
		&status,
		&n.Message,
		&reason,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	n.Status = domain.NotificationStatus(status)
	if reason.Valid {
		s := reason.String
		n.Reason = &s
	}
	return &n, nil
}

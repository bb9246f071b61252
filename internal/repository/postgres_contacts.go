package repository

import (
	"context"
	"database/sql"
	"errors"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresContactsRepository 联系表单 Repository（PostgreSQL 实现）
type PostgresContactsRepository struct {
	db *sql.DB
}

func NewPostgresContactsRepository(db *sql.DB) *PostgresContactsRepository {
	return &PostgresContactsRepository{db: db}
}

var _ ContactsRepository = (*PostgresContactsRepository)(nil)

const contactColumns = `id::text, name, email, organization, phone, subject, message, status, submitted_at`

func (r *PostgresContactsRepository) CreateContact(ctx context.Context, c *domain.ContactMessage) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, email, organization, phone, subject, message, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.Name, c.Email, c.Organization, c.Phone, c.Subject, c.Message, string(c.Status), c.SubmittedAt)
	return translateErr("create contact", err)
}

func (r *PostgresContactsRepository) ListContacts(ctx context.Context) ([]*domain.ContactMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, translateErr("list contacts", err)
	}
	defer rows.Close()

	out := []*domain.ContactMessage{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, translateErr("scan contact", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr("list contacts", err)
	}
	return out, nil
}

func (r *PostgresContactsRepository) UpdateContactStatus(ctx context.Context, id string, status domain.ContactStatus) (*domain.ContactMessage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFound("contact", id)
	}
	c, err := scanContact(r.db.QueryRowContext(ctx,
		`UPDATE contacts SET status = $2 WHERE id = $1 RETURNING `+contactColumns,
		id, string(status)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("contact", id)
	}
	if err != nil {
		return nil, translateErr("update contact status", err)
	}
	return c, nil
}

func scanContact(row rowScanner) (*domain.ContactMessage, error) {
	var (
		c      domain.ContactMessage
		status string
	)
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Organization,
		&c.Phone,
		&c.Subject,
		&c.Message,
		&status,
		&c.SubmittedAt,
	); err != nil {
		return nil, err
	}
	c.Status = domain.ContactStatus(status)
	return &c, nil
}

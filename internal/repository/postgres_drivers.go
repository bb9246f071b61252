package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresDriversRepository 司机 Repository（PostgreSQL 实现）
type PostgresDriversRepository struct {
	db *sql.DB
}

func NewPostgresDriversRepository(db *sql.DB) *PostgresDriversRepository {
	return &PostgresDriversRepository{db: db}
}

var _ DriversRepository = (*PostgresDriversRepository)(nil)

// CreateDriver 注册司机；email 唯一索引冲突返回 ErrConflict
func (r *PostgresDriversRepository) CreateDriver(ctx context.Context, d *domain.Driver) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO drivers (id, driver_name, email, password_hash, phone, licence_number, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.ID, d.DriverName, d.Email, d.PasswordHash, d.Phone, d.LicenceNumber, d.RegisteredAt)
	return translateErr("create driver", err)
}

// GetDriverByEmail 根据 email 获取司机
func (r *PostgresDriversRepository) GetDriverByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	if email == "" {
		return nil, domain.NotFound("driver", email)
	}

	var (
		d         domain.Driver
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id::text, driver_name, email, password_hash, phone, licence_number, registered_at, last_login
		FROM drivers
		WHERE email = $1
	`, email).Scan(
		&d.ID,
		&d.DriverName,
		&d.Email,
		&d.PasswordHash,
		&d.Phone,
		&d.LicenceNumber,
		&d.RegisteredAt,
		&lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("driver", email)
	}
	if err != nil {
		return nil, translateErr("get driver", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		d.LastLogin = &t
	}
	return &d, nil
}

// UpdateLastLogin 更新最后登录时间
func (r *PostgresDriversRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drivers SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return translateErr("update last login", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("driver", id)
	}
	return nil
}

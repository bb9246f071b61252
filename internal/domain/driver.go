package domain

import (
	"strings"
	"time"
)

// Driver 救护车司机（对应 drivers 表）
type Driver struct {
	ID            string     `json:"id"`
	DriverName    string     `json:"driverName"`
	Email         string     `json:"email"`
	PasswordHash  []byte     `json:"-"`
	Phone         string     `json:"phone"`
	LicenceNumber string     `json:"licenceNumber"`
	RegisteredAt  time.Time  `json:"registeredAt"`
	LastLogin     *time.Time `json:"lastLogin"`
}

// Snapshot returns the driver's display fields.
func (d *Driver) Snapshot() *DriverSnapshot {
	return &DriverSnapshot{
		DriverName:    d.DriverName,
		Email:         d.Email,
		Phone:         d.Phone,
		LicenceNumber: d.LicenceNumber,
	}
}

// NormalizeEmail is the canonical form used as the driver natural key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

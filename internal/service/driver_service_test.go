package service

import (
	"context"
	"strings"
	"testing"

	"mediroute-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverService_Register(t *testing.T) {
	env := newTestEnv(t)
	d := env.registerDriver(t, "  Sam@Example.COM ")

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "sam@example.com", d.Email)
	assert.NotEqual(t, []byte("s3cret-pass"), d.PasswordHash)
	assert.False(t, d.RegisteredAt.IsZero())
	assert.Nil(t, d.LastLogin)
}

func TestDriverService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "d@x.com")

	_, err := env.driverSvc.Register(context.Background(), RegisterDriverRequest{
		DriverName: "Other", Email: "D@X.com", Password: "another-pass", Phone: "1", LicenceNumber: "L",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDriverService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	valid := RegisterDriverRequest{
		DriverName: "Sam", Email: "d@x.com", Password: "long-enough", Phone: "1", LicenceNumber: "L",
	}

	missingPhone := valid
	missingPhone.Phone = ""
	badEmail := valid
	badEmail.Email = "not-an-email"
	shortPassword := valid
	shortPassword.Password = "short"
	longPassword := valid
	longPassword.Password = strings.Repeat("x", 73)

	for name, req := range map[string]RegisterDriverRequest{
		"missing phone":  missingPhone,
		"bad email":      badEmail,
		"short password": shortPassword,
		"long password":  longPassword,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.driverSvc.Register(ctx, req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestDriverService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerDriver(t, "d@x.com")

	d, err := env.driverSvc.Login(ctx, "D@x.com", "s3cret-pass")
	require.NoError(t, err)
	require.NotNil(t, d.LastLogin)

	current, err := env.driverSvc.Current(ctx, "d@x.com")
	require.NoError(t, err)
	require.NotNil(t, current.LastLogin)
	assert.True(t, d.LastLogin.Equal(*current.LastLogin))

	again, err := env.driverSvc.Login(ctx, "d@x.com", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, again.LastLogin.After(*d.LastLogin))
}

func TestDriverService_LoginFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerDriver(t, "d@x.com")

	_, err := env.driverSvc.Login(ctx, "d@x.com", "wrong-pass")
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = env.driverSvc.Login(ctx, "nobody@x.com", "s3cret-pass")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.driverSvc.Login(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	current, err := env.driverSvc.Current(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Nil(t, current.LastLogin, "failed login must not touch lastLogin")
}

func TestDriverService_CurrentUnknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.driverSvc.Current(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

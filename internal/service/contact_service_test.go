package service

import (
	"bytes"
	"context"
	"testing"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestContactService_SubmitAndUpdate(t *testing.T) {
	svc := NewContactService(repository.NewMemoryContactsRepo(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitContactRequest{Name: "Ann", Email: "a@x.com", Subject: "Hi"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	c, err := svc.Submit(ctx, SubmitContactRequest{
		Name: "Ann", Email: "a@x.com", Organization: "County EMS", Subject: "Demo", Message: "Please call",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContactNew, c.Status)
	assert.False(t, c.SubmittedAt.IsZero())

	updated, err := svc.UpdateStatus(ctx, c.ID, domain.ContactReplied)
	require.NoError(t, err)
	assert.Equal(t, domain.ContactReplied, updated.Status)

	_, err = svc.UpdateStatus(ctx, c.ID, domain.ContactStatus("archived"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpdateStatus(ctx, "missing", domain.ContactRead)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactService_Export(t *testing.T) {
	svc := NewContactService(repository.NewMemoryContactsRepo(), zap.NewNop())
	ctx := context.Background()
	_, err := svc.Submit(ctx, SubmitContactRequest{Name: "Ann", Email: "a@x.com", Subject: "Demo", Message: "Please call"})
	require.NoError(t, err)

	data, err := svc.Export(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Contacts")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ContactExportHeader, rows[0])
	assert.Equal(t, "Ann", rows[1][0])
	assert.Equal(t, "new", rows[1][6])
}

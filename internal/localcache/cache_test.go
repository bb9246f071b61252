package localcache

import (
	"regexp"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return c
}

func TestCache_AddPatientWithoutDriver(t *testing.T) {
	c := openTestCache(t)

	id := c.AddPatient(PatientData{PatientName: "Jane Doe"})
	assert.Regexp(t, regexp.MustCompile(`^patient_\d+_[0-9a-z]{9}$`), id)

	all := c.Patients()
	require.Len(t, all, 1)
	rec := all[0]
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, "Jane Doe", rec.PatientName)
	assert.Equal(t, unknownDriverName, rec.DriverName)
	assert.Equal(t, notAvailable, rec.DriverPhone)
	assert.Equal(t, notAvailable, rec.DriverEmail)
	assert.Equal(t, notAvailable, rec.DriverLicense)
}

func TestCache_AddPatientDenormalizesDriver(t *testing.T) {
	c := openTestCache(t)
	c.SetCurrentDriver(Driver{DriverName: "John Smith", Email: "john@x.com", Phone: "555", LicenceNumber: "DL1"})

	c.AddPatient(PatientData{PatientName: "Jane"})
	rec := c.Patients()[0]
	assert.Equal(t, "John Smith", rec.DriverName)
	assert.Equal(t, "john@x.com", rec.DriverEmail)
	assert.Equal(t, "555", rec.DriverPhone)
	assert.Equal(t, "DL1", rec.DriverLicense)

	c.ClearCurrentDriver()
	assert.Nil(t, c.CurrentDriver())
}

func TestCache_UpdateStatusAndPending(t *testing.T) {
	c := openTestCache(t)

	a := c.AddPatient(PatientData{PatientName: "a"})
	b := c.AddPatient(PatientData{PatientName: "b"})
	d := c.AddPatient(PatientData{PatientName: "d"})

	rec := c.UpdatePatientStatus(b, StatusSentToHospital, "")
	require.NotNil(t, rec)
	assert.NotNil(t, rec.UpdatedAt)
	assert.Empty(t, rec.Reason)

	rec = c.UpdatePatientStatus(d, "declined", "No beds")
	require.NotNil(t, rec)
	assert.Equal(t, "No beds", rec.Reason)

	// 空 reason 不覆盖已有 reason
	rec = c.UpdatePatientStatus(d, "declined", "")
	assert.Equal(t, "No beds", rec.Reason)

	assert.Nil(t, c.UpdatePatientStatus("patient_0_missing", "admitted", ""))

	pending := c.PendingPatients()
	require.Len(t, pending, 2)
	assert.Equal(t, a, pending[0].ID)
	assert.Equal(t, b, pending[1].ID)
}

func TestCache_ToleratesCorruptValues(t *testing.T) {
	c := openTestCache(t)
	c.AddPatient(PatientData{PatientName: "ok"})

	require.NoError(t, c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(patientPrefix+"broken"), []byte("{not json")); err != nil {
			return err
		}
		return txn.Set([]byte(driverKey), []byte("garbage"))
	}))

	all := c.Patients()
	require.Len(t, all, 1)
	assert.Equal(t, "ok", all[0].PatientName)
	assert.Nil(t, c.CurrentDriver())
	assert.Nil(t, c.UpdatePatientStatus("broken", "admitted", ""))

	// 损坏的司机记录按未知司机处理
	c.AddPatient(PatientData{PatientName: "after"})
	assert.Equal(t, unknownDriverName, c.Patients()[1].DriverName)
}

func TestCache_ClearAll(t *testing.T) {
	c := openTestCache(t)
	c.SetCurrentDriver(Driver{DriverName: "John"})
	c.AddPatient(PatientData{PatientName: "a"})

	c.ClearAll()
	assert.Empty(t, c.Patients())
	assert.NotNil(t, c.Patients())
	assert.Nil(t, c.CurrentDriver())
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	id := c.AddPatient(PatientData{PatientName: "durable"})
	require.NoError(t, c.Close())

	c, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer c.Close()
	all := c.Patients()
	require.Len(t, all, 1)
	assert.Equal(t, id, all[0].ID)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testHospital = "City General Hospital"

// recordingNotifier 记录所有推送
type recordingNotifier struct {
	mu   sync.Mutex
	got  []*domain.Notification
	fail error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.fail
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

// failingNotificationsRepo 通知写入失败
type failingNotificationsRepo struct {
	repository.NotificationsRepository
}

func (failingNotificationsRepo) CreateNotification(context.Context, *domain.Notification) error {
	return domain.Storage("create notification", errors.New("disk full"))
}

// stubForwarder 医院转发桩
type stubForwarder struct {
	err   error
	calls int
}

func (s *stubForwarder) Forward(context.Context, *domain.Patient) error {
	s.calls++
	return s.err
}

// steppingClock returns strictly increasing times so ordering assertions are deterministic.
func steppingClock() func() time.Time {
	var (
		mu sync.Mutex
		t  = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type testEnv struct {
	patients      *repository.MemoryPatientsRepo
	drivers       *repository.MemoryDriversRepo
	notifications *repository.MemoryNotificationsRepo
	notifier      *recordingNotifier
	mailbox       *MailboxService
	driverSvc     *DriverService
	patientSvc    *PatientService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	clock := steppingClock()

	env := &testEnv{
		patients:      repository.NewMemoryPatientsRepo(),
		drivers:       repository.NewMemoryDriversRepo(),
		notifications: repository.NewMemoryNotificationsRepo(),
		notifier:      &recordingNotifier{},
	}
	env.mailbox = NewMailboxService(env.notifications, nil, logger, env.notifier)
	env.mailbox.now = clock
	env.driverSvc = NewDriverService(env.drivers, logger)
	env.driverSvc.hashCost = bcrypt.MinCost
	env.driverSvc.now = clock
	env.patientSvc = NewPatientService(env.patients, env.drivers, env.mailbox, nil, testHospital, logger)
	env.patientSvc.now = clock
	return env
}

func (e *testEnv) registerDriver(t *testing.T, email string) *domain.Driver {
	t.Helper()
	d, err := e.driverSvc.Register(context.Background(), RegisterDriverRequest{
		DriverName:    "Sam Carter",
		Email:         email,
		Password:      "s3cret-pass",
		Phone:         "555-0100",
		LicenceNumber: "LIC-42",
	})
	require.NoError(t, err)
	return d
}

func (e *testEnv) submit(t *testing.T, name, driverEmail string) *domain.Patient {
	t.Helper()
	p, err := e.patientSvc.Submit(context.Background(), SubmitPatientRequest{
		PatientName: name,
		DriverEmail: driverEmail,
	}, nil)
	require.NoError(t, err)
	return p
}

func intp(v int) *int { return &v }

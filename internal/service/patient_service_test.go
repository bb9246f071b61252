package service

import (
	"context"
	"sync"
	"testing"

	"mediroute-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPatientService_DeclineNotifiesDriver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerDriver(t, "d@x.com")

	p := env.submit(t, "Jane Doe", "d@x.com")
	assert.Equal(t, domain.PatientPending, p.Status)
	require.NotNil(t, p.SubmittedBy)
	assert.Equal(t, "Sam Carter", p.SubmittedBy.DriverName)

	declined, err := env.patientSvc.Decline(ctx, p.ID, "bed unavailable")
	require.NoError(t, err)
	assert.Equal(t, domain.PatientDeclined, declined.Status)
	require.NotNil(t, declined.DeclineReason)
	assert.Equal(t, "bed unavailable", *declined.DeclineReason)
	assert.NotNil(t, declined.UpdatedAt)

	unread, err := env.mailbox.UnreadFor(ctx, "d@x.com")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	n := unread[0]
	assert.Equal(t, domain.NotificationDeclined, n.Status)
	assert.Equal(t, p.ID, n.PatientID)
	assert.Equal(t, "Jane Doe", n.PatientName)
	assert.Equal(t, testHospital, n.HospitalName)
	assert.Equal(t, domain.DeclinedMessage, n.Message)
	require.NotNil(t, n.Reason)
	assert.Equal(t, "bed unavailable", *n.Reason)
	assert.False(t, n.IsRead)
	assert.Equal(t, 1, env.notifier.count())

	pending, err := env.patientSvc.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPatientService_AcceptUsesSelectedHospital(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.patientSvc.Submit(ctx, SubmitPatientRequest{
		PatientName:      "John Roe",
		DriverEmail:      " D@X.com ",
		SelectedHospital: "St. Mary Medical Center",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "d@x.com", p.DriverEmail)
	assert.Nil(t, p.SubmittedBy, "unknown driver is not an error and leaves no snapshot")

	admitted, err := env.patientSvc.Accept(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PatientAdmitted, admitted.Status)
	assert.Nil(t, admitted.DeclineReason)

	unread, err := env.mailbox.UnreadFor(ctx, "d@x.com")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, domain.NotificationAccepted, unread[0].Status)
	assert.Equal(t, "St. Mary Medical Center", unread[0].HospitalName)
	assert.Equal(t, domain.AcceptedMessage, unread[0].Message)
	assert.Nil(t, unread[0].Reason)
}

func TestPatientService_SubmitWithDriverContext(t *testing.T) {
	env := newTestEnv(t)
	d := env.registerDriver(t, "d@x.com")

	p, err := env.patientSvc.Submit(context.Background(), SubmitPatientRequest{PatientName: "Jane"}, d)
	require.NoError(t, err)
	assert.Equal(t, "d@x.com", p.DriverEmail)
	require.NotNil(t, p.SubmittedBy)
	assert.Equal(t, "LIC-42", p.SubmittedBy.LicenceNumber)
}

func TestPatientService_SubmittingDriverOverridesBodyEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	d := env.registerDriver(t, "d@x.com")
	env.registerDriver(t, "other@x.com")

	p, err := env.patientSvc.Submit(ctx, SubmitPatientRequest{PatientName: "Jane", DriverEmail: "other@x.com"}, d)
	require.NoError(t, err)
	assert.Equal(t, "d@x.com", p.DriverEmail)
	require.NotNil(t, p.SubmittedBy)
	assert.Equal(t, "d@x.com", p.SubmittedBy.Email)

	_, err = env.patientSvc.Accept(ctx, p.ID)
	require.NoError(t, err)
	unread, err := env.mailbox.UnreadFor(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Len(t, unread, 1)
	unread, err = env.mailbox.UnreadFor(ctx, "other@x.com")
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestPatientService_NoDriverNoNotification(t *testing.T) {
	env := newTestEnv(t)
	p := env.submit(t, "Walk-in", "")

	_, err := env.patientSvc.Accept(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.notifier.count())
}

func TestPatientService_TerminalStatesReject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.submit(t, "Jane", "d@x.com")

	_, err := env.patientSvc.Accept(ctx, p.ID)
	require.NoError(t, err)

	_, err = env.patientSvc.Accept(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = env.patientSvc.Decline(ctx, p.ID, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = env.patientSvc.SendToHospital(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	count, err := env.mailbox.UnreadCount(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPatientService_MissingPatient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.patientSvc.Accept(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.patientSvc.Decline(ctx, "missing", "reason")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.patientSvc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatientService_DeclineRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.submit(t, "Jane", "d@x.com")

	_, err := env.patientSvc.Decline(ctx, p.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := env.patientSvc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PatientPending, got.Status)
	assert.Equal(t, 0, env.notifier.count())
}

func TestPatientService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]SubmitPatientRequest{
		"blank name":     {PatientName: "  "},
		"age too high":   {PatientName: "A", Age: intp(151)},
		"negative age":   {PatientName: "A", Age: intp(-1)},
		"negative pulse": {PatientName: "A", HeartRate: intp(-5)},
		"oxygen > 100":   {PatientName: "A", OxygenSaturation: intp(101)},
		"bad latitude":   {PatientName: "A", Location: &domain.Location{Latitude: 91}},
		"bad longitude":  {PatientName: "A", Location: &domain.Location{Longitude: -181}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.patientSvc.Submit(ctx, req, nil)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	p, err := env.patientSvc.Submit(ctx, SubmitPatientRequest{
		PatientName:      "Edge",
		Age:              intp(0),
		HeartRate:        intp(0),
		OxygenSaturation: intp(100),
		MedicalNeeds:     []string{"oxygen", " ", "stretcher"},
		Location:         &domain.Location{Latitude: -90, Longitude: 180},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"oxygen", "stretcher"}, p.MedicalNeeds)
}

func TestPatientService_GetPendingIncludesSentToHospital(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.submit(t, "first", "")
	second := env.submit(t, "second", "")
	third := env.submit(t, "third", "")

	_, err := env.patientSvc.SendToHospital(ctx, second.ID)
	require.NoError(t, err)
	_, err = env.patientSvc.Accept(ctx, third.ID)
	require.NoError(t, err)

	pending, err := env.patientSvc.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Equal(t, domain.PatientSentToHospital, pending[0].Status)
	assert.Equal(t, first.ID, pending[1].ID)

	// sent_to_hospital 仍可被处理
	_, err = env.patientSvc.Decline(ctx, second.ID, "Diverted")
	require.NoError(t, err)
}

func TestPatientService_SendToHospitalForwards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fwd := &stubForwarder{err: domain.ErrUpstream}
	env.patientSvc.hospital = fwd

	p := env.submit(t, "Jane", "d@x.com")
	_, err := env.patientSvc.SendToHospital(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	got, err := env.patientSvc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PatientPending, got.Status)

	fwd.err = nil
	sent, err := env.patientSvc.SendToHospital(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PatientSentToHospital, sent.Status)
	assert.Equal(t, 2, fwd.calls)
	assert.Equal(t, 0, env.notifier.count())

	_, err = env.patientSvc.SendToHospital(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 2, fwd.calls)
}

func TestPatientService_GetByIDLiveDriver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	anonymous := env.submit(t, "Anon", "ghost@x.com")
	view, err := env.patientSvc.GetByID(ctx, anonymous.ID)
	require.NoError(t, err)
	assert.Equal(t, UnknownDriverName, view.DriverName)
	assert.Equal(t, NotAvailable, view.DriverPhone)
	assert.Equal(t, NotAvailable, view.DriverLicense)

	// 司机在提交之后注册：详情是实时查询，快照仍为空
	env.registerDriver(t, "ghost@x.com")
	view, err = env.patientSvc.GetByID(ctx, anonymous.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam Carter", view.DriverName)
	assert.Equal(t, "555-0100", view.DriverPhone)
	assert.Equal(t, "LIC-42", view.DriverLicense)
	assert.Nil(t, view.SubmittedBy)
}

func TestPatientService_NotificationFailureKeepsTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailbox = NewMailboxService(failingNotificationsRepo{env.notifications}, nil, zap.NewNop(), env.notifier)
	env.patientSvc.mailbox = env.mailbox

	p := env.submit(t, "Jane", "d@x.com")
	_, err := env.patientSvc.Accept(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrStorage)

	got, err := env.patientSvc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PatientAdmitted, got.Status)
	assert.Equal(t, 0, env.notifier.count())
}

func TestPatientService_DeliveryFailureIsNotReturned(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.fail = assert.AnError

	p := env.submit(t, "Jane", "d@x.com")
	_, err := env.patientSvc.Accept(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, env.notifier.count())
}

func TestPatientService_RacingAcceptsNotifyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.submit(t, "Jane", "d@x.com")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = env.patientSvc.Accept(ctx, p.ID)
			} else {
				_, _ = env.patientSvc.Decline(ctx, p.ID, "full")
			}
		}(i)
	}
	wg.Wait()

	count, err := env.mailbox.UnreadCount(ctx, "d@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, env.notifier.count())
}

func TestPatientService_ExportPatients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.submit(t, "Jane", "")

	data, err := env.patientSvc.ExportPatients(ctx, "pending")
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = env.patientSvc.ExportPatients(ctx, "archived")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/repository"

	"go.uber.org/zap"
)

// 实时司机信息缺失时的展示默认值
const (
	UnknownDriverName = "Unknown Driver"
	NotAvailable      = "N/A"
)

// PatientService 病人生命周期（状态机 + 通知副作用）
type PatientService struct {
	patients        repository.PatientsRepository
	drivers         repository.DriversRepository
	mailbox         *MailboxService
	hospital        HospitalForwarder // nil: 不转发
	defaultHospital string
	logger          *zap.Logger
	now             func() time.Time
}

// NewPatientService 创建病人服务；hospital 可为 nil
func NewPatientService(
	patients repository.PatientsRepository,
	drivers repository.DriversRepository,
	mailbox *MailboxService,
	hospital HospitalForwarder,
	defaultHospital string,
	logger *zap.Logger,
) *PatientService {
	return &PatientService{
		patients:        patients,
		drivers:         drivers,
		mailbox:         mailbox,
		hospital:        hospital,
		defaultHospital: defaultHospital,
		logger:          logger,
		now:             time.Now,
	}
}

// SubmitPatientRequest 救护车提交的病人数据
type SubmitPatientRequest struct {
	PatientName      string           `json:"patientName" validate:"required"`
	Age              *int             `json:"age" validate:"omitempty,gte=0,lte=150"`
	Gender           string           `json:"gender"`
	MedicalCondition string           `json:"medicalCondition"`
	BloodPressure    string           `json:"bloodPressure"`
	HeartRate        *int             `json:"heartRate" validate:"omitempty,gte=0"`
	OxygenSaturation *int             `json:"oxygenSaturation" validate:"omitempty,gte=0,lte=100"`
	Allergies        string           `json:"allergies"`
	MedicalNeeds     []string         `json:"medicalNeeds"`
	AdditionalNotes  string           `json:"additionalNotes"`
	SelectedHospital string           `json:"selectedHospital"`
	DriverEmail      string           `json:"driverEmail"`
	Location         *domain.Location `json:"location"`
}

// PatientView 病人详情 + 实时司机信息（非快照）
type PatientView struct {
	*domain.Patient
	DriverName    string `json:"driverName"`
	DriverPhone   string `json:"driverPhone"`
	DriverLicense string `json:"driverLicense"`
}

// Submit 新建病人记录，状态 pending。
// driver 为提交司机（可为 nil），非 nil 时忽略 DriverEmail；为 nil 时按 DriverEmail 查询司机目录，查不到不算错误。
func (s *PatientService) Submit(ctx context.Context, req SubmitPatientRequest, driver *domain.Driver) (*domain.Patient, error) {
	req.PatientName = strings.TrimSpace(req.PatientName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// 已知提交司机时以其 email 为准，通知对象与快照必须是同一人
	email := domain.NormalizeEmail(req.DriverEmail)
	if driver != nil {
		email = domain.NormalizeEmail(driver.Email)
	} else if email != "" {
		driver = s.lookupDriver(ctx, email)
	}

	needs := make([]string, 0, len(req.MedicalNeeds))
	for _, n := range req.MedicalNeeds {
		if n = strings.TrimSpace(n); n != "" {
			needs = append(needs, n)
		}
	}

	p := &domain.Patient{
		PatientName:      req.PatientName,
		Age:              req.Age,
		Gender:           req.Gender,
		MedicalCondition: req.MedicalCondition,
		BloodPressure:    req.BloodPressure,
		HeartRate:        req.HeartRate,
		OxygenSaturation: req.OxygenSaturation,
		Allergies:        req.Allergies,
		MedicalNeeds:     needs,
		AdditionalNotes:  req.AdditionalNotes,
		SelectedHospital: strings.TrimSpace(req.SelectedHospital),
		DriverEmail:      email,
		Location:         req.Location,
		Status:           domain.PatientPending,
		CreatedAt:        s.now(),
	}
	if driver != nil {
		p.SubmittedBy = driver.Snapshot()
	}

	if err := s.patients.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Patient submitted",
		zap.String("patient_id", p.ID),
		zap.String("driver_email", p.DriverEmail),
		zap.Bool("driver_known", p.SubmittedBy != nil),
	)
	return p, nil
}

// SendToHospital pending -> sent_to_hospital；配置了接收端时先转发，转发失败状态不变。不产生通知。
func (s *PatientService) SendToHospital(ctx context.Context, patientID string) (*domain.Patient, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(p.Status, domain.PatientSentToHospital) {
		return nil, fmt.Errorf("patient %q is %s, cannot move to %s: %w",
			patientID, p.Status, domain.PatientSentToHospital, domain.ErrInvalidTransition)
	}
	if s.hospital != nil {
		if err := s.hospital.Forward(ctx, p); err != nil {
			return nil, err
		}
	}
	return s.transition(ctx, patientID, domain.PatientSentToHospital, nil)
}

// Accept pending|sent_to_hospital -> admitted，并通知提交司机
func (s *PatientService) Accept(ctx context.Context, patientID string) (*domain.Patient, error) {
	p, err := s.transition(ctx, patientID, domain.PatientAdmitted, nil)
	if err != nil {
		return nil, err
	}
	if err := s.notify(ctx, p, domain.NotificationAccepted, domain.AcceptedMessage, nil); err != nil {
		return nil, err
	}
	return p, nil
}

// Decline pending|sent_to_hospital -> declined，reason 必填
func (s *PatientService) Decline(ctx context.Context, patientID, reason string) (*domain.Patient, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.Validation("reason is required")
	}
	p, err := s.transition(ctx, patientID, domain.PatientDeclined, &reason)
	if err != nil {
		return nil, err
	}
	if err := s.notify(ctx, p, domain.NotificationDeclined, domain.DeclinedMessage, &reason); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPending 待处理病人（pending + sent_to_hospital），按创建时间倒序
func (s *PatientService) GetPending(ctx context.Context) ([]*domain.Patient, error) {
	return s.patients.ListPatients(ctx, domain.PatientFilter{Statuses: domain.AwaitingStatuses})
}

// GetByID 病人详情，附带实时查询的司机信息
func (s *PatientService) GetByID(ctx context.Context, patientID string) (*PatientView, error) {
	p, err := s.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	view := &PatientView{
		Patient:       p,
		DriverName:    UnknownDriverName,
		DriverPhone:   NotAvailable,
		DriverLicense: NotAvailable,
	}
	if p.HasDriver() {
		if d := s.lookupDriver(ctx, p.DriverEmail); d != nil {
			view.DriverName = orDefault(d.DriverName, UnknownDriverName)
			view.DriverPhone = orDefault(d.Phone, NotAvailable)
			view.DriverLicense = orDefault(d.LicenceNumber, NotAvailable)
		}
	}
	return view, nil
}

// ListPatients 按状态过滤（空 = 全部），供导出使用
func (s *PatientService) ListPatients(ctx context.Context, status string) ([]*domain.Patient, error) {
	var filter domain.PatientFilter
	if status = strings.TrimSpace(status); status != "" {
		st := domain.PatientStatus(status)
		if !st.Valid() {
			return nil, domain.Validation(fmt.Sprintf("unknown status %q", status))
		}
		filter.Statuses = []domain.PatientStatus{st}
	}
	return s.patients.ListPatients(ctx, filter)
}

// ExportPatients 导出 Excel
func (s *PatientService) ExportPatients(ctx context.Context, status string) ([]byte, error) {
	patients, err := s.ListPatients(ctx, status)
	if err != nil {
		return nil, err
	}
	return GeneratePatientExport(patients)
}

func (s *PatientService) transition(ctx context.Context, patientID string, to domain.PatientStatus, reason *string) (*domain.Patient, error) {
	p, err := s.patients.TransitionStatus(ctx, patientID, domain.TransitionSources(to), to, reason, s.now())
	if err != nil {
		return nil, err
	}
	patientTransitions.WithLabelValues(string(to)).Inc()
	s.logger.Info("Patient status changed",
		zap.String("patient_id", p.ID),
		zap.String("status", string(to)),
	)
	return p, nil
}

// notify 只在有司机 email 时产生通知；写入失败时病人状态已变更，记录日志待人工对账
func (s *PatientService) notify(ctx context.Context, p *domain.Patient, status domain.NotificationStatus, message string, reason *string) error {
	if !p.HasDriver() {
		return nil
	}
	n := &domain.Notification{
		DriverEmail:  p.DriverEmail,
		PatientID:    p.ID,
		PatientName:  p.PatientName,
		HospitalName: orDefault(p.SelectedHospital, s.defaultHospital),
		Status:       status,
		Message:      message,
		Reason:       reason,
		CreatedAt:    s.now(),
	}
	if err := s.mailbox.Enqueue(ctx, n); err != nil {
		s.logger.Error("Patient transitioned but notification was not stored",
			zap.String("patient_id", p.ID),
			zap.String("status", string(p.Status)),
			zap.String("driver_email", p.DriverEmail),
			zap.Error(err),
		)
		return fmt.Errorf("patient %s is %s but the driver notification failed: %w", p.ID, p.Status, err)
	}
	return nil
}

// lookupDriver 查不到或查询失败都返回 nil（只用于展示/快照）
func (s *PatientService) lookupDriver(ctx context.Context, email string) *domain.Driver {
	d, err := s.drivers.GetDriverByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Driver lookup failed", zap.String("email", email), zap.Error(err))
		}
		return nil
	}
	return d
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediroute-data/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresPatientsRepository 病人记录 Repository（PostgreSQL 实现）
type PostgresPatientsRepository struct {
	db *sql.DB
}

// NewPostgresPatientsRepository 创建病人 Repository
func NewPostgresPatientsRepository(db *sql.DB) *PostgresPatientsRepository {
	return &PostgresPatientsRepository{db: db}
}

// 确保实现了接口
var _ PatientsRepository = (*PostgresPatientsRepository)(nil)

const patientColumns = `
	id::text,
	patient_name,
	age,
	gender,
	medical_condition,
	blood_pressure,
	heart_rate,
	oxygen_saturation,
	allergies,
	medical_needs,
	additional_notes,
	selected_hospital,
	driver_email,
	latitude,
	longitude,
	status,
	decline_reason,
	submitted_by::text,
	created_at,
	updated_at`

// CreatePatient 新增病人记录
func (r *PostgresPatientsRepository) CreatePatient(ctx context.Context, p *domain.Patient) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	var lat, lng sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: p.Location.Longitude, Valid: true}
	}
	var submittedBy sql.NullString
	if p.SubmittedBy != nil {
		b, err := json.Marshal(p.SubmittedBy)
		if err != nil {
			return fmt.Errorf("failed to encode submitted_by: %w", err)
		}
		submittedBy = sql.NullString{String: string(b), Valid: true}
	}
	needs := p.MedicalNeeds
	if needs == nil {
		needs = []string{}
	}

	query := `
		INSERT INTO patients (
			id, patient_name, age, gender, medical_condition, blood_pressure,
			heart_rate, oxygen_saturation, allergies, medical_needs, additional_notes,
			selected_hospital, driver_email, latitude, longitude, status,
			decline_reason, submitted_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16,
			$17, $18::jsonb, $19
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.PatientName,
		nullInt(p.Age),
		p.Gender,
		p.MedicalCondition,
		p.BloodPressure,
		nullInt(p.HeartRate),
		nullInt(p.OxygenSaturation),
		p.Allergies,
		pq.Array(needs),
		p.AdditionalNotes,
		p.SelectedHospital,
		p.DriverEmail,
		lat,
		lng,
		string(p.Status),
		nullString(p.DeclineReason),
		submittedBy,
		p.CreatedAt,
	)
	return translateErr("create patient", err)
}

// GetPatient 根据 ID 获取病人
func (r *PostgresPatientsRepository) GetPatient(ctx context.Context, id string) (*domain.Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFound("patient", id)
	}

	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("patient", id)
	}
	if err != nil {
		return nil, translateErr("get patient", err)
	}
	return p, nil
}

// ListPatients 查询病人列表（按创建时间倒序）
func (r *PostgresPatientsRepository) ListPatients(ctx context.Context, filter domain.PatientFilter) ([]*domain.Patient, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + patientColumns + ` FROM patients`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateErr("list patients", err)
	}
	defer rows.Close()

	out := []*domain.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, translateErr("scan patient", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr("list patients", err)
	}
	return out, nil
}

// TransitionStatus 条件更新状态（仅当当前状态属于 from）
func (r *PostgresPatientsRepository) TransitionStatus(ctx context.Context, id string, from []domain.PatientStatus, to domain.PatientStatus, declineReason *string, at time.Time) (*domain.Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.NotFound("patient", id)
	}

	query := `
		UPDATE patients
		SET status = $2, decline_reason = $3, updated_at = $4
		WHERE id = $1 AND status = ANY($5)
		RETURNING ` + patientColumns

	p, err := scanPatient(r.db.QueryRowContext(ctx, query,
		id,
		string(to),
		nullString(declineReason),
		at,
		pq.Array(statusStrings(from)),
	))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, translateErr("transition patient", err)
	}

	// 未更新：区分不存在与状态不允许
	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM patients WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("patient", id)
	}
	if err != nil {
		return nil, translateErr("get patient status", err)
	}
	return nil, fmt.Errorf("patient %q is %s, cannot move to %s: %w", id, current, to, domain.ErrInvalidTransition)
}

func scanPatient(row rowScanner) (*domain.Patient, error) {
	var (
		p                          domain.Patient
		age, heartRate, oxygen     sql.NullInt64
		needs                      pq.StringArray
		lat, lng                   sql.NullFloat64
		status                     string
		declineReason, submittedBy sql.NullString
		updatedAt                  sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.PatientName,
		&age,
		&p.Gender,
		&p.MedicalCondition,
		&p.BloodPressure,
		&heartRate,
		&oxygen,
		&p.Allergies,
		&needs,
		&p.AdditionalNotes,
		&p.SelectedHospital,
		&p.DriverEmail,
		&lat,
		&lng,
		&status,
		&declineReason,
		&submittedBy,
		&p.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PatientStatus(status)
	p.Age = intPtr(age)
	p.HeartRate = intPtr(heartRate)
	p.OxygenSaturation = intPtr(oxygen)
	p.MedicalNeeds = []string(needs)
	if p.MedicalNeeds == nil {
		p.MedicalNeeds = []string{}
	}
	if lat.Valid && lng.Valid {
		p.Location = &domain.Location{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if declineReason.Valid {
		reason := declineReason.String
		p.DeclineReason = &reason
	}
	if submittedBy.Valid && submittedBy.String != "" {
		var snap domain.DriverSnapshot
		if err := json.Unmarshal([]byte(submittedBy.String), &snap); err == nil {
			p.SubmittedBy = &snap
		}
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		p.UpdatedAt = &t
	}
	return &p, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"mediroute-data/internal/domain"

	"github.com/xuri/excelize/v2"
)

// PatientExportHeader 病人导出表头
var PatientExportHeader = []string{
	"Patient ID",
	"Patient Name",
	"Age",
	"Gender",
	"Medical Condition",
	"Blood Pressure",
	"Heart Rate",
	"Oxygen Saturation",
	"Allergies",
	"Medical Needs",
	"Selected Hospital",
	"Driver Email",
	"Status",
	"Decline Reason",
	"Created At",
	"Updated At",
}

// ContactExportHeader 联系表单导出表头
var ContactExportHeader = []string{
	"Name",
	"Email",
	"Organization",
	"Phone",
	"Subject",
	"Message",
	"Status",
	"Submitted At",
}

const exportTimeLayout = "2006-01-02 15:04:05"

// GeneratePatientExport 生成病人 Excel；无数据时只有表头
func GeneratePatientExport(patients []*domain.Patient) ([]byte, error) {
	rows := make([][]any, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, []any{
			p.ID,
			p.PatientName,
			intCell(p.Age),
			p.Gender,
			p.MedicalCondition,
			p.BloodPressure,
			intCell(p.HeartRate),
			intCell(p.OxygenSaturation),
			p.Allergies,
			strings.Join(p.MedicalNeeds, ", "),
			p.SelectedHospital,
			p.DriverEmail,
			string(p.Status),
			stringCell(p.DeclineReason),
			p.CreatedAt.Format(exportTimeLayout),
			timeCell(p.UpdatedAt),
		})
	}
	return writeSheet("Patients", PatientExportHeader, []float64{38, 22, 8, 10, 28, 14, 12, 18, 20, 30, 24, 26, 18, 30, 20, 20}, rows)
}

// GenerateContactExport 生成联系表单 Excel
func GenerateContactExport(contacts []*domain.ContactMessage) ([]byte, error) {
	rows := make([][]any, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []any{
			c.Name,
			c.Email,
			c.Organization,
			c.Phone,
			c.Subject,
			c.Message,
			string(c.Status),
			c.SubmittedAt.Format(exportTimeLayout),
		})
	}
	return writeSheet("Contacts", ContactExportHeader, []float64{20, 28, 24, 16, 30, 60, 10, 20}, rows)
}

// writeSheet 单工作表 Excel：加粗表头 + 列宽 + 数据行
func writeSheet(sheetName string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// 直接重命名默认 Sheet1，避免删除后 sheet 索引错位
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		if col < len(widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return nil, fmt.Errorf("failed to convert column number: %w", err)
			}
			if err := f.SetColWidth(sheetName, name, name, widths[col]); err != nil {
				return nil, fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		values := row
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func intCell(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func stringCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timeCell(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(exportTimeLayout)
}

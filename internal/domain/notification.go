package domain

import "time"

// NotificationStatus disposition carried by a notification.
type NotificationStatus string

const (
	NotificationAccepted NotificationStatus = "accepted"
	NotificationDeclined NotificationStatus = "declined"
)

const (
	AcceptedMessage = "Patient admission accepted. Proceed to hospital."
	DeclinedMessage = "Patient admission declined."
)

// Notification 司机通知（对应 notifications 表）
// PatientName and HospitalName are copied at transition time and never re-read.
type Notification struct {
	ID           string             `json:"id"`
	DriverEmail  string             `json:"driverEmail"`
	PatientID    string             `json:"patientId"`
	PatientName  string             `json:"patientName"`
	HospitalName string             `json:"hospitalName"`
	Status       NotificationStatus `json:"status"`
	Message      string             `json:"message"`
	Reason       *string            `json:"reason,omitempty"`
	IsRead       bool               `json:"isRead"`
	CreatedAt    time.Time          `json:"createdAt"`
}

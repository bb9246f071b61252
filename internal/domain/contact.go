package domain

import "time"

// ContactStatus 联系表单处理状态
type ContactStatus string

const (
	ContactNew     ContactStatus = "new"
	ContactRead    ContactStatus = "read"
	ContactReplied ContactStatus = "replied"
)

func (s ContactStatus) Valid() bool {
	return s == ContactNew || s == ContactRead || s == ContactReplied
}

// ContactMessage 联系表单（对应 contacts 表）
type ContactMessage struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Organization string        `json:"organization"`
	Phone        string        `json:"phone"`
	Subject      string        `json:"subject"`
	Message      string        `json:"message"`
	Status       ContactStatus `json:"status"`
	SubmittedAt  time.Time     `json:"submittedAt"`
}

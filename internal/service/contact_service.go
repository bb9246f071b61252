package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/repository"

	"go.uber.org/zap"
)

// ContactService 官网联系表单
type ContactService struct {
	repo   repository.ContactsRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewContactService(repo repository.ContactsRepository, logger *zap.Logger) *ContactService {
	return &ContactService{repo: repo, logger: logger, now: time.Now}
}

// SubmitContactRequest 联系表单
type SubmitContactRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
	Subject      string `json:"subject" validate:"required"`
	Message      string `json:"message" validate:"required"`
}

func (s *ContactService) Submit(ctx context.Context, req SubmitContactRequest) (*domain.ContactMessage, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	c := &domain.ContactMessage{
		Name:         req.Name,
		Email:        req.Email,
		Organization: strings.TrimSpace(req.Organization),
		Phone:        strings.TrimSpace(req.Phone),
		Subject:      req.Subject,
		Message:      req.Message,
		Status:       domain.ContactNew,
		SubmittedAt:  s.now(),
	}
	if err := s.repo.CreateContact(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Contact form submitted",
		zap.String("contact_id", c.ID),
		zap.String("subject", c.Subject),
	)
	return c, nil
}

func (s *ContactService) List(ctx context.Context) ([]*domain.ContactMessage, error) {
	return s.repo.ListContacts(ctx)
}

func (s *ContactService) UpdateStatus(ctx context.Context, id string, status domain.ContactStatus) (*domain.ContactMessage, error) {
	if !status.Valid() {
		return nil, domain.Validation(fmt.Sprintf("status must be one of [new read replied], got %q", status))
	}
	return s.repo.UpdateContactStatus(ctx, id, status)
}

func (s *ContactService) Export(ctx context.Context) ([]byte, error) {
	contacts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return GenerateContactExport(contacts)
}

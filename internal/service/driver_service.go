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
	"golang.org/x/crypto/bcrypt"
)

// bcrypt 只使用前 72 字节
const maxPasswordBytes = 72

// DriverService 司机目录服务
type DriverService struct {
	repo     repository.DriversRepository
	logger   *zap.Logger
	now      func() time.Time
	hashCost int
}

// NewDriverService 创建司机服务
func NewDriverService(repo repository.DriversRepository, logger *zap.Logger) *DriverService {
	return &DriverService{
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}
}

// RegisterDriverRequest 司机注册请求
type RegisterDriverRequest struct {
	DriverName    string `json:"driverName" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Phone         string `json:"phone" validate:"required"`
	LicenceNumber string `json:"licenceNumber" validate:"required"`
}

// Register 注册司机（email 唯一，密码 bcrypt 存储）
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	req.DriverName = strings.TrimSpace(req.DriverName)
	req.Email = domain.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.LicenceNumber = strings.TrimSpace(req.LicenceNumber)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, domain.Validation(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	d := &domain.Driver{
		DriverName:    req.DriverName,
		Email:         req.Email,
		PasswordHash:  hash,
		Phone:         req.Phone,
		LicenceNumber: req.LicenceNumber,
		RegisteredAt:  s.now(),
	}
	if err := s.repo.CreateDriver(ctx, d); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("driver with email %s already exists: %w", req.Email, domain.ErrConflict)
		}
		return nil, err
	}

	s.logger.Info("Driver registered",
		zap.String("driver_id", d.ID),
		zap.String("email", d.Email),
	)
	return d, nil
}

// Login 校验密码并更新 lastLogin
func (s *DriverService) Login(ctx context.Context, email, password string) (*domain.Driver, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Validation("email and password are required")
	}

	d, err := s.repo.GetDriverByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			driverLogins.WithLabelValues("unknown").Inc()
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(d.PasswordHash, []byte(password)); err != nil {
		driverLogins.WithLabelValues("rejected").Inc()
		s.logger.Info("Driver login rejected", zap.String("email", email))
		return nil, fmt.Errorf("incorrect password: %w", domain.ErrAuth)
	}

	at := s.now()
	if err := s.repo.UpdateLastLogin(ctx, d.ID, at); err != nil {
		return nil, err
	}
	d.LastLogin = &at
	driverLogins.WithLabelValues("ok").Inc()
	return d, nil
}

// Current 按 email 查询司机
func (s *DriverService) Current(ctx context.Context, email string) (*domain.Driver, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.Validation("email is required")
	}
	return s.repo.GetDriverByEmail(ctx, email)
}

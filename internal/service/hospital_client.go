package service

import (
	"context"
	"fmt"
	"time"

	"mediroute-data/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HospitalForwarder hands a patient record to the receiving hospital's intake system.
type HospitalForwarder interface {
	Forward(ctx context.Context, p *domain.Patient) error
}

// HospitalIntake 医院接收端返回体
type HospitalIntake struct {
	Accepted  *bool  `json:"accepted"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// IdempotencyKeyHeader 每次转发（含重试）都携带病人 id，接收端据此去重
const IdempotencyKeyHeader = "Idempotency-Key"

// HospitalClient 医院接收系统 HTTP 客户端
type HospitalClient struct {
	httpClient *resty.Client
	intakeURL  string
	logger     *zap.Logger
}

// NewHospitalClient 创建医院接收系统客户端
func NewHospitalClient(intakeURL string, timeout time.Duration, logger *zap.Logger) *HospitalClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HospitalClient{
		httpClient: client,
		intakeURL:  intakeURL,
		logger:     logger,
	}
}

var _ HospitalForwarder = (*HospitalClient)(nil)

// Forward POST 病人记录到医院接收端
func (c *HospitalClient) Forward(ctx context.Context, p *domain.Patient) error {
	var intake HospitalIntake
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(IdempotencyKeyHeader, p.ID).
		SetBody(p).
		SetResult(&intake).
		Post(c.intakeURL)
	if err != nil {
		c.logger.Error("Hospital intake call failed",
			zap.String("patient_id", p.ID),
			zap.Error(err),
		)
		return fmt.Errorf("hospital intake: %w: %v", domain.ErrUpstream, err)
	}
	if resp.IsError() {
		c.logger.Error("Hospital intake returned error",
			zap.String("patient_id", p.ID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("hospital intake: %w: status %d", domain.ErrUpstream, resp.StatusCode())
	}
	if intake.Accepted != nil && !*intake.Accepted {
		return fmt.Errorf("hospital intake refused patient: %w: %s", domain.ErrUpstream, intake.Message)
	}

	c.logger.Info("Patient forwarded to hospital",
		zap.String("patient_id", p.ID),
		zap.String("reference", intake.Reference),
	)
	return nil
}

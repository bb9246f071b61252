package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/repository"
	"mediroute-data/internal/store"

	"go.uber.org/zap"
)

const (
	unreadCountTTL     = 5 * time.Minute
	unreadCountPattern = "mediroute:mailbox:*:unread"
)

func unreadCountKey(email string) string {
	return "mediroute:mailbox:" + email + ":unread"
}

// MailboxService 司机通知信箱
type MailboxService struct {
	repo      repository.NotificationsRepository
	kv        store.KV // nil: 不缓存未读数
	notifiers []Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewMailboxService 创建通知信箱；kv 可为 nil
func NewMailboxService(repo repository.NotificationsRepository, kv store.KV, logger *zap.Logger, notifiers ...Notifier) *MailboxService {
	return &MailboxService{
		repo:      repo,
		kv:        kv,
		notifiers: notifiers,
		logger:    logger,
		now:       time.Now,
	}
}

// AddNotifier registers a delivery channel after construction (the WebSocket hub is built by the HTTP layer).
func (s *MailboxService) AddNotifier(n Notifier) {
	s.notifiers = append(s.notifiers, n)
}

// Enqueue stores the notification as unread and pushes it to every delivery channel.
func (s *MailboxService) Enqueue(ctx context.Context, n *domain.Notification) error {
	n.DriverEmail = domain.NormalizeEmail(n.DriverEmail)
	n.IsRead = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return err
	}
	notificationsCreated.WithLabelValues(string(n.Status)).Inc()

	s.invalidateUnread(ctx, n.DriverEmail)
	s.fanOut(ctx, n)
	return nil
}

func (s *MailboxService) fanOut(ctx context.Context, n *domain.Notification) {
	for _, nt := range s.notifiers {
		if err := nt.Notify(ctx, n); err != nil {
			deliveryFailures.WithLabelValues(nt.Name()).Inc()
			s.logger.Warn("Notification delivery failed",
				zap.String("channel", nt.Name()),
				zap.String("notification_id", n.ID),
				zap.String("driver_email", n.DriverEmail),
				zap.Error(err),
			)
		}
	}
}

// UnreadFor 获取司机未读通知（按时间倒序，不分页）
func (s *MailboxService) UnreadFor(ctx context.Context, driverEmail string) ([]*domain.Notification, error) {
	email := domain.NormalizeEmail(driverEmail)
	if email == "" {
		return nil, domain.Validation("email is required")
	}
	return s.repo.ListUnread(ctx, email)
}

// MarkRead 标记已读（幂等）；未知 id 返回 ErrNotFound
func (s *MailboxService) MarkRead(ctx context.Context, notificationID string) (*domain.Notification, error) {
	if notificationID == "" {
		return nil, domain.Validation("notification id is required")
	}
	n, err := s.repo.MarkRead(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	s.invalidateUnread(ctx, n.DriverEmail)
	return n, nil
}

// UnreadCount 未读数，优先读 Redis 缓存
func (s *MailboxService) UnreadCount(ctx context.Context, driverEmail string) (int, error) {
	email := domain.NormalizeEmail(driverEmail)
	if email == "" {
		return 0, domain.Validation("email is required")
	}

	key := unreadCountKey(email)
	if s.kv != nil {
		v, err := s.kv.Get(ctx, key)
		if err == nil {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				return n, nil
			}
		} else if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Unread count cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	n, err := s.repo.CountUnread(ctx, email)
	if err != nil {
		return 0, err
	}
	if s.kv != nil {
		if err := s.kv.Set(ctx, key, strconv.Itoa(n), unreadCountTTL); err != nil {
			s.logger.Warn("Unread count cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return n, nil
}

// FlushUnreadCache drops every cached unread count, returning how many keys were removed.
// Used at startup when the record store is in-memory and cached counts would be stale.
func (s *MailboxService) FlushUnreadCache(ctx context.Context) (int, error) {
	if s.kv == nil {
		return 0, nil
	}
	keys, err := s.kv.ScanKeys(ctx, unreadCountPattern)
	if err != nil {
		return 0, fmt.Errorf("scan unread cache: %w", err)
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete unread cache: %w", err)
	}
	return len(keys), nil
}

func (s *MailboxService) invalidateUnread(ctx context.Context, email string) {
	if s.kv == nil || email == "" {
		return
	}
	if err := s.kv.Del(ctx, unreadCountKey(email)); err != nil {
		s.logger.Warn("Unread count cache invalidation failed", zap.String("driver_email", email), zap.Error(err))
	}
}

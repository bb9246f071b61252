package service

import (
	"context"
	"fmt"

	commonredis "mediroute-data/common/redis"
	"mediroute-data/internal/domain"

	"github.com/go-redis/redis/v8"
)

// Notifier pushes a stored notification to a live delivery channel.
// Delivery is best-effort: the mailbox logs failures and never returns them.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n *domain.Notification) error
}

// NotificationStream Redis Stream 名称
const NotificationStream = "mediroute:notifications"

// StreamNotifier 将通知写入 Redis Stream，供下游消费者（调度台、审计）读取
type StreamNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamNotifier(client *redis.Client, stream string, maxLen int64) *StreamNotifier {
	if stream == "" {
		stream = NotificationStream
	}
	return &StreamNotifier{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamNotifier) Name() string { return "redis_stream" }

func (s *StreamNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	if _, err := commonredis.PublishJSONToStream(ctx, s.client, s.stream, n, s.maxLen); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

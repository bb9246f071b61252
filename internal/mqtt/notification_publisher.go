package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"mediroute-data/internal/domain"
	"mediroute-data/internal/service"

	"go.uber.org/zap"
)

// Publisher 最小 MQTT 发布接口（common/mqtt.Client 满足）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// DefaultTopicPrefix 默认主题前缀
const DefaultTopicPrefix = "mediroute"

// NotificationPublisher 把司机通知推送到救护车终端订阅的 MQTT 主题
type NotificationPublisher struct {
	client Publisher
	prefix string
	qos    byte
	logger *zap.Logger
}

// NewNotificationPublisher 创建 MQTT 通知推送
func NewNotificationPublisher(client Publisher, prefix string, qos byte, logger *zap.Logger) *NotificationPublisher {
	return &NotificationPublisher{
		client: client,
		prefix: TopicPrefix(prefix),
		qos:    qos,
		logger: logger,
	}
}

var _ service.Notifier = (*NotificationPublisher)(nil)

// TopicPrefix 去掉首尾 '/'，为空时使用默认前缀
func TopicPrefix(prefix string) string {
	if prefix = strings.Trim(prefix, "/"); prefix == "" {
		return DefaultTopicPrefix
	}
	return prefix
}

// TopicFor <prefix>/drivers/<email>/notifications
// email 作为单个主题层级编码：'/' '#' '+' 不能出现在发布主题里
func TopicFor(prefix, driverEmail string) string {
	return prefix + "/drivers/" + topicSegment(driverEmail) + "/notifications"
}

var segmentEscaper = strings.NewReplacer("+", "%2B", "#", "%23")

func topicSegment(email string) string {
	return segmentEscaper.Replace(url.PathEscape(domain.NormalizeEmail(email)))
}

func (p *NotificationPublisher) Name() string { return "mqtt" }

// Notify QoS 按配置，不保留
func (p *NotificationPublisher) Notify(_ context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	topic := TopicFor(p.prefix, n.DriverEmail)
	if err := p.client.Publish(topic, p.qos, false, payload); err != nil {
		return err
	}
	p.logger.Debug("Notification published",
		zap.String("topic", topic),
		zap.String("notification_id", n.ID),
	)
	return nil
}

// DecodeNotification parses a payload received on a driver notification topic.
func DecodeNotification(payload []byte) (*domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	return &n, nil
}

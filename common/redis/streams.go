package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// PublishJSONToStream 发布 JSON 消息到 Redis Streams
// 消息格式: {"data": <json>, "timestamp": <unix seconds>}
// maxLen > 0 时近似裁剪 stream 长度
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data any, maxLen int64) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"data":      string(jsonBytes),
			"timestamp": time.Now().Unix(),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return client.XAdd(ctx, args).Result()
}

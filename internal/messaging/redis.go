package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Consumer claims job messages from the broker. Receive returns nil when no
// message arrived within the poll window; Ack releases a claimed message so
// it is not redelivered.
type Consumer interface {
	Receive(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, id string) error
}

// Producer emits status updates.
type Producer interface {
	PublishStatus(ctx context.Context, update *StatusUpdate) error
}

// RedisBroker backs both interfaces with Redis Streams: a consumer group on
// the job stream and plain appends on the status stream.
type RedisBroker struct {
	client       *redis.Client
	jobStream    string
	statusStream string
	group        string
	consumer     string
}

type BrokerConfig struct {
	Addr         string
	JobStream    string
	StatusStream string
	Group        string
	Consumer     string
}

func NewRedisBroker(cfg BrokerConfig) *RedisBroker {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	return &RedisBroker{
		client:       rdb,
		jobStream:    cfg.JobStream,
		statusStream: cfg.StatusStream,
		group:        cfg.Group,
		consumer:     cfg.Consumer,
	}
}

// EnsureGroup creates the consumer group (and the stream, if missing). A
// group that already exists is fine.
func (b *RedisBroker) EnsureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.jobStream, b.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (b *RedisBroker) Receive(ctx context.Context) (*Message, error) {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.group,
		Consumer: b.consumer,
		Streams:  []string{b.jobStream, ">"},
		Count:    1,
		Block:    5 * time.Second,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	entry := streams[0].Messages[0]
	msg := &Message{ID: entry.ID}
	if key, ok := entry.Values["job_id"].(string); ok {
		msg.Key = key
	}
	if body, ok := entry.Values["body"].(string); ok {
		msg.Body = []byte(body)
	}
	return msg, nil
}

func (b *RedisBroker) Ack(ctx context.Context, id string) error {
	return b.client.XAck(ctx, b.jobStream, b.group, id).Err()
}

func (b *RedisBroker) PublishStatus(ctx context.Context, update *StatusUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.statusStream,
		Values: map[string]interface{}{
			"job_id": update.JobID,
			"status": update.Status,
			"body":   string(body),
		},
	}).Err()
}

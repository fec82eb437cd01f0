// internal/pkg/notify/redis.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisSink publishes events on Redis pub/sub channels. Publish failures are
// logged and swallowed so a dropped notification never fails a checkout.
type RedisSink struct {
	client *redis.Client
	log    *logrus.Logger
}

// NewRedisSink creates a Redis-backed notification sink
func NewRedisSink(client *redis.Client, log *logrus.Logger) *RedisSink {
	return &RedisSink{
		client: client,
		log:    log,
	}
}

// envelope is the wire form of a published event
type envelope struct {
	ID        string      `json:"id"`
	Event     Event       `json:"event"`
	Payload   interface{} `json:"payload"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// Emit implements Sink
func (s *RedisSink) Emit(event Event, payload interface{}) {
	msg := envelope{
		ID:        uuid.NewString(),
		Event:     event,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).WithField("event", event).Warn("Failed to encode notification event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.client.Publish(ctx, "events:"+string(event), data).Err(); err != nil {
		s.log.WithError(err).WithField("event", event).Warn("Failed to publish notification event")
	}
}

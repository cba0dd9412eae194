package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gradsmart-api/internal/models"
)

const notificationChannelPrefix = "notifications:user:"

// NotificationBroker fans notifications out over Redis pub/sub, one channel per user.
// Without a client publishing is a no-op and subscriptions never deliver.
type NotificationBroker struct {
	client *redis.Client
}

// NewNotificationBroker constructs a broker over client.
func NewNotificationBroker(client *redis.Client) *NotificationBroker {
	return &NotificationBroker{client: client}
}

// Channel returns the pub/sub channel of userID.
func (b *NotificationBroker) Channel(userID string) string {
	return notificationChannelPrefix + userID
}

// Available reports whether messages can be delivered.
func (b *NotificationBroker) Available() bool {
	return b != nil && b.client != nil
}

// Publish sends n to the channel of its recipient.
func (b *NotificationBroker) Publish(ctx context.Context, n models.Notification) error {
	if !b.Available() {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := b.client.Publish(ctx, b.Channel(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Subscribe listens on the channel of userID until ctx ends or the returned close func
// is called. The returned channel is nil when no client is configured.
func (b *NotificationBroker) Subscribe(ctx context.Context, userID string) (<-chan models.Notification, func() error, error) {
	if !b.Available() {
		return nil, func() error { return nil }, nil
	}

	pubsub := b.client.Subscribe(ctx, b.Channel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe notifications: %w", err)
	}

	out := make(chan models.Notification, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var n models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				continue
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close, nil
}

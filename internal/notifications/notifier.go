// Package notifications delivers new messages to followers in real time.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/redis/go-redis/v9"
)

// EventNewMessage is the FeedEvent type for a freshly posted message.
const EventNewMessage = "new_message"

// FeedEvent is the JSON payload pushed to a follower's channel.
type FeedEvent struct {
	Type      string    `json:"type"`
	MessageID uint      `json:"message_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes feed events into Redis channels and subscribes to them.
// A Notifier without a Redis client does nothing.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events are actually delivered.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// FeedChannel derives the Redis channel name for a user's feed.
func FeedChannel(userID uint) string {
	return "feed:user:" + strconv.FormatUint(uint64(userID), 10)
}

// PublishMessage sends msg to the feed channel of every follower in one
// pipeline.
func (n *Notifier) PublishMessage(ctx context.Context, msg *models.Message, followerIDs []uint) error {
	if !n.Enabled() || len(followerIDs) == 0 {
		return nil
	}

	event := FeedEvent{
		Type:      EventNewMessage,
		MessageID: msg.ID,
		UserID:    msg.UserID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}
	if msg.User != nil {
		event.Username = msg.User.Username
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}

	_, err = n.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range followerIDs {
			pipe.Publish(ctx, FeedChannel(id), payload)
		}
		return nil
	})
	return err
}

// SubscribeFeed subscribes to userID's feed channel and calls onMessage for
// each payload until ctx is cancelled. It returns once the subscription is
// confirmed.
func (n *Notifier) SubscribeFeed(ctx context.Context, userID uint, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, FeedChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe feed: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in feed subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// Package notifications publishes moderation events and fans them out to
// connected operators.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"commentguard/internal/middleware"
	"commentguard/internal/moderation"
	"commentguard/internal/workflow"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "moderation:"

	// ChannelFlagged carries comments that need review.
	ChannelFlagged = channelPrefix + "flagged"
	// ChannelRuleNotify carries notify-action events raised by workflow rules.
	ChannelRuleNotify = channelPrefix + "rule_notify"
	// ChannelActivity carries run reports and settings changes.
	ChannelActivity = channelPrefix + "activity"
)

// Event types carried in Envelope.Type.
const (
	EventCommentFlagged  = "comment_flagged"
	EventRuleNotify      = "rule_notify"
	EventWorkflowRun     = "workflow_run"
	EventSettingsUpdated = "settings_updated"
)

// Envelope is the wire form of every published event.
type Envelope struct {
	Type    string          `json:"type"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Notifier publishes moderation events into Redis channels. Without Redis,
// events go straight to the local subscriber, if any.
type Notifier struct {
	rdb redis.UniversalClient

	mu    sync.RWMutex
	local func(channel, payload string)
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb redis.UniversalClient) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishFlagged announces a comment that needs review.
func (n *Notifier) PublishFlagged(ctx context.Context, ev moderation.FlaggedEvent) error {
	return n.publish(ctx, ChannelFlagged, EventCommentFlagged, ev.At, ev)
}

// NotifyRule implements workflow.Notifier.
func (n *Notifier) NotifyRule(ctx context.Context, ev workflow.NotifyEvent) error {
	return n.publish(ctx, ChannelRuleNotify, EventRuleNotify, ev.At, ev)
}

// PublishRunReport announces a finished workflow run.
func (n *Notifier) PublishRunReport(ctx context.Context, report workflow.RunReport) error {
	return n.publish(ctx, ChannelActivity, EventWorkflowRun, report.StartedAt.Add(report.Duration), report)
}

// PublishSettingsUpdated announces a settings replacement.
func (n *Notifier) PublishSettingsUpdated(ctx context.Context, version uint64, at time.Time) error {
	return n.publish(ctx, ChannelActivity, EventSettingsUpdated, at, map[string]uint64{"version": version})
}

func (n *Notifier) publish(ctx context.Context, channel, eventType string, at time.Time, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg, err := json.Marshal(Envelope{Type: eventType, At: at, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if n.rdb != nil {
		return n.rdb.Publish(ctx, channel, string(msg)).Err()
	}
	n.mu.RLock()
	local := n.local
	n.mu.RUnlock()
	if local != nil {
		local(channel, string(msg))
	}
	return nil
}

// StartPatternSubscriber subscribes to every moderation channel and calls
// onMessage for each incoming message. Without Redis, onMessage is called
// synchronously from the publishing goroutine.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		n.mu.Lock()
		n.local = onMessage
		n.mu.Unlock()
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s*: %w", channelPrefix, err)
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
							middleware.Logger.Error("panic in moderation subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// IsModerationChannel reports whether channel belongs to this notifier.
func IsModerationChannel(channel string) bool {
	return strings.HasPrefix(channel, channelPrefix)
}

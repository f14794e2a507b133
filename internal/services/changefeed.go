package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	dequeueBatch      = 32
	dequeueVisibility = 30 * time.Second
)

// QueueClient is the queue surface the change feed needs; *QueueService
// satisfies it.
type QueueClient interface {
	EnsureQueue(ctx context.Context, queueName string) error
	DeleteQueue(ctx context.Context, queueName string) error
	ListQueues(ctx context.Context, prefix string) ([]string, error)
	EnqueueMessage(ctx context.Context, queueName string, message any) error
	DequeueMessages(ctx context.Context, queueName string, max int32, visibility time.Duration) ([]QueueMessage, error)
	DeleteMessage(ctx context.Context, queueName, messageID, popReceipt string) error
}

// ChangeNotification announces that a document was overwritten.
type ChangeNotification struct {
	DocumentKey string    `json:"document_key"`
	Origin      string    `json:"origin"`
	ChangedAt   time.Time `json:"changed_at"`
}

// ChangeFeed broadcasts document changes between sessions. Each session
// owns one queue named <prefix>-<session id>; publishing fans a
// notification out to every other session queue.
type ChangeFeed struct {
	queues       QueueClient
	prefix       string
	session      string
	pollInterval time.Duration
}

// NewChangeFeed creates a feed with a fresh session id.
func NewChangeFeed(queues QueueClient, prefix string, pollInterval time.Duration) *ChangeFeed {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &ChangeFeed{
		queues:       queues,
		prefix:       prefix,
		session:      uuid.NewString(),
		pollInterval: pollInterval,
	}
}

// Session returns the id stamped on notifications published by this feed.
func (f *ChangeFeed) Session() string {
	return f.session
}

// QueueName is the queue this session receives notifications on.
func (f *ChangeFeed) QueueName() string {
	return f.prefix + "-" + f.session
}

// Publish notifies every other session that key changed. Delivery is best
// effort: failures for individual queues are joined into the returned error.
func (f *ChangeFeed) Publish(ctx context.Context, key string) error {
	names, err := f.queues.ListQueues(ctx, f.prefix+"-")
	if err != nil {
		return fmt.Errorf("failed to list session queues: %w", err)
	}

	n := ChangeNotification{DocumentKey: key, Origin: f.session, ChangedAt: time.Now().UTC()}
	var errs []error
	for _, name := range names {
		if name == f.QueueName() {
			continue
		}
		if err := f.queues.EnqueueMessage(ctx, name, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe creates this session's queue and polls it until the returned
// stop function is called or ctx is done. Notifications originating from
// this session are dropped. Several notifications for the same key in one
// batch are delivered once.
func (f *ChangeFeed) Subscribe(ctx context.Context, handle func(ChangeNotification)) (func(), error) {
	queue := f.QueueName()
	if err := f.queues.EnsureQueue(ctx, queue); err != nil {
		return nil, fmt.Errorf("failed to create session queue: %w", err)
	}
	slog.Info("subscribed to document changes", "queue", queue)

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(f.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				f.poll(pollCtx, queue, handle)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
			cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cleanupCancel()
			if err := f.queues.DeleteQueue(cleanupCtx, queue); err != nil {
				slog.Warn("failed to delete session queue", "queue", queue, "error", err)
			}
		})
	}
	return stop, nil
}

func (f *ChangeFeed) poll(ctx context.Context, queue string, handle func(ChangeNotification)) {
	msgs, err := f.queues.DequeueMessages(ctx, queue, dequeueBatch, dequeueVisibility)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("failed to poll change queue", "queue", queue, "error", err)
		}
		return
	}

	latest := map[string]ChangeNotification{}
	var order []string
	for _, m := range msgs {
		var n ChangeNotification
		if err := json.Unmarshal(m.Body, &n); err != nil {
			slog.Warn("dropping malformed change notification", "queue", queue, "message_id", m.ID, "error", err)
		} else if n.Origin != f.session {
			if _, seen := latest[n.DocumentKey]; !seen {
				order = append(order, n.DocumentKey)
			}
			latest[n.DocumentKey] = n
		}
		if err := f.queues.DeleteMessage(ctx, queue, m.ID, m.PopReceipt); err != nil {
			slog.Warn("failed to delete change notification", "queue", queue, "message_id", m.ID, "error", err)
		}
	}

	for _, key := range order {
		handle(latest[key])
	}
}

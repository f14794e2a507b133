package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

// QueueMessage is a dequeued message with its body already base64-decoded.
type QueueMessage struct {
	ID         string
	PopReceipt string
	Body       []byte
}

// QueueService handles interactions with Azure Queue Storage.
type QueueService struct {
	serviceClient *azqueue.ServiceClient
	messageTTL    time.Duration
}

// NewQueueService creates a QueueService for queueURL. Messages expire
// after messageTTL; zero keeps the service default.
func NewQueueService(queueURL string, messageTTL time.Duration) (*QueueService, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("queue service URL is required")
	}

	slog.Info("initializing queue service", "queue_url", queueURL)
	var client *azqueue.ServiceClient

	if isLocal(queueURL) {
		slog.Info("using Azurite shared key credentials for queue service")
		name, key := getAzuriteCredentials()
		cred, err := azqueue.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = azqueue.NewServiceClientWithSharedKeyCredential(queueURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue service client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = azqueue.NewServiceClient(queueURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create queue service client: %w", err)
		}
	}

	slog.Info("queue service initialized successfully")
	return &QueueService{serviceClient: client, messageTTL: messageTTL}, nil
}

// EnsureQueue creates queueName unless it already exists.
func (s *QueueService) EnsureQueue(ctx context.Context, queueName string) error {
	_, err := s.serviceClient.NewQueueClient(queueName).Create(ctx, nil)
	if err != nil {
		var azErr *azcore.ResponseError
		if errors.As(err, &azErr) && azErr.ErrorCode == "QueueAlreadyExists" {
			return nil
		}
		return fmt.Errorf("failed to create queue %s: %w", queueName, err)
	}
	slog.Info("created queue", "queue", queueName)
	return nil
}

// DeleteQueue removes queueName. A queue that is already gone is not an error.
func (s *QueueService) DeleteQueue(ctx context.Context, queueName string) error {
	_, err := s.serviceClient.NewQueueClient(queueName).Delete(ctx, nil)
	if err != nil && !isNotFound(err) {
		var azErr *azcore.ResponseError
		if !errors.As(err, &azErr) || azErr.ErrorCode != "QueueNotFound" {
			return fmt.Errorf("failed to delete queue %s: %w", queueName, err)
		}
	}
	return nil
}

// ListQueues returns the names of all queues starting with prefix.
func (s *QueueService) ListQueues(ctx context.Context, prefix string) ([]string, error) {
	pager := s.serviceClient.NewListQueuesPager(&azqueue.ListQueuesOptions{Prefix: to.Ptr(prefix)})

	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list queues with prefix %s: %w", prefix, err)
		}
		for _, q := range page.Queues {
			if q != nil && q.Name != nil {
				names = append(names, *q.Name)
			}
		}
	}
	return names, nil
}

// EnqueueMessage adds a JSON-encoded, base64-wrapped message to a queue.
func (s *QueueService) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	encodedMsg := base64.StdEncoding.EncodeToString(msgBytes)

	var opts *azqueue.EnqueueMessageOptions
	if s.messageTTL > 0 {
		opts = &azqueue.EnqueueMessageOptions{TimeToLive: to.Ptr(int32(s.messageTTL / time.Second))}
	}

	_, err = s.serviceClient.NewQueueClient(queueName).EnqueueMessage(ctx, encodedMsg, opts)
	if err != nil {
		slog.Error("failed to enqueue message", "queue", queueName, "error", err)
		return fmt.Errorf("failed to enqueue message to %s: %w", queueName, err)
	}

	slog.Debug("enqueued message", "queue", queueName)
	return nil
}

// DequeueMessages receives up to max messages, hiding them from other
// receivers for visibility.
func (s *QueueService) DequeueMessages(ctx context.Context, queueName string, max int32, visibility time.Duration) ([]QueueMessage, error) {
	resp, err := s.serviceClient.NewQueueClient(queueName).DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{
		NumberOfMessages:  to.Ptr(max),
		VisibilityTimeout: to.Ptr(int32(visibility / time.Second)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue messages from %s: %w", queueName, err)
	}

	out := make([]QueueMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil || m.MessageID == nil || m.PopReceipt == nil {
			continue
		}
		msg := QueueMessage{ID: *m.MessageID, PopReceipt: *m.PopReceipt}
		if m.MessageText != nil {
			body, err := base64.StdEncoding.DecodeString(*m.MessageText)
			if err != nil {
				// Not produced by EnqueueMessage; hand it over raw.
				body = []byte(*m.MessageText)
			}
			msg.Body = body
		}
		out = append(out, msg)
	}
	return out, nil
}

// DeleteMessage removes a dequeued message.
func (s *QueueService) DeleteMessage(ctx context.Context, queueName, messageID, popReceipt string) error {
	_, err := s.serviceClient.NewQueueClient(queueName).DeleteMessage(ctx, messageID, popReceipt, nil)
	if err != nil {
		return fmt.Errorf("failed to delete message %s from %s: %w", messageID, queueName, err)
	}
	return nil
}

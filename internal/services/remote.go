package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Pirozshki/FinancePro/internal/models"
)

type documentStore interface {
	Fetch(ctx context.Context, key string) (*models.BudgetDocument, error)
	Upsert(ctx context.Context, key string, doc *models.BudgetDocument, origin string) error
}

type changeFeed interface {
	Session() string
	Publish(ctx context.Context, key string) error
	Subscribe(ctx context.Context, handle func(ChangeNotification)) (func(), error)
}

// RemoteDocument joins the table-backed document store with the queue
// change feed into a single hosted document with push notifications.
type RemoteDocument struct {
	docs         documentStore
	feed         changeFeed
	fetchTimeout time.Duration
}

// NewRemoteDocument wires docs and feed together.
func NewRemoteDocument(docs documentStore, feed changeFeed) *RemoteDocument {
	return &RemoteDocument{docs: docs, feed: feed, fetchTimeout: 30 * time.Second}
}

func (r *RemoteDocument) Fetch(ctx context.Context, key string) (*models.BudgetDocument, error) {
	return r.docs.Fetch(ctx, key)
}

// Upsert writes the document and then notifies the other sessions. A
// failed notification does not fail the write.
func (r *RemoteDocument) Upsert(ctx context.Context, key string, doc *models.BudgetDocument) error {
	if err := r.docs.Upsert(ctx, key, doc, r.feed.Session()); err != nil {
		return err
	}
	if err := r.feed.Publish(ctx, key); err != nil {
		slog.Warn("failed to publish document change", "document_key", key, "error", err)
	}
	return nil
}

// Subscribe re-reads the document whenever another session reports a
// change to key.
func (r *RemoteDocument) Subscribe(ctx context.Context, key string, onChange func(*models.BudgetDocument)) (func(), error) {
	return r.feed.Subscribe(ctx, func(n ChangeNotification) {
		if n.DocumentKey != key {
			return
		}
		fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
		defer cancel()
		doc, err := r.docs.Fetch(fetchCtx, key)
		if err != nil {
			slog.Error("failed to fetch changed document", "document_key", key, "origin", n.Origin, "error", err)
			return
		}
		if doc == nil {
			return
		}
		slog.Info("received remote document change", "document_key", key, "origin", n.Origin)
		onChange(doc)
	})
}

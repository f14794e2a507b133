package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Pirozshki/FinancePro/internal/config"
	"github.com/Pirozshki/FinancePro/internal/ingest"
	"github.com/Pirozshki/FinancePro/internal/services"
	"github.com/Pirozshki/FinancePro/internal/store"
)

const shutdownFlushTimeout = 30 * time.Second

// app is the wired set of services every command works against.
type app struct {
	cfg     *config.Config
	store   *store.Store
	archive *ingest.Archive
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.ValidateRemote(); err != nil {
		return nil, err
	}

	docs, err := services.NewDocumentService(ctx, cfg.TableServiceURL, cfg.BudgetTable)
	if err != nil {
		return nil, fmt.Errorf("failed to init document service: %w", err)
	}

	queues, err := services.NewQueueService(cfg.QueueServiceURL, cfg.ChangeMessageTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to init queue service: %w", err)
	}
	feed := services.NewChangeFeed(queues, cfg.ChangeQueuePrefix, cfg.ChangePollInterval)
	remote := services.NewRemoteDocument(docs, feed)

	a := &app{cfg: cfg}
	storeCfg := store.DefaultConfig(cfg.DocumentKey)
	storeCfg.Debounce = cfg.SaveDebounce
	storeCfg.SavedDisplay = cfg.SavedDisplay
	a.store = store.New(remote, storeCfg)

	if cfg.BlobServiceURL != "" {
		blobs, err := services.NewBlobService(cfg.BlobServiceURL)
		if err != nil {
			// Imports still work without the archive.
			slog.Warn("failed to init blob service, statement archive disabled", "error", err)
		} else {
			a.archive = ingest.NewArchive(blobs, cfg.StatementContainer)
		}
	}

	a.store.Start(ctx)
	slog.Info("budget store ready", "document_key", cfg.DocumentKey, "session", feed.Session())
	return a, nil
}

// shutdown pushes unsaved edits and releases the change subscription.
func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()
	if err := a.store.Flush(ctx); err != nil {
		slog.Error("failed to flush budget document on shutdown", "error", err)
	}
	a.store.Close()
}

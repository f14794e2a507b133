package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// BlobStore stores raw statement text.
type BlobStore interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	DownloadText(ctx context.Context, containerName, blobName string) (string, error)
}

// Archive keeps a copy of every uploaded statement so it can be reviewed
// again later.
type Archive struct {
	blobs     BlobStore
	container string
	now       func() time.Time
}

// NewArchive returns an archive writing into container.
func NewArchive(blobs BlobStore, container string) *Archive {
	return &Archive{blobs: blobs, container: container, now: time.Now}
}

// Save stores content under uploads/<timestamp>-<filename> and returns the
// blob name.
func (a *Archive) Save(ctx context.Context, filename, content string) (string, error) {
	timestamp := a.now().Format("20060102-150405")
	blobName := fmt.Sprintf("uploads/%s-%s", timestamp, filepath.Base(filename))

	if err := a.blobs.UploadText(ctx, a.container, blobName, content); err != nil {
		return "", fmt.Errorf("failed to archive statement: %w", err)
	}
	return blobName, nil
}

// Open returns the content of an archived statement.
func (a *Archive) Open(ctx context.Context, blobName string) (string, error) {
	if !strings.HasPrefix(blobName, "uploads/") || strings.Contains(blobName, "..") {
		return "", fmt.Errorf("invalid statement name %q", blobName)
	}
	content, err := a.blobs.DownloadText(ctx, a.container, blobName)
	if err != nil {
		return "", fmt.Errorf("failed to open archived statement: %w", err)
	}
	return content, nil
}

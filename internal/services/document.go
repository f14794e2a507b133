package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Pirozshki/FinancePro/internal/models"
)

const (
	documentPartition = "BUDGET"
	// Table string properties hold at most 64 KiB; stay well below.
	contentChunkBytes = 30000
	// Entities are capped at 1 MiB as stored, and the service stores
	// strings as UTF-16. Leave room for the other properties.
	maxStoredContentBytes = 960 * 1024
)

// ErrDocumentTooLarge is returned when a document does not fit in one entity.
var ErrDocumentTooLarge = errors.New("document too large to store")

// entityClient is the subset of *aztables.Client the document service uses.
type entityClient interface {
	GetEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
}

// DocumentService stores budget documents as single rows in Azure Table
// Storage. The JSON document is split across Content<N> properties.
type DocumentService struct {
	client entityClient
	table  string
}

// NewDocumentService connects to the table service at tableURL and ensures
// the table exists.
func NewDocumentService(ctx context.Context, tableURL, table string) (*DocumentService, error) {
	if tableURL == "" {
		return nil, fmt.Errorf("table service URL is required")
	}

	var serviceClient *aztables.ServiceClient
	if isLocal(tableURL) {
		slog.Info("using Azurite credentials for document service")
		name, key := getAzuriteCredentials()
		cred, err := aztables.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		serviceClient, err = aztables.NewServiceClientWithSharedKey(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		serviceClient, err = aztables.NewServiceClient(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client: %w", err)
		}
	}

	if _, err := serviceClient.CreateTable(ctx, table, nil); err != nil {
		var azErr *azcore.ResponseError
		if !errors.As(err, &azErr) || azErr.ErrorCode != "TableAlreadyExists" {
			return nil, fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}

	slog.Info("document service initialized successfully", "table_url", tableURL, "table", table)
	return &DocumentService{client: serviceClient.NewClient(table), table: table}, nil
}

// Fetch returns the document stored under key, or nil if there is none.
func (s *DocumentService) Fetch(ctx context.Context, key string) (*models.BudgetDocument, error) {
	resp, err := s.client.GetEntity(ctx, documentPartition, key, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(resp.Value, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode entity %s: %w", key, err)
	}

	chunks := 0
	if v, ok := parsed["Chunks"].(float64); ok {
		chunks = int(v)
	}
	var content strings.Builder
	for i := 0; i < chunks; i++ {
		part, ok := parsed[chunkProperty(i)].(string)
		if !ok {
			return nil, fmt.Errorf("document %s is missing %s", key, chunkProperty(i))
		}
		content.WriteString(part)
	}

	var doc models.BudgetDocument
	if err := json.Unmarshal([]byte(content.String()), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", key, err)
	}
	if doc.MonthlyData == nil {
		doc.MonthlyData = map[string]*models.MonthLedger{}
	}
	if doc.Categories == nil {
		doc.Categories = []string{}
	}
	return &doc, nil
}

// Upsert replaces the stored document unconditionally. origin identifies
// the writing session.
func (s *DocumentService) Upsert(ctx context.Context, key string, doc *models.BudgetDocument, origin string) error {
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", key, err)
	}
	if size := storedSize(content); size > maxStoredContentBytes {
		return fmt.Errorf("%w: %s needs %d bytes", ErrDocumentTooLarge, key, size)
	}

	chunks := splitContent(content, contentChunkBytes)
	entity := map[string]any{
		"PartitionKey": documentPartition,
		"RowKey":       key,
		"Chunks":       len(chunks),
		"UpdatedAt":    time.Now().UTC().Format(time.RFC3339),
		"UpdatedBy":    origin,
	}
	for i, c := range chunks {
		entity[chunkProperty(i)] = c
	}

	entityJSON, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to encode entity %s: %w", key, err)
	}

	_, err = s.client.UpsertEntity(ctx, entityJSON, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", key, err)
	}
	slog.Debug("upserted document", "table", s.table, "document_key", key, "size_bytes", len(content), "chunks", len(chunks))
	return nil
}

// storedSize is the UTF-16 size of content in bytes.
func storedSize(content []byte) int {
	units := 0
	for _, r := range string(content) {
		units += utf16.RuneLen(r)
	}
	return units * 2
}

func chunkProperty(i int) string {
	return fmt.Sprintf("Content%02d", i)
}

// splitContent cuts b into pieces of at most size bytes without splitting
// a UTF-8 sequence. A single rune wider than size gets its own piece.
func splitContent(b []byte, size int) []string {
	var out []string
	for len(b) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(b[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRune(b)
		}
		out = append(out, string(b[:cut]))
		b = b[cut:]
	}
	return append(out, string(b))
}

func isNotFound(err error) bool {
	var azErr *azcore.ResponseError
	return errors.As(err, &azErr) &&
		(azErr.StatusCode == http.StatusNotFound || azErr.ErrorCode == "ResourceNotFound")
}

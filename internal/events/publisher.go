package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/webimport/product-extractor/internal/database"
	"github.com/webimport/product-extractor/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductImported is published when an extraction result is persisted
	EventTypeProductImported EventType = "PRODUCT_IMPORTED"
)

// ProductImportedPayload represents the payload for PRODUCT_IMPORTED events
type ProductImportedPayload struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Timestamp  time.Time       `json:"timestamp"`
	ImportID   string          `json:"import_id"`
	Platform   string          `json:"platform"`
	ExternalID string          `json:"external_id,omitempty"`
	Title      string          `json:"title"`
	Price      float64         `json:"price"`
	Currency   string          `json:"currency"`
	SourceURL  string          `json:"source_url"`
	Product    *models.Product `json:"product"`
	Source     string          `json:"source"`
}

// Publisher persists extraction results and publishes events using the
// transactional outbox pattern. The product row and its outbox event
// commit in the same transaction.
type Publisher struct {
	db      *database.DB
	imports *database.ImportRepository
	outbox  *database.OutboxRepository
	logger  *slog.Logger
}

// NewPublisher creates a new event publisher with database connection
func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:      db,
		imports: database.NewImportRepository(db),
		outbox:  database.NewOutboxRepository(db),
		logger:  logger.With("component", "event_publisher"),
	}
}

// PublishProductImported stores the product and queues a PRODUCT_IMPORTED
// event atomically. Returns the persisted import row.
func (p *Publisher) PublishProductImported(ctx context.Context, product *models.Product) (*database.ImportedProduct, error) {
	payload := &ProductImportedPayload{
		EventID:    uuid.New().String(),
		EventType:  string(EventTypeProductImported),
		Timestamp:  time.Now(),
		Platform:   string(product.Platform),
		ExternalID: product.ExternalID,
		Title:      product.Title,
		Price:      product.Price,
		Currency:   product.Currency,
		SourceURL:  product.SourceURL,
		Product:    product,
		Source:     "product-extractor",
	}

	var imported *database.ImportedProduct
	err := p.db.Transaction(ctx, func(tx pgx.Tx) error {
		var txErr error
		imported, txErr = p.imports.UpsertWithTx(ctx, tx, product)
		if txErr != nil {
			return fmt.Errorf("failed to upsert imported product: %w", txErr)
		}

		payload.ImportID = imported.ID.String()
		data, txErr := json.Marshal(payload)
		if txErr != nil {
			return fmt.Errorf("failed to marshal event: %w", txErr)
		}

		outboxEvent := &database.OutboxEvent{
			ImportID:  imported.ID.String(),
			EventType: string(EventTypeProductImported),
			Payload:   data,
		}

		if txErr := p.outbox.InsertWithTx(ctx, tx, outboxEvent); txErr != nil {
			return fmt.Errorf("failed to insert outbox event: %w", txErr)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"import_id", payload.ImportID,
		"platform", payload.Platform,
	)

	return imported, nil
}

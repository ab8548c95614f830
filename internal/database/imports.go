package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/webimport/product-extractor/internal/models"
)

var ErrImportNotFound = errors.New("imported product not found")

// ImportedProduct is one persisted extraction result. The full record
// is kept as JSONB; the indexed columns exist for listing and upserts.
type ImportedProduct struct {
	ID          uuid.UUID       `db:"id"`
	Platform    string          `db:"platform"`
	ExternalID  string          `db:"external_id"`
	Title       string          `db:"title"`
	Price       float64         `db:"price"`
	Currency    string          `db:"currency"`
	SourceURL   string          `db:"source_url"`
	Payload     json.RawMessage `db:"payload"`
	ExtractedAt time.Time       `db:"extracted_at"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// ImportRepository persists imported products.
type ImportRepository struct {
	db *DB
}

func NewImportRepository(db *DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// UpsertWithTx inserts or refreshes an imported product inside the
// caller's transaction so the outbox event commits atomically with it.
// Re-importing the same (platform, external_id) replaces the payload.
func (r *ImportRepository) UpsertWithTx(ctx context.Context, tx pgx.Tx, product *models.Product) (*ImportedProduct, error) {
	payload, err := json.Marshal(product)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal product: %w", err)
	}

	row := &ImportedProduct{
		ID:          uuid.New(),
		Platform:    string(product.Platform),
		ExternalID:  product.ExternalID,
		Title:       product.Title,
		Price:       product.Price,
		Currency:    product.Currency,
		SourceURL:   product.SourceURL,
		Payload:     payload,
		ExtractedAt: product.ExtractedAt,
	}

	// Records without an external id cannot be deduplicated; they key on
	// the source URL instead.
	conflictKey := row.ExternalID
	if conflictKey == "" {
		conflictKey = row.SourceURL
	}

	query := `
		INSERT INTO imported_products
			(id, platform, external_id, dedupe_key, title, price, currency, source_url, payload, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (platform, dedupe_key) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			source_url = EXCLUDED.source_url,
			payload = EXCLUDED.payload,
			extracted_at = EXCLUDED.extracted_at,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`

	err = tx.QueryRow(ctx, query,
		row.ID, row.Platform, row.ExternalID, conflictKey, row.Title,
		row.Price, row.Currency, row.SourceURL, row.Payload, row.ExtractedAt,
	).Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert imported product: %w", err)
	}

	return row, nil
}

// Get retrieves one imported product by id.
func (r *ImportRepository) Get(ctx context.Context, id uuid.UUID) (*ImportedProduct, error) {
	query := `
		SELECT id, platform, external_id, title, price, currency,
		       source_url, payload, extracted_at, created_at, updated_at
		FROM imported_products
		WHERE id = $1`

	row := &ImportedProduct{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Platform, &row.ExternalID, &row.Title, &row.Price,
		&row.Currency, &row.SourceURL, &row.Payload, &row.ExtractedAt,
		&row.CreatedAt, &row.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get imported product: %w", err)
	}

	return row, nil
}

// List returns the most recent imports, optionally filtered by platform.
func (r *ImportRepository) List(ctx context.Context, platform string, limit int) ([]*ImportedProduct, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, platform, external_id, title, price, currency,
		       source_url, payload, extracted_at, created_at, updated_at
		FROM imported_products
		WHERE ($1 = '' OR platform = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list imported products: %w", err)
	}
	defer rows.Close()

	var imports []*ImportedProduct
	for rows.Next() {
		row := &ImportedProduct{}
		err := rows.Scan(
			&row.ID, &row.Platform, &row.ExternalID, &row.Title, &row.Price,
			&row.Currency, &row.SourceURL, &row.Payload, &row.ExtractedAt,
			&row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan imported product: %w", err)
		}
		imports = append(imports, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return imports, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	_ OfferingRepository = (*SQLiteOfferingRepository)(nil)
	_ OfferingReader     = (*SQLiteOfferingRepository)(nil)
)

// created_at is stored as fixed-width text so it sorts chronologically
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteOfferingRepository handles database operations for offerings
type SQLiteOfferingRepository struct {
	db *DB
}

// NewOfferingRepository creates a new SQLite offering repository
func NewOfferingRepository(db *DB) *SQLiteOfferingRepository {
	return &SQLiteOfferingRepository{db: db}
}

func (r *SQLiteOfferingRepository) Exists(ctx context.Context, companyCIK, deadlineDate string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM offerings
		WHERE company_cik = ? AND deadline_date = ?
		LIMIT 1
	`, companyCIK, deadlineDate).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check offering: %w", err)
	}

	return true, nil
}

func (r *SQLiteOfferingRepository) Create(ctx context.Context, offering Offering) (string, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(createdAtLayout)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO offerings (
			id, company_cik, company_name, company_url, live_status,
			funding_portal, max_offering_amount, price_per_share, company_state,
			deadline_date, signature_date, document_url, summary, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, offering.CompanyCIK, offering.CompanyName, offering.CompanyURL, offering.LiveStatus,
		offering.FundingPortal, nullableDecimal(offering.MaxOfferingAmount), nullableDecimal(offering.PricePerShare),
		offering.CompanyState, offering.DeadlineDate, offering.SignatureDate, offering.DocumentURL,
		offering.Summary, createdAt)

	if err != nil {
		return "", fmt.Errorf("failed to create offering: %w", err)
	}

	return id, nil
}

// List returns the most recently stored offerings first
func (r *SQLiteOfferingRepository) List(ctx context.Context, limit int) ([]StoredOffering, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_cik, company_name, company_url, live_status,
		       funding_portal, max_offering_amount, price_per_share, company_state,
		       deadline_date, signature_date, document_url, summary, created_at
		FROM offerings
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list offerings: %w", err)
	}
	defer rows.Close()

	var offerings []StoredOffering
	for rows.Next() {
		var o StoredOffering
		var maxAmount, price *string
		var createdAt string
		err := rows.Scan(
			&o.ID, &o.CompanyCIK, &o.CompanyName, &o.CompanyURL, &o.LiveStatus,
			&o.FundingPortal, &maxAmount, &price, &o.CompanyState,
			&o.DeadlineDate, &o.SignatureDate, &o.DocumentURL, &o.Summary, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offering row: %w", err)
		}
		o.MaxOfferingAmount = parseNullableDecimal(maxAmount)
		o.PricePerShare = parseNullableDecimal(price)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			o.CreatedAt = t
		}
		offerings = append(offerings, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offering rows: %w", err)
	}

	return offerings, nil
}

func (r *SQLiteOfferingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM offerings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get offering count: %w", err)
	}
	return count, nil
}

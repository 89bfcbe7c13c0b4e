package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ OfferingRepository = (*PostgresOfferingRepository)(nil)
	_ OfferingReader     = (*PostgresOfferingRepository)(nil)
)

// NewPool configures a PostgreSQL connection pool.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

type PostgresOfferingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOfferingRepository(pool *pgxpool.Pool) *PostgresOfferingRepository {
	return &PostgresOfferingRepository{pool: pool}
}

func (r *PostgresOfferingRepository) Exists(ctx context.Context, companyCIK, deadlineDate string) (bool, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM offerings
		WHERE company_cik = $1 AND deadline_date = $2
		LIMIT 1
	`, companyCIK, deadlineDate).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check offering: %w", err)
	}

	return true, nil
}

func (r *PostgresOfferingRepository) Create(ctx context.Context, offering Offering) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO offerings (
			id, company_cik, company_name, company_url, live_status,
			funding_portal, max_offering_amount, price_per_share, company_state,
			deadline_date, signature_date, document_url, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10, $11, $12, $13)
		RETURNING id
	`, uuid.NewString(), offering.CompanyCIK, offering.CompanyName, offering.CompanyURL, offering.LiveStatus,
		offering.FundingPortal, nullableDecimal(offering.MaxOfferingAmount), nullableDecimal(offering.PricePerShare),
		offering.CompanyState, offering.DeadlineDate, offering.SignatureDate, offering.DocumentURL,
		offering.Summary).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to create offering: %w", err)
	}

	return id, nil
}

func (r *PostgresOfferingRepository) List(ctx context.Context, limit int) ([]StoredOffering, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_cik, company_name, company_url, live_status,
		       funding_portal, max_offering_amount::text, price_per_share::text, company_state,
		       deadline_date, signature_date, document_url, summary, created_at
		FROM offerings
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list offerings: %w", err)
	}
	defer rows.Close()

	var offerings []StoredOffering
	for rows.Next() {
		var o StoredOffering
		var maxAmount, price *string
		err := rows.Scan(
			&o.ID, &o.CompanyCIK, &o.CompanyName, &o.CompanyURL, &o.LiveStatus,
			&o.FundingPortal, &maxAmount, &price, &o.CompanyState,
			&o.DeadlineDate, &o.SignatureDate, &o.DocumentURL, &o.Summary, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offering row: %w", err)
		}
		o.MaxOfferingAmount = parseNullableDecimal(maxAmount)
		o.PricePerShare = parseNullableDecimal(price)
		offerings = append(offerings, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offering rows: %w", err)
	}

	return offerings, nil
}

func (r *PostgresOfferingRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM offerings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get offering count: %w", err)
	}
	return count, nil
}

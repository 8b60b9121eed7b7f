package sqlstore

import (
	"context"
	"fmt"
	"time"

	"telecom-chat/internal/domain"
	"telecom-chat/internal/repository"
)

type RevenueRepository struct {
	db *DB
}

func NewRevenueRepository(db *DB) repository.RevenueRepository {
	return &RevenueRepository{db: db}
}

func (r *RevenueRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.db.ddl(createRevenueTableSQLite, createRevenueTablePostgres)); err != nil {
		return fmt.Errorf("create revenue_records table: %w", err)
	}
	return nil
}

func (r *RevenueRepository) CreateBatch(ctx context.Context, records []domain.RevenueRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(`
INSERT INTO revenue_records (file_id, timestamp, region, service_type, amount, currency)
VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare revenue insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.FileID,
			rec.Timestamp.UTC(),
			rec.Region,
			rec.ServiceType,
			rec.Amount,
			rec.Currency,
		); err != nil {
			return fmt.Errorf("insert revenue record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *RevenueRepository) ListByFile(ctx context.Context, fileID int64) ([]domain.RevenueRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`
SELECT id, file_id, timestamp, region, service_type, amount, currency
FROM revenue_records
WHERE file_id = ?
ORDER BY timestamp ASC, id ASC`), fileID)
	if err != nil {
		return nil, fmt.Errorf("query revenue records: %w", err)
	}
	defer rows.Close()

	var records []domain.RevenueRecord
	for rows.Next() {
		var (
			rec domain.RevenueRecord
			ts  time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.FileID, &ts, &rec.Region, &rec.ServiceType, &rec.Amount, &rec.Currency); err != nil {
			return nil, fmt.Errorf("scan revenue record: %w", err)
		}
		rec.Timestamp = ts.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RevenueRepository) Count(ctx context.Context) (int64, error) {
	return r.db.count(ctx, "revenue_records")
}

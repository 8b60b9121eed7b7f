package sqlstore

import (
	"context"
	"fmt"
	"time"

	"telecom-chat/internal/domain"
	"telecom-chat/internal/repository"
)

type CDRRepository struct {
	db *DB
}

func NewCDRRepository(db *DB) repository.CDRRepository {
	return &CDRRepository{db: db}
}

func (r *CDRRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.db.ddl(createCDRTableSQLite, createCDRTablePostgres)); err != nil {
		return fmt.Errorf("create cdr_records table: %w", err)
	}
	return nil
}

func (r *CDRRepository) CreateBatch(ctx context.Context, records []domain.CDRRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(`
INSERT INTO cdr_records (file_id, timestamp, caller_number, receiver_number, duration, call_type, region)
VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare cdr insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.FileID,
			rec.Timestamp.UTC(),
			rec.CallerNumber,
			rec.ReceiverNumber,
			rec.Duration,
			rec.CallType,
			rec.Region,
		); err != nil {
			return fmt.Errorf("insert cdr record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *CDRRepository) ListByFile(ctx context.Context, fileID int64) ([]domain.CDRRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`
SELECT id, file_id, timestamp, caller_number, receiver_number, duration, call_type, region
FROM cdr_records
WHERE file_id = ?
ORDER BY timestamp ASC, id ASC`), fileID)
	if err != nil {
		return nil, fmt.Errorf("query cdr records: %w", err)
	}
	defer rows.Close()

	var records []domain.CDRRecord
	for rows.Next() {
		var (
			rec domain.CDRRecord
			ts  time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.FileID, &ts, &rec.CallerNumber, &rec.ReceiverNumber, &rec.Duration, &rec.CallType, &rec.Region); err != nil {
			return nil, fmt.Errorf("scan cdr record: %w", err)
		}
		rec.Timestamp = ts.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *CDRRepository) Count(ctx context.Context) (int64, error) {
	return r.db.count(ctx, "cdr_records")
}

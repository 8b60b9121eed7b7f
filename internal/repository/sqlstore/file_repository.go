package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"telecom-chat/internal/domain"
	"telecom-chat/internal/repository"
)

type FileRepository struct {
	db *DB
}

func NewFileRepository(db *DB) repository.FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.db.ddl(createFilesTableSQLite, createFilesTablePostgres)); err != nil {
		return fmt.Errorf("create files table: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) (int64, error) {
	if file.UploadDate.IsZero() {
		file.UploadDate = time.Now().UTC()
	}

	const query = `
INSERT INTO files (filename, file_type, upload_date, file_path, metadata)
VALUES (?, ?, ?, ?, ?)`
	args := []any{
		file.Filename,
		string(file.FileType),
		file.UploadDate.UTC(),
		file.FilePath,
		file.Metadata,
	}

	id, err := r.db.insert(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("file %q: %w", file.Filename, repository.ErrAlreadyExists)
		}
		return 0, fmt.Errorf("insert file: %w", err)
	}
	file.ID = id
	return id, nil
}

func (r *FileRepository) Get(ctx context.Context, id int64) (*domain.File, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`
SELECT id, filename, file_type, upload_date, file_path, metadata
FROM files
WHERE id = ?`), id)
	return scanFile(row)
}

func (r *FileRepository) GetByFilename(ctx context.Context, filename string) (*domain.File, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`
SELECT id, filename, file_type, upload_date, file_path, metadata
FROM files
WHERE filename = ?`), filename)
	return scanFile(row)
}

func (r *FileRepository) List(ctx context.Context) ([]domain.File, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, file_type, upload_date, file_path, metadata
FROM files
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []domain.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	return r.db.count(ctx, "files")
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*domain.File, error) {
	var (
		file     domain.File
		fileType string
		uploaded time.Time
	)
	if err := scanner.Scan(&file.ID, &file.Filename, &fileType, &uploaded, &file.FilePath, &file.Metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	file.FileType = domain.FileType(fileType)
	file.UploadDate = uploaded.UTC()
	return &file, nil
}

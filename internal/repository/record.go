package repository

import (
	"context"

	"telecom-chat/internal/domain"
)

// FileRepository persists metadata of uploaded telecom files.
type FileRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, file *domain.File) (int64, error)
	Get(ctx context.Context, id int64) (*domain.File, error)
	GetByFilename(ctx context.Context, filename string) (*domain.File, error)
	List(ctx context.Context) ([]domain.File, error)
	Count(ctx context.Context) (int64, error)
}

// CDRRepository persists call detail records extracted from files.
type CDRRepository interface {
	Init(ctx context.Context) error
	CreateBatch(ctx context.Context, records []domain.CDRRecord) error
	ListByFile(ctx context.Context, fileID int64) ([]domain.CDRRecord, error)
	Count(ctx context.Context) (int64, error)
}

// RevenueRepository persists revenue entries extracted from files.
type RevenueRepository interface {
	Init(ctx context.Context) error
	CreateBatch(ctx context.Context, records []domain.RevenueRecord) error
	ListByFile(ctx context.Context, fileID int64) ([]domain.RevenueRecord, error)
	Count(ctx context.Context) (int64, error)
}

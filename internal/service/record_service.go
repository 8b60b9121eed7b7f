package service

import (
	"context"
	"fmt"

	"telecom-chat/internal/domain"
	"telecom-chat/internal/repository"
)

// RecordService groups the telecom record tables.
type RecordService interface {
	Init(ctx context.Context) error
	Counts(ctx context.Context) (domain.RecordCounts, error)
}

type recordService struct {
	files   repository.FileRepository
	cdrs    repository.CDRRepository
	revenue repository.RevenueRepository
}

func NewRecordService(files repository.FileRepository, cdrs repository.CDRRepository, revenue repository.RevenueRepository) RecordService {
	return &recordService{
		files:   files,
		cdrs:    cdrs,
		revenue: revenue,
	}
}

// Init creates the tables if they do not exist. files goes first because
// the record tables reference it.
func (s *recordService) Init(ctx context.Context) error {
	if err := s.files.Init(ctx); err != nil {
		return fmt.Errorf("init file repository: %w", err)
	}
	if err := s.cdrs.Init(ctx); err != nil {
		return fmt.Errorf("init cdr repository: %w", err)
	}
	if err := s.revenue.Init(ctx); err != nil {
		return fmt.Errorf("init revenue repository: %w", err)
	}
	return nil
}

func (s *recordService) Counts(ctx context.Context) (domain.RecordCounts, error) {
	var (
		counts domain.RecordCounts
		err    error
	)
	if counts.Files, err = s.files.Count(ctx); err != nil {
		return domain.RecordCounts{}, err
	}
	if counts.CDRRecords, err = s.cdrs.Count(ctx); err != nil {
		return domain.RecordCounts{}, err
	}
	if counts.RevenueRecords, err = s.revenue.Count(ctx); err != nil {
		return domain.RecordCounts{}, err
	}
	return counts, nil
}

package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/model"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type TenderListStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tender, error)
	List(ctx context.Context, limit, offset int) ([]model.Tender, error)
}

// TenderService serves stored tenders to the API.
type TenderService struct {
	tenders TenderListStore
}

func NewTenderService(tenders TenderListStore) *TenderService {
	return &TenderService{tenders: tenders}
}

func (s *TenderService) Get(ctx context.Context, id uuid.UUID) (*model.Tender, error) {
	return s.tenders.GetByID(ctx, id)
}

func (s *TenderService) List(ctx context.Context, limit, offset int) ([]model.Tender, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.tenders.List(ctx, limit, offset)
}

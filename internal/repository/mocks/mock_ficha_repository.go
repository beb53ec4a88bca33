package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fichasapi/internal/model"
	"fichasapi/internal/repository"
)

type MockFichaRepository struct {
	mock.Mock
}

func (m *MockFichaRepository) CreateWithImages(ctx context.Context, f *model.Ficha, imagePaths []string, genQR repository.QRFunc) (*model.Ficha, error) {
	args := m.Called(ctx, f, imagePaths, genQR)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ficha), args.Error(1)
}

func (m *MockFichaRepository) FindByID(ctx context.Context, id int64) (*model.Ficha, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ficha), args.Error(1)
}

func (m *MockFichaRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.FichaSummary], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.FichaSummary]), args.Error(1)
}

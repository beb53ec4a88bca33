package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fichasapi/internal/model"
	"fichasapi/internal/service"
)

type MockFichaService struct {
	mock.Mock
}

func (m *MockFichaService) Create(ctx context.Context, in *service.CreateFichaInput, images []service.ImageUpload) (*model.Ficha, error) {
	args := m.Called(ctx, in, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ficha), args.Error(1)
}

func (m *MockFichaService) Get(ctx context.Context, id int64) (*model.Ficha, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Ficha), args.Error(1)
}

func (m *MockFichaService) List(ctx context.Context, page, limit int) (*service.FichaListResult, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FichaListResult), args.Error(1)
}

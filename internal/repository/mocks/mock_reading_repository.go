package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bptracker/internal/model"
	"bptracker/internal/repository"
)

type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) Create(ctx context.Context, r *model.Reading) (*model.Reading, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reading), args.Error(1)
}

func (m *MockReadingRepository) FindByID(ctx context.Context, id int64) (*model.Reading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reading), args.Error(1)
}

func (m *MockReadingRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Reading], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Reading]), args.Error(1)
}

func (m *MockReadingRepository) FindAll(ctx context.Context) ([]model.Reading, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reading), args.Error(1)
}

func (m *MockReadingRepository) Update(ctx context.Context, r *model.Reading) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReadingRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

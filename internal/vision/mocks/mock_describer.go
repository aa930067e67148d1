package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockDescriber struct {
	mock.Mock
}

func (m *MockDescriber) Describe(ctx context.Context, image []byte, filename string) (string, error) {
	args := m.Called(ctx, image, filename)
	return args.String(0), args.Error(1)
}

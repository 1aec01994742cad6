package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) ListKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if keys, ok := args.Get(0).([]string); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

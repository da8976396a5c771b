package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPageSource is a mock implementation of port.PageSource.
type MockPageSource struct {
	mock.Mock
}

func (m *MockPageSource) ExtractPageTexts(ctx context.Context, pdf []byte) ([]string, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPageSource) PageCount(pdf []byte) (int, error) {
	args := m.Called(pdf)
	return args.Int(0), args.Error(1)
}

func (m *MockPageSource) ExtractPages(ctx context.Context, master []byte, pages []int) ([]byte, error) {
	args := m.Called(ctx, master, pages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

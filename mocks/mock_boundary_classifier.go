package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docslice/internal/domain"
	"docslice/internal/port"
)

// MockBoundaryClassifier is a mock implementation of port.BoundaryClassifier.
type MockBoundaryClassifier struct {
	mock.Mock
}

func (m *MockBoundaryClassifier) ProposeBoundaries(ctx context.Context, input port.ClassifyInput) ([]domain.BoundaryProposal, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BoundaryProposal), args.Error(1)
}

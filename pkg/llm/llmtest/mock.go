// Package llmtest provides a testify mock of the llm.Client contract for
// pipeline tests.
package llmtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
)

// MockClient is a testify mock implementing llm.Client.
type MockClient struct {
	mock.Mock
}

// NewMockClient creates a mock whose expectations are asserted on cleanup.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockClient) ExtractGrounded(ctx context.Context, req llm.ExtractRequest) ([]llm.RawItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]llm.RawItem), args.Error(1)
}

func (m *MockClient) GenerateJSON(ctx context.Context, req llm.GenerateRequest) ([]llm.RawItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]llm.RawItem), args.Error(1)
}

func (m *MockClient) ModelName() string {
	args := m.Called()
	return args.String(0)
}

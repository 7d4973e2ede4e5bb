package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/model"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/service"
	"github.com/DeepDarkBoy48/smashenglish-assistant/internal/surface"
)

// MockAssistantService is a testify mock for interfaces.AssistantService.
type MockAssistantService struct {
	mock.Mock
}

// NewMockAssistantService creates the mock and wires expectation checking
// into the test's cleanup phase.
func NewMockAssistantService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAssistantService {
	m := &MockAssistantService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAssistantService) SendMessage(ctx context.Context, content string) string {
	args := m.Called(ctx, content)
	return args.String(0)
}

func (m *MockAssistantService) AnalyzeSentence(ctx context.Context, sentence string) string {
	args := m.Called(ctx, sentence)
	return args.String(0)
}

func (m *MockAssistantService) QuickLookup(ctx context.Context, word, wordContext, sourceURL string) string {
	args := m.Called(ctx, word, wordContext, sourceURL)
	return args.String(0)
}

func (m *MockAssistantService) SetSurface(s surface.Surface) {
	m.Called(s)
}

func (m *MockAssistantService) SetArtifact(s surface.Surface, artifact string) {
	m.Called(s, artifact)
}

func (m *MockAssistantService) SelectThread(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockAssistantService) Session() service.SessionState {
	args := m.Called()
	return args.Get(0).(service.SessionState)
}

func (m *MockAssistantService) Threads() []*model.Thread {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*model.Thread)
}

func (m *MockAssistantService) Thread(id string) (*model.Thread, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Thread), args.Error(1)
}

func (m *MockAssistantService) Subscribe() (<-chan struct{}, func()) {
	args := m.Called()
	return args.Get(0).(<-chan struct{}), args.Get(1).(func())
}

package chathub_test

import (
	"context"

	"linku/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockChatService is a testify mock of chathub.ChatService.
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) SendText(ctx context.Context, senderUID, roomID, receiverUID uint, content string) (*models.MessageView, error) {
	args := m.Called(ctx, senderUID, roomID, receiverUID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageView), args.Error(1)
}

func (m *MockChatService) EnsureParticipant(ctx context.Context, uid, roomID uint) error {
	args := m.Called(ctx, uid, roomID)
	return args.Error(0)
}

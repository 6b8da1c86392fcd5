package chathub

import (
	"context"

	"linku/backend/internal/models"
)

// Client is one live connection bound to an authenticated user.
type Client interface {
	// GetUID returns the user every inbound event of this client is attributed to.
	GetUID() uint
	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the connection down and drops its subscriptions.
	Close()
}

// ChatService is the part of the chat core a streaming session drives.
type ChatService interface {
	SendText(ctx context.Context, senderUID, roomID, receiverUID uint, content string) (*models.MessageView, error)
	EnsureParticipant(ctx context.Context, uid, roomID uint) error
}

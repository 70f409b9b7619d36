package notify

import (
	"context"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
)

// Provider defines the interface for notification providers.
// This allows easy extension to support other providers (e.g., Telegram, ntfy, etc.)
type Provider interface {
	// Name returns the provider's identifier.
	Name() string

	// IsConfigured returns true if the provider has valid configuration.
	IsConfigured() bool

	// Connect establishes connection to the notification service.
	Connect(ctx context.Context) error

	// Disconnect closes the connection.
	Disconnect() error

	// IsConnected reports whether the provider can deliver right now.
	IsConnected() bool

	// Send delivers a notification.
	Send(ctx context.Context, notification alerts.Notification) error
}

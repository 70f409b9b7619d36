package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
	"github.com/jinjinmory/wuwa-tracker-go/internal/config"
)

// Manager owns the configured provider and implements alerts.Notifier.
// CanNotify is the daemon's analog of "notification permission is currently
// grantable": the provider must be enabled, configured, and connected.
type Manager struct {
	cfg      config.DiscordSettings
	provider Provider

	mu sync.RWMutex
}

func NewManager(cfg config.DiscordSettings) *Manager {
	m := &Manager{cfg: cfg}
	if cfg.Enabled {
		m.provider = NewDiscordProvider(cfg.BotToken, cfg.GuildID, cfg.ChannelID)
	}
	return m
}

// Start connects the provider. A failed connect is logged, not fatal: the
// engine defers alerts until delivery becomes possible.
func (m *Manager) Start(ctx context.Context) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		slog.Info("Notifications disabled")
		return
	}
	if !provider.IsConfigured() {
		slog.Warn("Notification provider enabled but not configured", "provider", provider.Name())
		return
	}
	if err := provider.Connect(ctx); err != nil {
		slog.Error("Failed to connect notification provider", "provider", provider.Name(), "error", err)
	}
}

func (m *Manager) Stop() {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return
	}
	if err := provider.Disconnect(); err != nil {
		slog.Error("Failed to disconnect notification provider", "provider", provider.Name(), "error", err)
	}
}

// CanNotify reports whether a notification emitted right now would be
// delivered.
func (m *Manager) CanNotify() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Enabled && m.provider != nil && m.provider.IsConnected()
}

// Notify delivers one alert. Delivery failures are logged; the caller has
// already recorded the alert as fired, which matches the best-effort
// contract.
func (m *Manager) Notify(n alerts.Notification) {
	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	if provider == nil {
		return
	}
	if err := provider.Send(context.Background(), n); err != nil {
		slog.Error("Failed to send notification", "id", n.ID, "error", err)
	}
}

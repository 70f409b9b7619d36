package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
)

// ColorAlert is the embed accent for resource alerts.
const ColorAlert = 0xB39DDB

// DiscordProvider implements the Provider interface for Discord notifications.
type DiscordProvider struct {
	botToken  string
	guildID   string
	channelID string
	session   *discordgo.Session

	mu sync.RWMutex
}

// NewDiscordProvider creates a new Discord notification provider.
func NewDiscordProvider(botToken, guildID, channelID string) *DiscordProvider {
	return &DiscordProvider{
		botToken:  botToken,
		guildID:   guildID,
		channelID: channelID,
	}
}

// Name returns the provider's identifier.
func (d *DiscordProvider) Name() string {
	return "discord"
}

// IsConfigured returns true if the provider has valid configuration.
func (d *DiscordProvider) IsConfigured() bool {
	return d.botToken != "" && d.channelID != ""
}

// Connect establishes connection to Discord.
func (d *DiscordProvider) Connect(ctx context.Context) error {
	if !d.IsConfigured() {
		return fmt.Errorf("discord not configured: missing bot token or channel ID")
	}

	session, err := discordgo.New("Bot " + d.botToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	d.mu.Lock()
	d.session = session
	d.mu.Unlock()

	slog.Info("Discord notification provider connected", "guildID", d.guildID)
	return nil
}

// Disconnect closes the Discord connection.
func (d *DiscordProvider) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		if err := d.session.Close(); err != nil {
			return err
		}
		d.session = nil
	}
	return nil
}

// IsConnected reports whether a session is open.
func (d *DiscordProvider) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session != nil
}

// Send posts the notification as an embed. The deterministic alert identity
// goes in the footer so collapsed or replayed alerts stay traceable.
func (d *DiscordProvider) Send(ctx context.Context, notification alerts.Notification) error {
	d.mu.RLock()
	session := d.session
	d.mu.RUnlock()

	if session == nil {
		return fmt.Errorf("discord not connected")
	}

	embed := &discordgo.MessageEmbed{
		Title:       notification.Title,
		Description: notification.Message,
		Color:       ColorAlert,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("alert #%d", notification.ID),
		},
	}

	_, err := session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	return nil
}

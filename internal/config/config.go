package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	DataDir  string          `json:"dataDir"`
	Endpoint string          `json:"endpoint"`
	Refresh  RefreshSettings `json:"refresh"`
	Discord  DiscordSettings `json:"discord"`
	Web      WebSettings     `json:"web"`
	Logger   LoggerSettings  `json:"logger"`
}

type RefreshSettings struct {
	SlotMinutes    int `json:"slotMinutes"`
	RequestTimeout int `json:"requestTimeout"`
	MaxAttempts    int `json:"maxAttempts"`
	RetryDelayMs   int `json:"retryDelayMs"`
}

type DiscordSettings struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"botToken"`
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
}

type WebSettings struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type LoggerSettings struct {
	Save         bool   `json:"save"`
	ConsoleLevel string `json:"consoleLevel"`
	FileLevel    string `json:"fileLevel"`
	AutoClear    bool   `json:"autoClear"`
}

func DefaultConfig() Config {
	return Config{
		DataDir:  "data",
		Endpoint: "https://wuwatracker.kurobbs.workers.dev/game/queryRole",
		Refresh:  DefaultRefreshSettings(),
		Web:      DefaultWebSettings(),
		Logger:   DefaultLoggerSettings(),
	}
}

func DefaultRefreshSettings() RefreshSettings {
	return RefreshSettings{
		SlotMinutes:    6,
		RequestTimeout: 30,
		MaxAttempts:    3,
		RetryDelayMs:   700,
	}
}

func DefaultWebSettings() WebSettings {
	return WebSettings{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    5810,
	}
}

func DefaultLoggerSettings() LoggerSettings {
	return LoggerSettings{
		Save:         true,
		ConsoleLevel: "INFO",
		FileLevel:    "DEBUG",
		AutoClear:    true,
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	validateConfig(&config)
	return &config, nil
}

func SaveConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func validateConfig(config *Config) {
	if config.DataDir == "" {
		config.DataDir = "data"
	}

	if config.Refresh.SlotMinutes < 1 {
		config.Refresh.SlotMinutes = 1
	} else if config.Refresh.SlotMinutes > 60 {
		config.Refresh.SlotMinutes = 60
	}

	if config.Refresh.RequestTimeout < 5 {
		config.Refresh.RequestTimeout = 5
	} else if config.Refresh.RequestTimeout > 120 {
		config.Refresh.RequestTimeout = 120
	}

	if config.Refresh.MaxAttempts < 1 {
		config.Refresh.MaxAttempts = 1
	} else if config.Refresh.MaxAttempts > 5 {
		config.Refresh.MaxAttempts = 5
	}

	if config.Refresh.RetryDelayMs < 100 {
		config.Refresh.RetryDelayMs = 100
	} else if config.Refresh.RetryDelayMs > 5000 {
		config.Refresh.RetryDelayMs = 5000
	}

	if config.Web.Port <= 0 || config.Web.Port > 65535 {
		config.Web.Port = 5810
	}
	if config.Web.Host == "" {
		config.Web.Host = "127.0.0.1"
	}
}

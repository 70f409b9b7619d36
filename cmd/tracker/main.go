package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/jinjinmory/wuwa-tracker-go/internal/config"
	"github.com/jinjinmory/wuwa-tracker-go/internal/logger"
	"github.com/jinjinmory/wuwa-tracker-go/internal/tracker"
	"github.com/jinjinmory/wuwa-tracker-go/internal/version"
)

var (
	configFile = flag.String("config", "config.json", "Path to configuration file")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	genConfig  = flag.Bool("generate-config", false, "Generate a sample configuration file")
)

func main() {
	flag.Parse()

	// Secrets such as the Discord bot token can live in a .env file next to
	// the binary instead of the config file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		setupBasicLogger(*debug)
		slog.Warn("Failed to load .env file", "error", err)
	}

	if *genConfig {
		setupBasicLogger(*debug)
		generateSampleConfig()
		return
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		setupBasicLogger(*debug)
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		cfg.Discord.BotToken = token
	}

	logSettings := cfg.Logger
	if *debug {
		logSettings.ConsoleLevel = "DEBUG"
		logSettings.FileLevel = "DEBUG"
	}

	log, err := logger.Setup(cfg.DataDir, logSettings)
	if err != nil {
		setupBasicLogger(*debug)
		slog.Error("Failed to setup logger", "error", err)
		os.Exit(1)
	}
	defer log.Close()

	slog.Info("Wuwa Tracker", "version", version.Version)

	t := tracker.New(cfg)
	if err := t.Run(); err != nil {
		slog.Error("Tracker error", "error", err)
		os.Exit(1)
	}
}

func setupBasicLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s. Run with -generate-config to create a sample", path)
		}
		return nil, err
	}
	return cfg, nil
}

func generateSampleConfig() {
	cfg := config.DefaultConfig()
	cfg.Discord = config.DiscordSettings{
		Enabled:   true,
		BotToken:  "your_bot_token_or_set_DISCORD_BOT_TOKEN",
		GuildID:   "your_guild_id",
		ChannelID: "channel_for_alerts",
	}

	if err := config.SaveConfig("config.sample.json", &cfg); err != nil {
		slog.Error("Failed to save sample configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Sample configuration generated", "path", "config.sample.json")
	fmt.Println("\nSample configuration saved to config.sample.json")
	fmt.Println("Rename it to config.json and update with your settings")
}

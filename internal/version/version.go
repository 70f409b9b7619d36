package version

// Version is set at build time via -ldflags "-X github.com/jinjinmory/wuwa-tracker-go/internal/version.Version=..."
var Version = "dev"

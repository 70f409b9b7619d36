package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
	"github.com/jinjinmory/wuwa-tracker-go/internal/config"
	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
	"github.com/jinjinmory/wuwa-tracker-go/internal/profile"
	"github.com/jinjinmory/wuwa-tracker-go/internal/snapshot"
)

// Deps are the collaborators the web surface reads from and triggers. It is
// a pure consumer: all state lives in the stores, all side effects go
// through the injected callbacks.
type Deps struct {
	Profiles  *profile.Store
	Snapshots *snapshot.Store
	Alerts    *alerts.Store

	// RunCycle triggers a foreground fetch-and-evaluate pass.
	RunCycle func(ctx context.Context) error

	// RescheduleDaily re-arms the reminder after its config changes.
	RescheduleDaily func()

	SlotMinutes int
}

type Server struct {
	host        string
	port        int
	deps        Deps
	broadcaster *SnapshotBroadcaster
	server      *http.Server
}

func NewServer(settings config.WebSettings, deps Deps) *Server {
	return &Server{
		host:        settings.Host,
		port:        settings.Port,
		deps:        deps,
		broadcaster: NewSnapshotBroadcaster(),
	}
}

func (s *Server) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/snapshot", s.handleGetSnapshot)
	mux.HandleFunc("GET /api/snapshot/raw", s.handleGetRawPayload)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	mux.HandleFunc("PUT /api/profiles/{id}", s.handleUpdateProfile)
	mux.HandleFunc("DELETE /api/profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("PUT /api/profiles/active", s.handleSetActiveProfile)

	mux.HandleFunc("GET /api/alerts/{resource}/thresholds", s.handleGetThresholds)
	mux.HandleFunc("PUT /api/alerts/{resource}/thresholds", s.handleSetThresholds)

	mux.HandleFunc("GET /api/reminder", s.handleGetReminder)
	mux.HandleFunc("PUT /api/reminder", s.handleSetReminder)

	mux.HandleFunc("GET /api/advisory", s.handleGetAdvisory)
	mux.HandleFunc("POST /api/advisory/ack", s.handleAckAdvisory)

	mux.HandleFunc("GET /ws", s.handleWidgetFeed)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
	}

	go func() {
		slog.Info("Web surface listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Web server error", "error", err)
		}
	}()
}

func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Error("Web server shutdown error", "error", err)
	}
}

// PublishSnapshot pushes a fresh snapshot to the widget feed. Called by the
// tracker after every successful cycle.
func (s *Server) PublishSnapshot(profileID string, snap *kuro.Snapshot) {
	s.broadcaster.Publish(newWidgetView(profileID, snap))
}

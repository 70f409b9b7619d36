package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/jinjinmory/wuwa-tracker-go/internal/alerts"
	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
	"github.com/jinjinmory/wuwa-tracker-go/internal/profile"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) activeProfileID(w http.ResponseWriter) (string, bool) {
	id, err := s.deps.Profiles.EnsureActiveProfileID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve active profile")
		return "", false
	}
	return id, true
}

// --- snapshot ---

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activeProfileID(w)
	if !ok {
		return
	}

	snap, err := s.deps.Snapshots.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read snapshot cache")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot cached yet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile":   snap.Profile,
		"fetchedAt": snap.FetchedAt,
		"widget":    newWidgetView(id, snap),
	})
}

func (s *Server) handleGetRawPayload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.activeProfileID(w)
	if !ok {
		return
	}

	snap, err := s.deps.Snapshots.Get(id)
	if err != nil || snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot cached yet")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(snap.RawPayload))
}

// handleRefresh is the foreground trigger: it runs the same cycle the
// background wake does and reports the outcome as a retryable error state.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := s.deps.RunCycle(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if errors.Is(err, kuro.ErrMissingCredentials) {
		writeError(w, http.StatusConflict, "configure your profile")
		return
	}

	var upstream *kuro.UpstreamError
	if errors.As(err, &upstream) {
		writeError(w, http.StatusBadGateway, upstream.Message)
		return
	}
	var malformed *kuro.MalformedResponseError
	if errors.As(err, &malformed) {
		writeError(w, http.StatusBadGateway, malformed.Error())
		return
	}
	writeError(w, http.StatusBadGateway, "fetch failed, try again")
}

// --- profiles ---

type profileRequest struct {
	UID     string `json:"uid"`
	Region  string `json:"region"`
	AuthKey string `json:"authKey,omitempty"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.deps.Profiles.ListProfiles()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	active, err := s.deps.Profiles.ActiveProfileID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read active profile")
		return
	}
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"activeId": active,
	})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Region != "" && !profile.IsValidRegion(req.Region) {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}

	p := profile.Profile{
		ID:     profile.NewProfileID(),
		UID:    strings.TrimSpace(req.UID),
		Region: req.Region,
	}
	if err := s.deps.Profiles.UpsertProfile(p); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	if req.AuthKey != "" {
		if err := s.deps.Profiles.SaveCredential(p.ID, strings.TrimSpace(req.AuthKey)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save credential")
			return
		}
	}
	if _, err := s.deps.Profiles.EnsureActiveProfileID(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to assign active profile")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Region != "" && !profile.IsValidRegion(req.Region) {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}

	p := profile.Profile{
		ID:     id,
		UID:    strings.TrimSpace(req.UID),
		Region: req.Region,
	}
	if err := s.deps.Profiles.UpsertProfile(p); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	if req.AuthKey != "" {
		if err := s.deps.Profiles.SaveCredential(id, strings.TrimSpace(req.AuthKey)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save credential")
			return
		}
	}

	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Profiles.RemoveProfile(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to remove profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetActiveProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.deps.Profiles.SetActiveProfileID(req.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set active profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- alerts ---

func (s *Server) resource(w http.ResponseWriter, r *http.Request) (alerts.Resource, bool) {
	resource, ok := alerts.ParseResource(r.PathValue("resource"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown resource")
		return 0, false
	}
	return resource, true
}

func (s *Server) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	resource, ok := s.resource(w, r)
	if !ok {
		return
	}
	id, ok := s.activeProfileID(w)
	if !ok {
		return
	}

	thresholds, err := s.deps.Alerts.Thresholds(id, resource)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read thresholds")
		return
	}
	if thresholds == nil {
		thresholds = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource":   resource.Key(),
		"maxInput":   resource.MaxInput(),
		"thresholds": thresholds,
	})
}

func (s *Server) handleSetThresholds(w http.ResponseWriter, r *http.Request) {
	resource, ok := s.resource(w, r)
	if !ok {
		return
	}
	id, ok := s.activeProfileID(w)
	if !ok {
		return
	}

	var req struct {
		Thresholds []int `json:"thresholds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.deps.Alerts.SetThresholds(id, resource, req.Thresholds); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save thresholds")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- reminder ---

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Alerts.Reminder()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read reminder config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSetReminder(w http.ResponseWriter, r *http.Request) {
	var cfg alerts.ReminderConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cfg.Enabled && !cfg.Valid() {
		writeError(w, http.StatusBadRequest, "invalid reminder time")
		return
	}
	if err := s.deps.Alerts.SetReminder(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save reminder config")
		return
	}
	s.deps.RescheduleDaily()
	w.WriteHeader(http.StatusNoContent)
}

// --- advisory ---

func (s *Server) handleGetAdvisory(w http.ResponseWriter, r *http.Request) {
	acked, err := s.deps.Profiles.AdvisoryAcknowledged()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read advisory state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": acked})
}

func (s *Server) handleAckAdvisory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Profiles.MarkAdvisoryAcknowledged(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save advisory state")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- widget feed ---

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWidgetFeed streams widget views to a connected widget. Each new
// snapshot is one JSON message; the latest view is replayed on connect.
func (s *Server) handleWidgetFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Widget feed upgrade failed", "error", err)
		return
	}

	ch := s.broadcaster.Subscribe()
	defer func() {
		s.broadcaster.Unsubscribe(ch)
		conn.Close()
	}()

	// Reader goroutine: widgets never send data, but the read pump is what
	// notices the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case view, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(view); err != nil {
				slog.Debug("Widget feed write failed", "error", err)
				return
			}
		}
	}
}

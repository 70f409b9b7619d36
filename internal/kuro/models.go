package kuro

import (
	"bytes"
	"encoding/json"
	"time"
)

// Profile holds the resource readings parsed out of one queryRole payload.
type Profile struct {
	Name                  string `json:"name"`
	UID                   string `json:"uid"`
	ResonanceLevel        int    `json:"resonanceLevel"`
	WaveplatesCurrent     int    `json:"waveplatesCurrent"`
	WaveplatesMax         int    `json:"waveplatesMax"`
	Wavesubstance         int    `json:"wavesubstance"`
	ActivityPointsCurrent int    `json:"activityPointsCurrent"`
	ActivityPointsMax     int    `json:"activityPointsMax"`
	PodcastCurrent        int    `json:"podcastCurrent"`
	PodcastMax            int    `json:"podcastMax"`
}

// Snapshot is the result of one successful fetch. The raw payload is kept
// verbatim for the "view raw" surface.
type Snapshot struct {
	Profile    Profile   `json:"profile"`
	RawPayload string    `json:"rawPayload"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

type profileRequest struct {
	OAuthCode string `json:"oauthCode"`
	PlayerID  string `json:"playerId"`
	Region    string `json:"region"`
}

type queryRoleResponse struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (r *queryRoleResponse) displayMessage() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Msg
}

// payloadShape tags the envelope's data field. The upstream wraps the payload
// string in one of three shapes depending on deployment; the shape is resolved
// once per response and then decoded accordingly.
type payloadShape int

const (
	shapeNone payloadShape = iota
	shapeString
	shapeArray
	shapeObject
)

func resolveShape(raw json.RawMessage) payloadShape {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return shapeNone
	}
	switch trimmed[0] {
	case '"':
		return shapeString
	case '[':
		return shapeArray
	case '{':
		return shapeObject
	default:
		return shapeNone
	}
}

// extractPayload pulls the embedded payload string out of the envelope's data
// field: a bare string, the first element of an array, or the first value of
// an object.
func extractPayload(raw json.RawMessage) string {
	switch resolveShape(raw) {
	case shapeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case shapeArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
			return ""
		}
		var s string
		if err := json.Unmarshal(items[0], &s); err != nil {
			return ""
		}
		return s
	case shapeObject:
		return firstObjectValue(raw)
	default:
		return ""
	}
}

// firstObjectValue streams the object so the first key in document order wins;
// unmarshalling into a map would lose the ordering.
func firstObjectValue(raw json.RawMessage) string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return ""
	}
	if !dec.More() {
		return ""
	}
	if _, err := dec.Token(); err != nil {
		return ""
	}
	var s string
	if err := dec.Decode(&s); err != nil {
		return ""
	}
	return s
}

type queryRolePayload struct {
	BattlePass *battlePassBlock `json:"BattlePass"`
	Base       *baseBlock       `json:"Base"`
}

type battlePassBlock struct {
	WeekExp    *int `json:"WeekExp"`
	WeekMaxExp *int `json:"WeekMaxExp"`
}

type baseBlock struct {
	Name             *string `json:"Name"`
	ID               *string `json:"Id"`
	Level            *int    `json:"Level"`
	Energy           *int    `json:"Energy"`
	MaxEnergy        *int    `json:"MaxEnergy"`
	StoreEnergy      *int    `json:"StoreEnergy"`
	Liveness         *int    `json:"Liveness"`
	LivenessMaxCount *int    `json:"LivenessMaxCount"`
}

// toProfile validates the identity block and maps the payload onto a Profile.
// Numeric fields default to zero when absent; Name and Id are required.
func (p *queryRolePayload) toProfile() (Profile, bool) {
	if p.Base == nil || p.Base.Name == nil || p.Base.ID == nil {
		return Profile{}, false
	}

	level := intOrZero(p.Base.Level)
	resonance := level - 1
	if resonance < 0 {
		resonance = 0
	}

	profile := Profile{
		Name:                  *p.Base.Name,
		UID:                   *p.Base.ID,
		ResonanceLevel:        resonance,
		WaveplatesCurrent:     intOrZero(p.Base.Energy),
		WaveplatesMax:         intOrZero(p.Base.MaxEnergy),
		Wavesubstance:         intOrZero(p.Base.StoreEnergy),
		ActivityPointsCurrent: intOrZero(p.Base.Liveness),
		ActivityPointsMax:     intOrZero(p.Base.LivenessMaxCount),
	}
	if p.BattlePass != nil {
		profile.PodcastCurrent = intOrZero(p.BattlePass.WeekExp)
		profile.PodcastMax = intOrZero(p.BattlePass.WeekMaxExp)
	}
	return profile, true
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

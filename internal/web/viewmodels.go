package web

import (
	"time"

	"github.com/jinjinmory/wuwa-tracker-go/internal/kuro"
)

// minutesPerWaveplate is the regeneration rate the widget time estimates
// assume.
const minutesPerWaveplate = 6

type ResourceView struct {
	Current int `json:"current"`
	Max     int `json:"max,omitempty"`
}

// WidgetView is the payload pushed to widgets: the parsed readings plus the
// time-to-full estimate the home-screen widget renders.
type WidgetView struct {
	ProfileID      string       `json:"profileId"`
	Name           string       `json:"name"`
	UID            string       `json:"uid"`
	ResonanceLevel int          `json:"resonanceLevel"`
	Waveplates     ResourceView `json:"waveplates"`
	Wavesubstance  ResourceView `json:"wavesubstance"`
	ActivityPoints ResourceView `json:"activityPoints"`
	Podcast        ResourceView `json:"podcast"`
	MinutesToFull  int          `json:"minutesToFull"`
	FullAt         *time.Time   `json:"fullAt,omitempty"`
	FetchedAt      time.Time    `json:"fetchedAt"`
}

func newWidgetView(profileID string, snap *kuro.Snapshot) WidgetView {
	p := snap.Profile

	max := p.WaveplatesMax
	if max <= 0 {
		max = 240
	}
	minutesToFull := 0
	if p.WaveplatesCurrent < max {
		minutesToFull = (max - p.WaveplatesCurrent) * minutesPerWaveplate
	}

	view := WidgetView{
		ProfileID:      profileID,
		Name:           p.Name,
		UID:            p.UID,
		ResonanceLevel: p.ResonanceLevel,
		Waveplates:     ResourceView{Current: p.WaveplatesCurrent, Max: max},
		Wavesubstance:  ResourceView{Current: p.Wavesubstance},
		ActivityPoints: ResourceView{Current: p.ActivityPointsCurrent, Max: p.ActivityPointsMax},
		Podcast:        ResourceView{Current: p.PodcastCurrent, Max: p.PodcastMax},
		MinutesToFull:  minutesToFull,
		FetchedAt:      snap.FetchedAt,
	}
	if minutesToFull > 0 {
		fullAt := snap.FetchedAt.Add(time.Duration(minutesToFull) * time.Minute)
		view.FullAt = &fullAt
	}
	return view
}

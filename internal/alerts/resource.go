package alerts

import "github.com/jinjinmory/wuwa-tracker-go/internal/kuro"

// Resource enumerates the trackable quantities. The ordinal feeds the
// notification identity scheme, so the order here is part of the stored
// contract and must not be reshuffled.
type Resource int

const (
	Waveplates Resource = iota
	Wavesubstance
	ActivityPoints
	Podcast
)

// WaveplateCapacity is the level at which the full-capacity latch fires.
const WaveplateCapacity = 240

func Resources() []Resource {
	return []Resource{Waveplates, Wavesubstance, ActivityPoints, Podcast}
}

func (r Resource) Key() string {
	switch r {
	case Waveplates:
		return "waveplates"
	case Wavesubstance:
		return "wavesubstance"
	case ActivityPoints:
		return "activity_points"
	case Podcast:
		return "podcast"
	default:
		return ""
	}
}

func (r Resource) Title() string {
	switch r {
	case Waveplates:
		return "Waveplates"
	case Wavesubstance:
		return "Wavesubstance"
	case ActivityPoints:
		return "Activity Points"
	case Podcast:
		return "Pioneer Podcast"
	default:
		return ""
	}
}

// MaxInput bounds user-supplied thresholds for this resource.
func (r Resource) MaxInput() int {
	switch r {
	case Waveplates, ActivityPoints:
		return 240
	default:
		return 999
	}
}

func (r Resource) CurrentValue(p kuro.Profile) int {
	switch r {
	case Waveplates:
		return p.WaveplatesCurrent
	case Wavesubstance:
		return p.Wavesubstance
	case ActivityPoints:
		return p.ActivityPointsCurrent
	case Podcast:
		return p.PodcastCurrent
	default:
		return 0
	}
}

// MaxValue returns the profile-reported maximum, when the resource has one.
func (r Resource) MaxValue(p kuro.Profile) (int, bool) {
	switch r {
	case Waveplates:
		return p.WaveplatesMax, true
	case ActivityPoints:
		return p.ActivityPointsMax, true
	case Podcast:
		return p.PodcastMax, true
	default:
		return 0, false
	}
}

func ParseResource(key string) (Resource, bool) {
	for _, r := range Resources() {
		if r.Key() == key {
			return r, true
		}
	}
	return 0, false
}

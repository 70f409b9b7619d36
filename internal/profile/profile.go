package profile

import "github.com/google/uuid"

// Profile is one tracked game account. The credential lives in the encrypted
// credential table, never on this record.
type Profile struct {
	ID     string `json:"id"`
	UID    string `json:"uid"`
	Region string `json:"region"`
}

// NewProfileID generates the opaque stable identifier assigned once at
// creation time.
func NewProfileID() string {
	return uuid.NewString()
}

// Regions the upstream accepts.
var Regions = []string{"Asia", "America", "Europe", "HMT", "SEA"}

func IsValidRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}

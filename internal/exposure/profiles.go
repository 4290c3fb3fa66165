// Package exposure provides per-route open-water exposure profiles used by
// the risk scoring engine. Each route carries a shelter signature: for each
// of the 16 compass wind-from directions, the fraction of the route line that
// is open water (1.0 = fully open, 0.0 = fully sheltered) and the median
// open-fetch distance before the first land intersection, capped at 30 km.
//
// Signatures are computed offline from coastline geometry and shipped as an
// embedded JSON asset; the package exposes read-only lookups.
package exposure

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
)

// MaxFetchKm is the ray cap used when the signatures were computed. Fetch
// values never exceed it; scoring normalizes against it.
const MaxFetchKm = 30.0

// compassPoints lists the 16 wind-from directions in bucket order starting
// at north. Bucket i covers degrees [i*22.5 - 11.25, i*22.5 + 11.25).
var compassPoints = []string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// WindThresholds are the route-specific sustained wind thresholds (mph).
// Caution is where wind starts contributing to risk; High is where the
// operator has historically started holding or canceling sailings.
type WindThresholds struct {
	CautionMph float64 `json:"caution_mph"`
	HighMph    float64 `json:"high_mph"`
}

// RouteProfile is the exposure signature for one directed route.
type RouteProfile struct {
	RouteID                   string             `json:"route_id"`
	OriginPort                string             `json:"origin_port"`
	DestinationPort           string             `json:"destination_port"`
	ShelterRatioByDir         map[string]float64 `json:"shelter_ratio_by_dir"`
	EffectiveOpenFetchKmByDir map[string]float64 `json:"effective_open_fetch_km_by_dir"`
	MeanShelterRatio          float64            `json:"mean_shelter_ratio"`
	TopExposureDirs           []string           `json:"top_exposure_dirs"`
	WindThresholds            WindThresholds     `json:"wind_thresholds"`
}

// profileFile mirrors the on-disk asset layout.
type profileFile struct {
	Version   string                  `json:"version"`
	Algorithm string                  `json:"algorithm"`
	Routes    map[string]RouteProfile `json:"routes"`
}

//go:embed routes.json
var routesJSON []byte

var profiles map[string]RouteProfile

func init() {
	var f profileFile
	if err := json.Unmarshal(routesJSON, &f); err != nil {
		panic(fmt.Sprintf("exposure: corrupt embedded routes.json: %v", err))
	}
	for id, p := range f.Routes {
		if len(p.ShelterRatioByDir) != len(compassPoints) {
			panic(fmt.Sprintf("exposure: route %s has %d shelter buckets, want %d",
				id, len(p.ShelterRatioByDir), len(compassPoints)))
		}
	}
	profiles = f.Routes
}

// Lookup returns the profile for a directed route ID.
func Lookup(routeID string) (*RouteProfile, bool) {
	p, ok := profiles[routeID]
	if !ok {
		return nil, false
	}
	return &p, true
}

// RouteIDs returns the known route IDs, for diagnostics.
func RouteIDs() []string {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	return ids
}

// CompassBucket returns the 16-point compass name for a wind-from direction
// in degrees. Degrees outside [0, 360) are normalized first.
func CompassBucket(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int(math.Floor(deg/22.5+0.5)) % len(compassPoints)
	return compassPoints[idx]
}

// ShelterRatioAt returns the shelter ratio for the compass bucket containing
// the given wind-from direction. 1.0 means the route is fully open to wind
// from that direction.
func (p *RouteProfile) ShelterRatioAt(deg float64) float64 {
	return p.ShelterRatioByDir[CompassBucket(deg)]
}

// OpenFetchKmAt returns the effective open-fetch distance for the compass
// bucket containing the given wind-from direction.
func (p *RouteProfile) OpenFetchKmAt(deg float64) float64 {
	return p.EffectiveOpenFetchKmByDir[CompassBucket(deg)]
}

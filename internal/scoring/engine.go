// Package scoring implements the pure risk scoring engine. Given a weather
// snapshot, tide state, route exposure profile, and historical pattern match,
// it produces a bounded delay/cancellation risk score with an explainable,
// ranked factor breakdown.
//
// Score is total: every input may be nil and the engine still returns a
// valid assessment with degraded confidence. Given identical inputs the
// output is byte-identical; there is no hidden clock or global state.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"ferrycast/internal/exposure"
	"ferrycast/internal/types"
)

// Factor codes, stable identifiers surfaced to API consumers.
const (
	FactorAdvisory     = "advisory_level"
	FactorSustained    = "sustained_wind"
	FactorMisalignment = "wind_exposure_alignment"
	FactorGusts        = "gust_differential"
	FactorTide         = "tide_swing"
	FactorHistorical   = "historical_pattern"
)

// Advisory severity weights, monotonic in severity.
var advisoryWeights = map[types.AdvisoryLevel]float64{
	types.AdvisoryNone:       0,
	types.AdvisorySmallCraft: 18,
	types.AdvisoryGale:       35,
	types.AdvisoryStorm:      50,
	types.AdvisoryHurricane:  65,
}

// Fallback thresholds for routes without a profile.
var defaultThresholds = exposure.WindThresholds{CautionMph: 25, HighMph: 35}

// Tuning constants for the non-advisory factors.
const (
	windHighBase       = 25.0 // weight at exactly the high threshold
	windHighSlope      = 0.8  // additional weight per mph above the high threshold
	windHighCap        = 40.0
	windCautionBase    = 5.0 // weight at the caution threshold
	windCautionSpan    = 20.0
	misalignWindFloor  = 15.0 // mph below which direction alignment is irrelevant
	misalignWindSpan   = 30.0
	misalignMax        = 20.0
	gustDiffFloor      = 10.0 // mph of gust spread before the factor engages
	gustDiffSlope      = 0.8
	gustMax            = 15.0
	tideSwingFloor     = 3.0 // feet
	tideSwingBase      = 4.0
	tideSwingSlope     = 4.0
	tideMax            = 12.0
	historicalMax      = 20.0
	historicalFullSamp = 20 // observations at which the historical term reaches full weight
)

// HistoricalMatch summarizes comparable past observations for a route under
// similar conditions. Rates are in [0, 1].
type HistoricalMatch struct {
	SampleCount int     `json:"sample_count"`
	DelayRate   float64 `json:"delay_rate"`
	CancelRate  float64 `json:"cancel_rate"`
}

// Input bundles everything one scoring call consumes. Weather, Tide,
// Profile, and Historical may each be nil. Authority records which rung of
// the weather ladder produced the snapshot; it drives confidence, not score.
type Input struct {
	Weather    *types.WeatherSnapshot
	Authority  types.WeatherAuthority
	Tide       *types.TideSwing
	Profile    *exposure.RouteProfile
	Historical *HistoricalMatch
}

// Engine is the stateless scoring engine. The model version is stamped onto
// emitted predictions so backtests can group by scoring generation.
type Engine struct {
	modelVersion string
}

// NewEngine creates an Engine for the given model version.
func NewEngine(modelVersion string) *Engine {
	return &Engine{modelVersion: modelVersion}
}

// ModelVersion returns the version stamped onto predictions.
func (e *Engine) ModelVersion() string {
	return e.modelVersion
}

// Score converts the input into a bounded risk assessment. The base score is
// zero; each factor contributes a non-negative weight; the total is clamped
// to [0, 100]. Factors with zero weight are omitted. The factor list is
// ordered by weight descending, ties broken by code, so identical inputs
// always produce identical output.
func (e *Engine) Score(in Input) types.RiskAssessment {
	var factors []types.ContributingFactor

	add := func(code, description string, weight float64) {
		if weight <= 0 {
			return
		}
		factors = append(factors, types.ContributingFactor{
			Code:        code,
			Description: description,
			Weight:      round1(weight),
		})
	}

	if in.Weather != nil {
		w := in.Weather

		if wt := advisoryWeights[w.AdvisoryLevel]; wt > 0 {
			add(FactorAdvisory, advisoryDescription(w.AdvisoryLevel), wt)
		}

		thresholds := defaultThresholds
		if in.Profile != nil {
			thresholds = in.Profile.WindThresholds
		}
		if wt, desc := sustainedWindFactor(w.WindSpeedMph, thresholds); wt > 0 {
			add(FactorSustained, desc, wt)
		}

		if in.Profile != nil {
			if wt, desc := misalignmentFactor(w, in.Profile); wt > 0 {
				add(FactorMisalignment, desc, wt)
			}
		}

		if diff := w.WindGustsMph - w.WindSpeedMph; diff > gustDiffFloor {
			wt := math.Min((diff-gustDiffFloor)*gustDiffSlope, gustMax)
			add(FactorGusts, fmt.Sprintf("Gusts %.0f mph above sustained wind", diff), wt)
		}
	}

	if in.Tide != nil {
		if swing := math.Abs(in.Tide.SwingFeet); swing >= tideSwingFloor {
			wt := math.Min(tideSwingBase+(swing-tideSwingFloor)*tideSwingSlope, tideMax)
			add(FactorTide, fmt.Sprintf("Large tide swing of %.1f ft (%s)", swing, in.Tide.CurrentPhase), wt)
		}
	}

	if h := in.Historical; h != nil && h.SampleCount > 0 {
		coverage := math.Min(float64(h.SampleCount)/historicalFullSamp, 1)
		rate := 0.6*h.CancelRate + 0.4*h.DelayRate
		if wt := rate * historicalMax * coverage; wt > 0 {
			add(FactorHistorical,
				fmt.Sprintf("%.0f%% disruption across %d comparable past sailings",
					rate*100, h.SampleCount),
				wt)
		}
	}

	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].Weight != factors[j].Weight {
			return factors[i].Weight > factors[j].Weight
		}
		return factors[i].Code < factors[j].Code
	})

	var total float64
	for _, f := range factors {
		total += f.Weight
	}
	score := clampScore(int(math.Round(total)))

	return types.RiskAssessment{
		Score:      score,
		Band:       types.BandForScore(score),
		Confidence: e.confidence(in),
		Factors:    factors,
	}
}

// confidence derives the qualitative confidence from source coverage, never
// from the score itself: high needs operator-authoritative conditions plus a
// historical match, medium means core weather is present, low means weather
// is degraded or absent.
func (e *Engine) confidence(in Input) types.Confidence {
	if in.Weather == nil || in.Authority == types.AuthorityUnavailable {
		return types.ConfidenceLow
	}
	if in.Authority == types.AuthorityOperator && in.Historical != nil && in.Historical.SampleCount > 0 {
		return types.ConfidenceHigh
	}
	return types.ConfidenceMedium
}

func sustainedWindFactor(wind float64, t exposure.WindThresholds) (float64, string) {
	switch {
	case wind >= t.HighMph:
		wt := math.Min(windHighBase+(wind-t.HighMph)*windHighSlope, windHighCap)
		return wt, fmt.Sprintf("Sustained wind %.0f mph at or above the %.0f mph route threshold", wind, t.HighMph)
	case wind >= t.CautionMph:
		span := t.HighMph - t.CautionMph
		if span <= 0 {
			return 0, ""
		}
		wt := windCautionBase + (wind-t.CautionMph)/span*windCautionSpan
		return wt, fmt.Sprintf("Sustained wind %.0f mph above the %.0f mph caution threshold", wind, t.CautionMph)
	default:
		return 0, ""
	}
}

// misalignmentFactor weights wind direction against the route's shelter
// signature: wind blowing from a direction where the route is open water
// contributes, scaled by how far that open water extends (fetch) and by the
// wind strength itself.
func misalignmentFactor(w *types.WeatherSnapshot, p *exposure.RouteProfile) (float64, string) {
	open := p.ShelterRatioAt(w.WindDirectionDeg)
	if open <= 0 {
		return 0, ""
	}
	component := clamp01((w.WindSpeedMph - misalignWindFloor) / misalignWindSpan)
	if component <= 0 {
		return 0, ""
	}
	fetchNorm := p.OpenFetchKmAt(w.WindDirectionDeg) / exposure.MaxFetchKm
	wt := open * (0.5 + 0.5*fetchNorm) * component * misalignMax
	desc := fmt.Sprintf("Wind from %s across open water (%.0f%% of route exposed)",
		exposure.CompassBucket(w.WindDirectionDeg), open*100)
	return wt, desc
}

func advisoryDescription(a types.AdvisoryLevel) string {
	switch a {
	case types.AdvisorySmallCraft:
		return "Small craft advisory in effect"
	case types.AdvisoryGale:
		return "Gale warning in effect"
	case types.AdvisoryStorm:
		return "Storm warning in effect"
	case types.AdvisoryHurricane:
		return "Hurricane warning in effect"
	default:
		return ""
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Package types defines the shared domain model for the ferrycast platform:
// weather snapshots, authority results, sailings, corridor boards, risk
// assessments, and the append-only prediction/outcome records used by the
// backtesting loop.
package types

import "time"

// AdvisoryLevel is the marine advisory severity attached to a weather snapshot.
// Levels are strictly ordered; Severity returns the monotonic rank.
type AdvisoryLevel string

const (
	AdvisoryNone       AdvisoryLevel = "none"
	AdvisorySmallCraft AdvisoryLevel = "small_craft"
	AdvisoryGale       AdvisoryLevel = "gale"
	AdvisoryStorm      AdvisoryLevel = "storm"
	AdvisoryHurricane  AdvisoryLevel = "hurricane"
)

// Severity returns the ordinal rank of the advisory level (none=0 ... hurricane=4).
// Unknown values rank as none.
func (a AdvisoryLevel) Severity() int {
	switch a {
	case AdvisorySmallCraft:
		return 1
	case AdvisoryGale:
		return 2
	case AdvisoryStorm:
		return 3
	case AdvisoryHurricane:
		return 4
	default:
		return 0
	}
}

// Valid reports whether the advisory level is one of the known values.
func (a AdvisoryLevel) Valid() bool {
	switch a {
	case AdvisoryNone, AdvisorySmallCraft, AdvisoryGale, AdvisoryStorm, AdvisoryHurricane:
		return true
	}
	return false
}

// WeatherSnapshot is an immutable point-in-time weather reading.
// WindDirectionDeg is the direction the wind blows FROM, in [0, 360).
type WeatherSnapshot struct {
	WindSpeedMph     float64       `json:"wind_speed_mph"`
	WindGustsMph     float64       `json:"wind_gusts_mph"`
	WindDirectionDeg float64       `json:"wind_direction_deg"`
	AdvisoryLevel    AdvisoryLevel `json:"advisory_level"`
}

// WeatherAuthority identifies which rung of the authority ladder produced
// a WeatherSourceResult.
type WeatherAuthority string

const (
	AuthorityOperator    WeatherAuthority = "operator"
	AuthorityLocalZIP    WeatherAuthority = "local_zip_observation"
	AuthorityUnavailable WeatherAuthority = "unavailable"
)

// WeatherSourceResult is the discriminated union returned by the authority
// resolver. Exactly one authority is active; the unavailable variant is a
// fully-formed value so UI-facing callers always have a renderable state.
// Snapshot is nil only when Authority is AuthorityUnavailable.
type WeatherSourceResult struct {
	Authority  WeatherAuthority `json:"authority"`
	Snapshot   *WeatherSnapshot `json:"snapshot,omitempty"`
	AgeMinutes int              `json:"age_minutes,omitempty"`
	ZIPCode    string           `json:"zip_code,omitempty"`
	TownName   string           `json:"town_name,omitempty"`
	ObservedAt *time.Time       `json:"observed_at,omitempty"`
}

// Unavailable returns the fully-formed unavailable variant.
func Unavailable() WeatherSourceResult {
	return WeatherSourceResult{Authority: AuthorityUnavailable}
}

// TidePhase is the tidal phase at observation time.
type TidePhase string

const (
	TideRising  TidePhase = "rising"
	TideFalling TidePhase = "falling"
	TideHigh    TidePhase = "high"
	TideLow     TidePhase = "low"
)

// TideSwing describes the tidal state relevant to a crossing.
type TideSwing struct {
	SwingFeet    float64   `json:"swing_feet"`
	CurrentPhase TidePhase `json:"current_phase"`
}

// Confidence is a qualitative indicator of how much evidence backs a risk
// score, independent of the score's magnitude.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RiskBand buckets a score into the traveler-facing risk tiers.
type RiskBand string

const (
	BandLow      RiskBand = "low"      // 0-30
	BandModerate RiskBand = "moderate" // 31-60
	BandHigh     RiskBand = "high"     // 61-100
)

// BandForScore maps a clamped score to its risk band.
func BandForScore(score int) RiskBand {
	switch {
	case score <= 30:
		return BandLow
	case score <= 60:
		return BandModerate
	default:
		return BandHigh
	}
}

// ContributingFactor is one ranked component of a risk score.
type ContributingFactor struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// RiskAssessment is the result of one scoring call. Created fresh per call
// and never mutated; Factors are ordered by weight descending.
type RiskAssessment struct {
	Score      int                  `json:"score"`
	Band       RiskBand             `json:"band"`
	Confidence Confidence           `json:"confidence"`
	Factors    []ContributingFactor `json:"factors"`
}

// Direction distinguishes the two halves of a corridor.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionReturn   Direction = "return"
)

// SailingStatus is the operator-authoritative status of a sailing. It is
// never inferred from weather or from the reverse-direction sailing.
type SailingStatus string

const (
	SailingScheduled SailingStatus = "scheduled"
	SailingOnTime    SailingStatus = "on_time"
	SailingDelayed   SailingStatus = "delayed"
	SailingCanceled  SailingStatus = "canceled"
)

// Sailing is one scheduled, operator-published crossing in one direction.
type Sailing struct {
	ID                 string        `json:"id"`
	CorridorID         string        `json:"corridor_id"`
	RouteID            string        `json:"route_id"`
	DepartureTimeLocal time.Time     `json:"departure_time_local"`
	ArrivalTimeLocal   *time.Time    `json:"arrival_time_local,omitempty"`
	Direction          Direction     `json:"direction"`
	Status             SailingStatus `json:"status"`
	StatusMessage      string        `json:"status_message,omitempty"`
	VesselName         string        `json:"vessel_name,omitempty"`
}

// BoardEntry pairs a sailing with its risk assessment.
type BoardEntry struct {
	Sailing Sailing        `json:"sailing"`
	Risk    RiskAssessment `json:"risk"`
}

// CorridorBoard is the merged, time-ordered sailing board for both directions
// of a corridor on one service date. Zero operator sailings means zero
// entries; the board never synthesizes sailings.
type CorridorBoard struct {
	CorridorID       string       `json:"corridor_id"`
	ServiceDateLocal string       `json:"service_date_local"`
	Sailings         []BoardEntry `json:"sailings"`
}

// ForecastModel names a numerical forecast model.
type ForecastModel string

const (
	ModelGFS   ForecastModel = "gfs"
	ModelECMWF ForecastModel = "ecmwf"
)

// ForecastRecord is one append-only per-hour model forecast row. Superseded
// records are retained for backtesting, never overwritten.
type ForecastRecord struct {
	ID         int64           `json:"id"`
	TerminalID string          `json:"terminal_id"`
	Model      ForecastModel   `json:"model"`
	TargetHour time.Time       `json:"target_hour"`
	Snapshot   WeatherSnapshot `json:"snapshot"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// PredictionRecord is written once at prediction time and is immutable.
type PredictionRecord struct {
	ID                 string           `json:"id"`
	RouteID            string           `json:"route_id"`
	CorridorID         string           `json:"corridor_id"`
	SailingID          string           `json:"sailing_id,omitempty"`
	SailingDepartureAt *time.Time       `json:"sailing_departure_at,omitempty"`
	PredictedAt        time.Time        `json:"predicted_at"`
	Score              int              `json:"score"`
	Confidence         Confidence       `json:"confidence"`
	ModelVersion       string           `json:"model_version"`
	WeatherSnapshot    *WeatherSnapshot `json:"weather_snapshot,omitempty"`
}

// ObservedOutcome is the ground-truth outcome of a sailing.
type ObservedOutcome string

const (
	OutcomeRan      ObservedOutcome = "ran"
	OutcomeDelayed  ObservedOutcome = "delayed"
	OutcomeCanceled ObservedOutcome = "canceled"
	OutcomeUnknown  ObservedOutcome = "unknown"
)

// Valid reports whether the outcome is one of the known values.
func (o ObservedOutcome) Valid() bool {
	switch o {
	case OutcomeRan, OutcomeDelayed, OutcomeCanceled, OutcomeUnknown:
		return true
	}
	return false
}

// Disrupted reports whether the outcome counts as a disruption event for
// calibration purposes.
func (o ObservedOutcome) Disrupted() bool {
	return o == OutcomeDelayed || o == OutcomeCanceled
}

// OutcomeLog is one append-only ground-truth row. Corrections are new rows,
// preserving auditability.
type OutcomeLog struct {
	ID                     string          `json:"id"`
	RouteID                string          `json:"route_id"`
	ObservedTime           time.Time       `json:"observed_time"`
	ObservedOutcome        ObservedOutcome `json:"observed_outcome"`
	OperatorReportedStatus string          `json:"operator_reported_status,omitempty"`
	PredictionScore        *int            `json:"prediction_score,omitempty"`
	ModelVersion           string          `json:"model_version,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

// AccuracyMetrics is a derived view recomputed on demand from the linked
// prediction/outcome set. Never persisted as mutable state.
type AccuracyMetrics struct {
	ModelVersion     string  `json:"model_version"`
	CorridorID       string  `json:"corridor_id"`
	SampleSize       int     `json:"sample_size"`
	HitRate          float64 `json:"hit_rate"`
	CalibrationError float64 `json:"calibration_error"`
	MeanScore        float64 `json:"mean_score"`
	DisruptionRate   float64 `json:"disruption_rate"`
}

// CancellationGuardResult is the ephemeral outcome of one consistency audit.
// Produced and logged per board request, never persisted.
type CancellationGuardResult struct {
	ResponseCanceledCount int  `json:"response_canceled_count"`
	DBCanceledCount       int  `json:"db_canceled_count"`
	GuardValid            bool `json:"guard_valid"`
}

// Terminal is one ferry terminal with the locality metadata the local
// observation adapter keys on.
type Terminal struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	TownName string  `json:"town_name"`
	ZIPCode  string  `json:"zip_code"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Corridor is a bidirectional crossing between two terminals, treated as one
// selectable unit regardless of direction. OutboundRouteID and ReturnRouteID
// name the per-direction routes carrying exposure profiles.
type Corridor struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Operator         string `json:"operator"`
	OriginTerminalID string `json:"origin_terminal_id"`
	DestTerminalID   string `json:"dest_terminal_id"`
	OutboundRouteID  string `json:"outbound_route_id"`
	ReturnRouteID    string `json:"return_route_id"`
}

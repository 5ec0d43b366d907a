package conditions

import "math"

// Powder score bounds and defaults.
const (
	MinPowderScore = 0.0
	MaxPowderScore = 10.0

	// DefaultTemperature is assumed when no source reports one (°F).
	DefaultTemperature = 32.0

	// DefaultWindSpeed is assumed when no source reports one (mph).
	DefaultWindSpeed = 0.0
)

// ScoreInputs are the current-conditions inputs to PowderScore.
type ScoreInputs struct {
	Snowfall24h float64 // inches
	Snowfall48h float64 // inches
	Temperature float64 // °F
	WindSpeed   float64 // mph
}

// PowderScore rates current conditions from 0 to 10.
//
// Fresh snow contributes up to 2.5 (24h, saturating at 12") and 1.2 (48h,
// saturating at 24"), cold temperatures up to 2.5 and calm wind up to 2.
// The attainable maximum is therefore 8.2; the clamp only guards the bounds.
func PowderScore(in ScoreInputs) float64 {
	score := math.Min(in.Snowfall24h/12*2.5, 2.5) +
		math.Min(in.Snowfall48h/24*1.2, 1.2) +
		temperatureFactor(in.Temperature) +
		windFactor(in.WindSpeed)

	return clamp(score, MinPowderScore, MaxPowderScore)
}

func temperatureFactor(temp float64) float64 {
	switch {
	case temp < 28:
		return 2.5
	case temp < 32:
		return 1.5
	default:
		return 0
	}
}

func windFactor(speed float64) float64 {
	switch {
	case speed < 10:
		return 2
	case speed < 20:
		return 1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

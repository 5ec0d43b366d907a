package conditions

import "math"

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassDirection converts a bearing in degrees to a 16-point compass label.
func CompassDirection(degrees float64) string {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return ""
	}
	i := int(math.Round(degrees/22.5)) % 16
	if i < 0 {
		i += 16
	}
	return compassPoints[i]
}

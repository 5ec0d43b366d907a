package conditions_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/powdertracker/powdertracker/internal/conditions"
)

func TestPowderScore(t *testing.T) {
	tests := []struct {
		name string
		in   conditions.ScoreInputs
		want float64
	}{
		{
			name: "best attainable conditions",
			in:   conditions.ScoreInputs{Snowfall24h: 12, Snowfall48h: 24, Temperature: 20, WindSpeed: 5},
			want: 8.2,
		},
		{
			name: "snowfall saturates",
			in:   conditions.ScoreInputs{Snowfall24h: 40, Snowfall48h: 80, Temperature: 20, WindSpeed: 5},
			want: 8.2,
		},
		{
			name: "no snow warm and windy",
			in:   conditions.ScoreInputs{Snowfall24h: 0, Snowfall48h: 0, Temperature: 40, WindSpeed: 30},
			want: 0,
		},
		{
			name: "partial snow near freezing",
			in:   conditions.ScoreInputs{Snowfall24h: 6, Snowfall48h: 12, Temperature: 30, WindSpeed: 15},
			want: 1.25 + 0.6 + 1.5 + 1,
		},
		{
			name: "temperature breakpoint at 28 is not cold",
			in:   conditions.ScoreInputs{Temperature: 28, WindSpeed: 25},
			want: 1.5,
		},
		{
			name: "temperature breakpoint at 32 is warm",
			in:   conditions.ScoreInputs{Temperature: 32, WindSpeed: 25},
			want: 0,
		},
		{
			name: "wind breakpoint at 10",
			in:   conditions.ScoreInputs{Temperature: 40, WindSpeed: 10},
			want: 1,
		},
		{
			name: "wind breakpoint at 20",
			in:   conditions.ScoreInputs{Temperature: 40, WindSpeed: 20},
			want: 0,
		},
		{
			name: "defaults",
			in:   conditions.ScoreInputs{Temperature: conditions.DefaultTemperature, WindSpeed: conditions.DefaultWindSpeed},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, conditions.PowderScore(tt.in), 1e-9)
		})
	}
}

func TestPowderScore_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		in := conditions.ScoreInputs{
			Snowfall24h: rng.Float64() * 100,
			Snowfall48h: rng.Float64() * 100,
			Temperature: -20 + rng.Float64()*80,
			WindSpeed:   rng.Float64() * 80,
		}

		score := conditions.PowderScore(in)
		assert.GreaterOrEqual(t, score, conditions.MinPowderScore, "inputs %+v", in)
		assert.LessOrEqual(t, score, conditions.MaxPowderScore, "inputs %+v", in)
	}
}

func TestPowderScore_NegativeSnowfallStaysInBounds(t *testing.T) {
	score := conditions.PowderScore(conditions.ScoreInputs{
		Snowfall24h: -500,
		Snowfall48h: -500,
		Temperature: 50,
		WindSpeed:   50,
	})
	assert.Equal(t, 0.0, score)
}

func TestCompassDirection(t *testing.T) {
	tests := []struct {
		degrees float64
		want    string
	}{
		{0, "N"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{360, "N"},
		{22.5, "NNE"},
		{45, "NE"},
		{11.24, "N"},
		{11.25, "NNE"},
		{348.75, "N"},
		{337.5, "NNW"},
		{-90, "W"},
		{720, "N"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, conditions.CompassDirection(tt.degrees), "degrees %v", tt.degrees)
	}
}

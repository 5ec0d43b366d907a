package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powdertracker/powdertracker/internal/api/models"
)

func TestTimestamp_EncodesUTC(t *testing.T) {
	pacific := time.FixedZone("PST", -8*3600)
	ts := models.Timestamp(time.Date(2025, 1, 15, 4, 30, 0, 0, pacific))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-15T12:30:00Z"`, string(data))
}

func TestTimestamp_Decode(t *testing.T) {
	var body struct {
		At   models.Timestamp  `json:"at"`
		Seen *models.Timestamp `json:"seen"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2025-01-15T12:30:00Z","seen":null}`), &body))

	assert.True(t, body.At.Time().Equal(time.Date(2025, 1, 15, 12, 30, 0, 0, time.UTC)))
	assert.Nil(t, body.Seen)

	require.Error(t, json.Unmarshal([]byte(`{"at":"yesterday"}`), &body))
	require.Error(t, json.Unmarshal([]byte(`{"at":12}`), &body))
}

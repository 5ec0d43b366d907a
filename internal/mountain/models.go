// Package mountain holds the catalog of ski areas and the upstream source
// configuration attached to each of them.
package mountain

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // mountain time zones must resolve in slim containers
)

// Registry errors.
var (
	ErrMountainNotFound = errors.New("mountain not found")
	ErrInvalidMountain  = errors.New("invalid mountain")
)

// DefaultTimezone is used for mountains that do not declare one.
const DefaultTimezone = "America/Los_Angeles"

// Mountain is a ski area and the telemetry/forecast sources configured for it.
type Mountain struct {
	ID        string
	Name      string
	ShortName string
	Region    string

	// Location coordinates
	Lat float64
	Lng float64

	// SNOTEL is the snow telemetry station, nil when the mountain has none.
	SNOTEL *SNOTELStation

	// NOAA is the forecast grid point, nil when the mountain has none.
	NOAA *GridPoint

	// Timezone is an IANA zone name used to decide which telemetry day is "today".
	Timezone string
}

// SNOTELStation identifies a snow telemetry station.
type SNOTELStation struct {
	// StationID is the station triplet, e.g. "909:WA:SNTL".
	StationID string
	Name      string
}

// GridPoint identifies a forecast office grid cell.
type GridPoint struct {
	Office string
	X      int
	Y      int
}

// String returns the grid point in "OFFICE/X,Y" form.
func (g GridPoint) String() string {
	return fmt.Sprintf("%s/%d,%d", g.Office, g.X, g.Y)
}

// HasSNOTEL reports whether a telemetry station is configured.
func (m *Mountain) HasSNOTEL() bool {
	return m.SNOTEL != nil && m.SNOTEL.StationID != ""
}

// HasNOAA reports whether a forecast grid point is configured.
func (m *Mountain) HasNOAA() bool {
	return m.NOAA != nil && m.NOAA.Office != ""
}

// DisplayName returns the short name, falling back to the full name.
func (m *Mountain) DisplayName() string {
	if m.ShortName != "" {
		return m.ShortName
	}
	return m.Name
}

// Location returns the mountain's time zone. Validate guarantees it loads.
func (m *Mountain) Location() *time.Location {
	tz := m.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks that the mountain can be aggregated.
func (m *Mountain) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMountain)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: %s: missing name", ErrInvalidMountain, m.ID)
	}
	if m.Lat < -90 || m.Lat > 90 || m.Lng < -180 || m.Lng > 180 {
		return fmt.Errorf("%w: %s: coordinates out of range", ErrInvalidMountain, m.ID)
	}
	if m.NOAA != nil && m.NOAA.Office != "" && (m.NOAA.X < 0 || m.NOAA.Y < 0) {
		return fmt.Errorf("%w: %s: negative grid coordinates", ErrInvalidMountain, m.ID)
	}
	if m.Timezone != "" {
		if _, err := time.LoadLocation(m.Timezone); err != nil {
			return fmt.Errorf("%w: %s: timezone %q: %v", ErrInvalidMountain, m.ID, m.Timezone, err)
		}
	}
	return nil
}

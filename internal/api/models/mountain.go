package models

// Mountain is the public view of a registry entry.
type Mountain struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	ShortName string         `json:"shortName,omitempty"`
	Region    string         `json:"region,omitempty"`
	Location  Coordinates    `json:"location"`
	Timezone  string         `json:"timezone"`
	Sources   MountainSource `json:"sources"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MountainSource lists the upstream identifiers configured for a mountain.
type MountainSource struct {
	SNOTELStationID string `json:"snotelStationId,omitempty"`
	NOAAGrid        string `json:"noaaGrid,omitempty"`
}

// MountainList is the body of GET /api/mountains.
type MountainList struct {
	Mountains []Mountain `json:"mountains"`
	Count     int        `json:"count"`
}

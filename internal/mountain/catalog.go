package mountain

// DefaultCatalog returns the built-in Pacific Northwest catalog.
func DefaultCatalog() []Mountain {
	return []Mountain{
		// Washington
		{
			ID: "baker", Name: "Mt. Baker", ShortName: "Baker", Region: "washington",
			Lat: 48.857, Lng: -121.669,
			SNOTEL: &SNOTELStation{StationID: "909:WA:SNTL", Name: "Wells Creek"},
			NOAA:   &GridPoint{Office: "SEW", X: 157, Y: 123},
		},
		{
			ID: "stevens", Name: "Stevens Pass", ShortName: "Stevens", Region: "washington",
			Lat: 47.745, Lng: -121.089,
			SNOTEL: &SNOTELStation{StationID: "791:WA:SNTL", Name: "Stevens Pass"},
			NOAA:   &GridPoint{Office: "SEW", X: 163, Y: 108},
		},
		{
			ID: "crystal", Name: "Crystal Mountain", ShortName: "Crystal", Region: "washington",
			Lat: 46.935, Lng: -121.474,
			SNOTEL: &SNOTELStation{StationID: "642:WA:SNTL", Name: "Morse Lake"},
			NOAA:   &GridPoint{Office: "SEW", X: 144, Y: 30},
		},
		{
			ID: "snoqualmie", Name: "Summit at Snoqualmie", ShortName: "Snoqualmie", Region: "washington",
			Lat: 47.428, Lng: -121.413,
			SNOTEL: &SNOTELStation{StationID: "672:WA:SNTL", Name: "Olallie Meadows"},
			NOAA:   &GridPoint{Office: "SEW", X: 152, Y: 54},
		},
		{
			ID: "whitepass", Name: "White Pass", ShortName: "White Pass", Region: "washington",
			Lat: 46.637, Lng: -121.391,
			SNOTEL: &SNOTELStation{StationID: "863:WA:SNTL", Name: "White Pass E.S."},
			NOAA:   &GridPoint{Office: "SEW", X: 145, Y: 17},
		},
		{
			ID: "missionridge", Name: "Mission Ridge", ShortName: "Mission Ridge", Region: "washington",
			Lat: 47.293, Lng: -120.398,
			NOAA: &GridPoint{Office: "OTX", X: 46, Y: 55},
		},
		{
			ID: "fortynine", Name: "49 Degrees North", ShortName: "49 North", Region: "washington",
			Lat: 48.795, Lng: -117.565,
			NOAA: &GridPoint{Office: "OTX", X: 166, Y: 130},
		},
		// Oregon
		{
			ID: "meadows", Name: "Mt. Hood Meadows", ShortName: "Meadows", Region: "oregon",
			Lat: 45.331, Lng: -121.665,
			SNOTEL: &SNOTELStation{StationID: "651:OR:SNTL", Name: "Mt Hood Test Site"},
			NOAA:   &GridPoint{Office: "PQR", X: 143, Y: 89},
		},
		{
			ID: "timberline", Name: "Timberline Lodge", ShortName: "Timberline", Region: "oregon",
			Lat: 45.331, Lng: -121.711,
			SNOTEL: &SNOTELStation{StationID: "651:OR:SNTL", Name: "Mt Hood Test Site"},
			NOAA:   &GridPoint{Office: "PQR", X: 141, Y: 88},
		},
		{
			ID: "bachelor", Name: "Mt. Bachelor", ShortName: "Bachelor", Region: "oregon",
			Lat: 43.979, Lng: -121.688,
			SNOTEL: &SNOTELStation{StationID: "815:OR:SNTL", Name: "Three Creeks Meadow"},
			NOAA:   &GridPoint{Office: "PDT", X: 23, Y: 40},
		},
		{
			ID: "ashland", Name: "Mt. Ashland", ShortName: "Ashland", Region: "oregon",
			Lat: 42.086, Lng: -122.715,
			SNOTEL: &SNOTELStation{StationID: "341:OR:SNTL", Name: "Big Red Mountain"},
		},
	}
}

// Package sites holds the static catalog of monitored points: the plain
// forecast grid around Puerto Rico and the named snorkel sites that get a
// suitability score. The catalog is configuration, not data; it changes by
// deployment, never at runtime.
package sites

import (
	"fmt"

	"reefcast/internal/types"
)

// ForecastGrid returns the plain (unscored) monitoring grid: a ring of
// coastal and offshore points covering every shore of the island, plus a
// handful of strategic far-offshore points.
func ForecastGrid() []types.Site {
	coords := []types.Location{
		// North coast
		{Lat: 19.0000, Lng: -66.5000},
		{Lat: 18.9800, Lng: -66.2000},
		{Lat: 18.9500, Lng: -66.8000},
		{Lat: 18.9200, Lng: -65.9000},

		// Northeast
		{Lat: 18.8500, Lng: -66.2000},
		{Lat: 18.8000, Lng: -65.6000},
		{Lat: 18.7500, Lng: -65.4000},
		{Lat: 18.7000, Lng: -65.9000},

		// East
		{Lat: 18.5500, Lng: -65.6000},
		{Lat: 18.4500, Lng: -65.4000},
		{Lat: 18.3500, Lng: -65.3000},
		{Lat: 18.2500, Lng: -65.2000},

		// Southeast
		{Lat: 18.0000, Lng: -65.5000},
		{Lat: 17.9000, Lng: -65.6000},
		{Lat: 17.8000, Lng: -65.8000},
		{Lat: 17.7000, Lng: -66.0000},

		// South
		{Lat: 17.5000, Lng: -65.9000},
		{Lat: 17.5000, Lng: -66.3000},
		{Lat: 17.5000, Lng: -66.6000},
		{Lat: 17.5000, Lng: -66.9000},

		// Southwest
		{Lat: 17.6000, Lng: -67.2000},
		{Lat: 17.7000, Lng: -67.1000},
		{Lat: 17.8000, Lng: -67.0000},

		// West
		{Lat: 18.1000, Lng: -67.2000},
		{Lat: 18.2033340, Lng: -67.2021048}, // Rincon
		{Lat: 18.3000, Lng: -67.2500},
		{Lat: 18.4000, Lng: -67.3000},

		// Northwest
		{Lat: 18.5000, Lng: -67.2000},
		{Lat: 18.6000, Lng: -67.1000},
		{Lat: 18.7000, Lng: -67.0000},
		{Lat: 18.7500, Lng: -66.8000},

		// Central and offshore
		{Lat: 18.4661640, Lng: -66.0136532}, // Central North
		{Lat: 18.1708446, Lng: -65.5100},    // NE Offshore
		{Lat: 18.0732372, Lng: -65.497277},  // E Offshore
		{Lat: 18.2000, Lng: -67.8000},       // Far West (Mona)

		// Strategic far offshore points only
		{Lat: 19.0500, Lng: -65.7000}, // NE Far
		{Lat: 17.3000, Lng: -65.5000}, // South Far
		{Lat: 17.3000, Lng: -67.5000}, // SW Far
	}

	out := make([]types.Site, len(coords))
	for i, c := range coords {
		out[i] = types.Site{Location: c}
	}
	return out
}

// SnorkelSites returns the scored site set. Names must match the scoring
// engine's exposure table where a directional profile exists; sites
// without an entry fall back to their region default coefficient.
func SnorkelSites() []types.Site {
	locs := []types.Location{
		{Lat: 18.3490, Lng: -67.2635, Name: "Steps Beach", Region: "west"},
		{Lat: 18.4586, Lng: -67.1644, Name: "Crash Boat", Region: "west"},
		{Lat: 17.9711, Lng: -67.0464, Name: "La Parguera", Region: "south"},
		{Lat: 17.8889, Lng: -66.5258, Name: "Caja de Muertos", Region: "south"},
		{Lat: 18.3636, Lng: -65.6280, Name: "Seven Seas", Region: "east"},
		{Lat: 18.3283, Lng: -65.3180, Name: "Flamenco Beach", Region: "east"},
		{Lat: 18.3103, Lng: -65.3222, Name: "Tamarindo", Region: "east"},
		{Lat: 18.4664, Lng: -66.0909, Name: "Escambron", Region: "north"},
	}

	out := make([]types.Site, len(locs))
	for i, l := range locs {
		out[i] = types.Site{Location: l, Scored: true}
	}
	return out
}

// Validate checks a site set for catalog defects: coordinates outside
// valid ranges, and distinct entries closer together than the coordinate
// tolerance. The latter is rejected outright because the replace-then-
// insert protocol would let two concurrent locations delete each other's
// rows.
func Validate(set []types.Site, tolerance float64) error {
	for i, s := range set {
		if s.Lat < -90 || s.Lat > 90 {
			return fmt.Errorf("site %s: latitude %f out of range", s.Key(), s.Lat)
		}
		if s.Lng < -180 || s.Lng > 180 {
			return fmt.Errorf("site %s: longitude %f out of range", s.Key(), s.Lng)
		}
		for _, other := range set[i+1:] {
			if types.WithinTolerance(s.Location, other.Location, tolerance) {
				return fmt.Errorf("sites %s and %s are within the %g degree coordinate tolerance of each other",
					s.Key(), other.Key(), tolerance)
			}
		}
	}
	return nil
}

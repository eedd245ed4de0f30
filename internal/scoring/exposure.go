package scoring

// Region tags used by the scoring model. Plain grid points carry no region
// and fall through to the neutral coefficient.
const (
	RegionNorth = "north"
	RegionEast  = "east"
	RegionSouth = "south"
	RegionWest  = "west"
)

// Exposure describes a site's directional response to incoming swell.
// Sectors are given as center bearings; a swell direction is "in" a sector
// when its circular distance to the center is at most 45 degrees.
type Exposure struct {
	Favorable    []float64
	Unfavorable  []float64
	KFavorable   float64
	KUnfavorable float64
}

// siteExposure maps a monitored snorkel site name to its directional
// profile. Favorable sectors are swells the site is sheltered from (reef
// or headland in the way); unfavorable sectors hit the entry directly.
// Weights stay within the observed 0.2-0.9 range.
var siteExposure = map[string]Exposure{
	// West coast: sheltered from northerly winter swell by the Rincon
	// headland, exposed straight west.
	"Steps Beach": {
		Favorable:    []float64{0, 45},
		Unfavorable:  []float64{270},
		KFavorable:   0.85,
		KUnfavorable: 0.3,
	},
	"Crash Boat": {
		Favorable:    []float64{90, 135},
		Unfavorable:  []float64{300},
		KFavorable:   0.9,
		KUnfavorable: 0.35,
	},
	// Sheltered southwest reef inside the La Parguera keys.
	"La Parguera": {
		Favorable:    []float64{0},
		Unfavorable:  []float64{180},
		KFavorable:   0.8,
		KUnfavorable: 0.4,
	},
	"Caja de Muertos": {
		Favorable:    []float64{315, 0},
		Unfavorable:  []float64{135, 180},
		KFavorable:   0.75,
		KUnfavorable: 0.3,
	},
	// East coast sites take the trade-wind chop head on.
	"Seven Seas": {
		Favorable:    []float64{270, 315},
		Unfavorable:  []float64{90},
		KFavorable:   0.8,
		KUnfavorable: 0.25,
	},
	"Flamenco Beach": {
		Favorable:    []float64{180, 225},
		Unfavorable:  []float64{0},
		KFavorable:   0.85,
		KUnfavorable: 0.2,
	},
	// San Juan metro: the Escambron lagoon is walled by a fringing reef.
	"Escambron": {
		Favorable:    []float64{180},
		Unfavorable:  []float64{0, 315},
		KFavorable:   0.8,
		KUnfavorable: 0.4,
	},
	"Tamarindo": {
		Favorable:    []float64{90, 135},
		Unfavorable:  []float64{270},
		KFavorable:   0.8,
		KUnfavorable: 0.3,
	},
}

// regionDefaultK is the fallback coefficient for scored sites without an
// exposure entry. Values reflect how exposed each coast is on an average
// day: the north shore takes open Atlantic swell, the south is lee shore.
var regionDefaultK = map[string]float64{
	RegionNorth: 0.5,
	RegionEast:  0.6,
	RegionSouth: 0.8,
	RegionWest:  0.7,
}

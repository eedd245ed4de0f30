// Package scoring implements the snorkeling suitability model: a pure
// function from one hourly forecast sample to a bounded 0-100 score.
//
// The model combines a directional-exposure coefficient (how protected a
// site is from the incoming swell) with a wave-energy formula, then applies
// a fixed sequence of penalty and bonus adjustments. The adjustment order
// is significant: penalties are additive on a running total, so later
// steps see the already-adjusted value.
package scoring

import (
	"math"

	"reefcast/internal/types"
)

const (
	// NeutralK is the directional coefficient used when the swell
	// direction falls in no configured sector, or when the site and its
	// region are both unknown.
	NeutralK = 0.7

	// sectorHalfWidth is the angular radius of an exposure sector: a
	// bearing belongs to a sector when its circular distance to the
	// sector center is at most this many degrees.
	sectorHalfWidth = 45.0

	// defaultWavePeriod substitutes for a missing wave period in the
	// energy formula. Missing wave height substitutes as zero.
	defaultWavePeriod = 8.0
)

// CircularDistance returns the angular distance between two bearings on
// the compass circle, in [0, 180].
func CircularDistance(a, b float64) float64 {
	d := math.Abs(math.Mod(a, 360) - math.Mod(b, 360))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Coefficient resolves the directional coefficient K for a site given the
// incoming swell direction.
//
// Resolution order: the site's exposure table entry (favorable sectors
// first, then unfavorable, else neutral), then the region default, then
// NeutralK. A missing swell direction matches no sector.
func Coefficient(siteName, region string, swellDir *float64) float64 {
	exp, ok := siteExposure[siteName]
	if !ok {
		if k, ok := regionDefaultK[region]; ok {
			return k
		}
		return NeutralK
	}

	if swellDir == nil {
		return NeutralK
	}

	for _, center := range exp.Favorable {
		if CircularDistance(*swellDir, center) <= sectorHalfWidth {
			return exp.KFavorable
		}
	}
	for _, center := range exp.Unfavorable {
		if CircularDistance(*swellDir, center) <= sectorHalfWidth {
			return exp.KUnfavorable
		}
	}
	return NeutralK
}

// Score computes the suitability score for one sample. It is deterministic
// and performs no I/O. The sample's location supplies the site name and
// region used for directional and onshore-wind decisions.
//
// Steps, in order:
//  1. K x H^2 x T x 10 (H defaults to 0, T to 8 when absent).
//  2. Wind-speed penalty above 10.
//  3. Onshore-wind penalty above 15, by coastal region.
//  4. Precipitation penalty (heavy, then light; mutually exclusive).
//  5. Cloud-cover penalty.
//  6. Temperature comfort penalty.
//  7. Ideal-conditions bonus.
//  8. Clamp to [0,100] and round to the nearest integer.
func Score(s *types.ForecastSample) int {
	k := Coefficient(s.Location.Name, s.Location.Region, s.SwellWaveDirection)
	h := deref(s.WaveHeight, 0)
	t := deref(s.WavePeriod, defaultWavePeriod)

	score := k * h * h * t * 10

	ws := deref(s.WindSpeed, 0)
	if ws > 10 {
		score -= (ws - 10) * 2
	}

	if ws > 15 && s.WindDirection != nil {
		wd := *s.WindDirection
		switch s.Location.Region {
		case RegionWest:
			if wd >= 45 && wd <= 135 {
				score -= 10
			}
		case RegionEast:
			if wd >= 225 && wd <= 315 {
				score -= 10
			}
		}
	}

	prob := deref(s.PrecipProbability, 0)
	amount := deref(s.PrecipAmount, 0)
	switch {
	case prob > 30 || amount > 0.5:
		score -= 30
	case prob > 15 || amount > 0.1:
		score -= 15
	}

	cloud := deref(s.CloudCover, 0)
	switch {
	case cloud > 80:
		score -= 5
	case cloud > 60:
		score -= 3
	}

	// Temperature comfort only applies when the variable is reported; a
	// missing reading must not be mistaken for a freezing one.
	if s.Temperature != nil {
		temp := *s.Temperature
		switch {
		case temp < 20 || temp > 32:
			score -= 15
		case temp < 22 || temp > 30:
			score -= 8
		}
	}

	if h < 0.5 && ws < 8 &&
		s.PrecipProbability != nil && *s.PrecipProbability < 10 &&
		s.CloudCover != nil && *s.CloudCover < 30 {
		score += 10
	}

	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	return int(math.Round(score))
}

func deref(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

package domain

import "github.com/paulmach/orb"

// BoundsFromBBox строит orb.Bound из minLon,minLat,maxLon,maxLat
func BoundsFromBBox(minLon, minLat, maxLon, maxLat float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
}

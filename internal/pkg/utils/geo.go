package utils

import "github.com/paulmach/orb"

// ValidateCoordinates проверяет валидность координат
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidateBound проверяет, что охват невырожден и лежит в WGS84
func ValidateBound(b orb.Bound) bool {
	if !ValidateCoordinates(b.Min.Lat(), b.Min.Lon()) || !ValidateCoordinates(b.Max.Lat(), b.Max.Lon()) {
		return false
	}
	return b.Min.Lon() <= b.Max.Lon() && b.Min.Lat() <= b.Max.Lat()
}

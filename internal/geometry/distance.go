package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ValidateCoordinates rejects coordinates outside the WGS84 domain.
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", lon)
	}
	return nil
}

// Distance returns the great-circle distance in meters between two
// coordinate pairs. Matches the haversine distance the graph store computes
// for NEAR edges closely enough for threshold checks.
func Distance(aLat, aLon, bLat, bLon float64) float64 {
	return geo.DistanceHaversine(orb.Point{aLon, aLat}, orb.Point{bLon, bLat})
}

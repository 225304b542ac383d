package geo

import (
	"math"

	"github.com/cuemby/timeclock/pkg/types"
)

// EarthRadiusMeters is the mean earth radius used for great-circle distances
const EarthRadiusMeters = 6371008.8

// DefaultRadiusMeters is the fence radius used when none is configured
const DefaultRadiusMeters = 250.0

// Distance returns the great-circle distance in meters between two points
func Distance(a, b types.Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLng := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	// Rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// NewFence builds a fence around a user's assigned location.
// It returns false when the user has no location set.
func NewFence(user *types.User, radiusMeters float64) (types.GeoFence, bool) {
	if !user.HasLocation() {
		return types.GeoFence{}, false
	}
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return types.GeoFence{
		Center:       user.Location.Point(),
		RadiusMeters: radiusMeters,
	}, true
}

// Within reports whether the fix lies inside the fence, boundary included,
// and the distance it measured
func Within(fix types.LocationFix, fence types.GeoFence) (bool, float64) {
	d := Distance(fix.Point, fence.Center)
	return d <= fence.RadiusMeters, d
}

// ValidPoint reports whether p is a plausible WGS84 coordinate
func ValidPoint(p types.Point) bool {
	return p.Valid()
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

package repository

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// boundingBox returns a lat/lng box that contains every point within radiusKm
// of the centre. One degree of latitude is roughly 111 km; the margin covers
// the approximation near the box edges.
func boundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusKm / 111.0 * 1.5
	cos := math.Cos(lat * math.Pi / 180)
	lngDelta := 180.0
	if cos > 0.01 {
		lngDelta = math.Min(180, radiusKm/(111.0*cos)*1.5)
	}
	return lat - latDelta, lat + latDelta, lng - lngDelta, lng + lngDelta
}

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(47.3, 7.8, 47.3, 7.8), 1e-9)
	// Zurich to Bern.
	assert.InDelta(t, 95.5, HaversineKm(47.3769, 8.5417, 46.9480, 7.4474), 1.5)
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	lat, lng := 60.0, 10.0
	minLat, maxLat, minLng, maxLng := boundingBox(lat, lng, 20)

	assert.Less(t, minLat, lat)
	assert.Greater(t, maxLat, lat)
	// 20 km due north and due east must stay inside the box.
	assert.Greater(t, maxLat, lat+20/111.0)
	assert.Greater(t, maxLng, lng+20/(111.0*0.5))
	assert.Less(t, minLng, lng-20/(111.0*0.5))
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%Aix-en-Provence%`, likePattern("Aix-en-Provence"))
	assert.Equal(t, `%100\%\_ok\\%`, likePattern(`100%_ok\`))
}

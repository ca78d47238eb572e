package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(45.4642, 9.19))
	assert.NoError(t, ValidateCoordinates(-90, 180))

	assert.Error(t, ValidateCoordinates(90.1, 0))
	assert.Error(t, ValidateCoordinates(-91, 0))
	assert.Error(t, ValidateCoordinates(0, 180.5))
	assert.Error(t, ValidateCoordinates(0, -181))
}

func TestDistance(t *testing.T) {
	// Duomo di Milano to Castello Sforzesco, roughly 1.1 km.
	d := Distance(45.4642, 9.1900, 45.4705, 9.1794)
	assert.InDelta(t, 1100, d, 100)

	assert.Equal(t, 0.0, Distance(45.4642, 9.19, 45.4642, 9.19))

	// One degree of latitude is about 111 km regardless of longitude.
	d = Distance(0, 0, 1, 0)
	assert.InDelta(t, 111000, d, 1000)
}

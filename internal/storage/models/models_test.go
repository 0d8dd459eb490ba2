package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationSet(t *testing.T) {
	assert.False(t, FarmerProfile{}.LocationSet())
	assert.False(t, FarmerProfile{Latitude: 0, Longitude: 0}.LocationSet())
	assert.True(t, FarmerProfile{Latitude: 26.85}.LocationSet())
	assert.True(t, FarmerProfile{Longitude: 80.95}.LocationSet())
}

func TestKeyMatches(t *testing.T) {
	p := FarmerProfile{Name: " Ravi "}
	assert.True(t, p.KeyMatches("ravi"))
	assert.True(t, p.KeyMatches("  RAVI  "))
	assert.False(t, p.KeyMatches("Ravin"))
}

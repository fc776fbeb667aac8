package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHallByID(t *testing.T) {
	h, ok := HallByID("rendezvous")
	require.True(t, ok)
	assert.Equal(t, "Rendezvous", h.Name)

	_, ok = HallByID("covel")
	assert.False(t, ok)
}

func TestOpenAt_DaytimeHall(t *testing.T) {
	h, _ := HallByID("epicuria-ackerman") // 11-21
	assert.False(t, h.OpenAt(10))
	assert.True(t, h.OpenAt(11))
	assert.True(t, h.OpenAt(20))
	assert.False(t, h.OpenAt(21))
	assert.False(t, h.OpenAt(1))
}

func TestOpenAt_PastMidnightWrap(t *testing.T) {
	h, _ := HallByID("rendezvous") // 17-26, i.e. 5pm through 2am
	assert.True(t, h.OpenAt(17))
	assert.True(t, h.OpenAt(23))
	assert.True(t, h.OpenAt(0))
	assert.True(t, h.OpenAt(1))
	assert.False(t, h.OpenAt(2))
	assert.False(t, h.OpenAt(16))
}

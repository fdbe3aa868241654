package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	data, physical, err := Encode([]string{"a", "b"}, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, physical)

	got, stale, err := Decode[[]string](data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.False(t, stale)
}

func TestDecode_Stale(t *testing.T) {
	data, _, err := Encode(1, -time.Second)
	require.NoError(t, err)

	_, stale, err := Decode[int](data)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestPhysicalTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), PhysicalTTL(0))
	assert.Equal(t, time.Duration(0), PhysicalTTL(-time.Second))
	assert.Equal(t, 3*time.Minute, PhysicalTTL(time.Minute))
}

package rastvec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 鞋带公式求环面积（取绝对值），以首点为原点减小误差
func ringArea(ring [5][2]float64) float64 {
	var s float64
	ox, oy := ring[0][0], ring[0][1]
	for i := 0; i < 4; i++ {
		s += (ring[i][0]-ox)*(ring[i+1][1]-oy) - (ring[i+1][0]-ox)*(ring[i][1]-oy)
	}
	return math.Abs(s) / 2
}

func TestPixelRing(t *testing.T) {
	cases := []struct {
		x, y, pw, ph float64
	}{
		{0, 0, 1, -1},
		{500000, 3400000, 30, -30},
		{113.5, 30.25, 0.00025, -0.00025},
		{-10, -10, 2, 3},
	}
	for _, c := range cases {
		ring := PixelRing(c.x, c.y, c.pw, c.ph)
		require.Equal(t, ring[0], ring[4], "ring must close")
		assert.Equal(t, [2]float64{c.x, c.y}, ring[0])
		assert.Equal(t, [2]float64{c.x + c.pw, c.y + c.ph}, ring[2])
		assert.InDelta(t, math.Abs(c.pw*c.ph), ringArea(ring), 1e-6*math.Abs(c.pw*c.ph))

		minX, maxX := math.Min(ring[0][0], ring[2][0]), math.Max(ring[0][0], ring[2][0])
		minY, maxY := math.Min(ring[0][1], ring[2][1]), math.Max(ring[0][1], ring[2][1])
		for _, p := range ring {
			assert.True(t, p[0] == minX || p[0] == maxX)
			assert.True(t, p[1] == minY || p[1] == maxY)
		}
	}
}

func TestPixelRingToWkt(t *testing.T) {
	wkt := PixelRingToWkt(PixelRing(1, 0, 1, -1))
	assert.Equal(t, "POLYGON((1 0, 2 0, 2 -1, 1 -1, 1 0))", wkt)

	wkt = PixelRingToWkt(PixelRing(0.5, 0.25, 0.125, -0.125))
	assert.Equal(t, "POLYGON((0.5 0.25, 0.625 0.25, 0.625 0.125, 0.5 0.125, 0.5 0.25))", wkt)
}

func TestRoundCoord(t *testing.T) {
	assert.Equal(t, 113.123457, RoundCoord(113.1234567))
	assert.Equal(t, -30.5, RoundCoord(-30.5000001))
	assert.Equal(t, "113.123457", FormatCoord(113.1234567))
	assert.Equal(t, "500000", FormatCoord(500000))
	assert.Equal(t, coordKey(1.0000001, 2), coordKey(1, 2.0000004))
	assert.NotEqual(t, coordKey(1.00001, 2), coordKey(1, 2))
}

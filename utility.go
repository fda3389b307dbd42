package rastvec

import (
	"fmt"
	"math"
	"strconv"
)

// 像元外框闭合环：左上、右上、右下、左下、左上
func PixelRing(x, y, pw, ph float64) [5][2]float64 {
	return [5][2]float64{
		{x, y},
		{x + pw, y},
		{x + pw, y + ph},
		{x, y + ph},
		{x, y},
	}
}

func PixelRingToWkt(ring [5][2]float64) string {
	return fmt.Sprintf("POLYGON((%s %s, %s %s, %s %s, %s %s, %s %s))",
		fmtCoord(ring[0][0]), fmtCoord(ring[0][1]),
		fmtCoord(ring[1][0]), fmtCoord(ring[1][1]),
		fmtCoord(ring[2][0]), fmtCoord(ring[2][1]),
		fmtCoord(ring[3][0]), fmtCoord(ring[3][1]),
		fmtCoord(ring[4][0]), fmtCoord(ring[4][1]))
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// 四舍五入保留6位小数
func RoundCoord(v float64) float64 {
	const p = 1e6
	return math.Round(v*p) / p
}

func FormatCoord(v float64) string {
	return strconv.FormatFloat(RoundCoord(v), 'f', -1, 64)
}

// 坐标合并使用的键
func coordKey(x, y float64) [2]float64 {
	return [2]float64{RoundCoord(x), RoundCoord(y)}
}

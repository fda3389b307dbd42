package rastvec

import (
	"context"
	"fmt"
	"math"
)

// 单个栅格内的像元编号器，仅为保留像元发号，从1开始
type IDCounter struct {
	last int64
}

func NewIDCounter() *IDCounter {
	return &IDCounter{}
}

func (c *IDCounter) Next() int64 {
	c.last++
	return c.last
}

// 已发出的编号数量
func (c *IDCounter) Issued() int64 {
	return c.last
}

// 按波段数确定字段名：labels为空时生成band_1..band_N，波段多于标签时报错
func ResolveBandLabels(labels []string, bandCount int) (ret []string, err error) {
	if len(labels) == 0 {
		ret = make([]string, bandCount)
		for i := range ret {
			ret[i] = fmt.Sprintf(DEFAULT_BAND_LABEL, i+1)
		}
		return
	}
	if bandCount > len(labels) {
		err = fmt.Errorf("%w: %d bands, %d labels", ErrTooManyBands, bandCount, len(labels))
		return
	}
	ret = labels[:bandCount:bandCount]
	err = validateLabels(ret)
	return
}

func validateLabels(labels []string) error {
	seen := make(map[string]struct{}, len(labels)+3)
	for _, f := range []string{SHP_FIELD_PIXEL_ID, SHP_FIELD_X, SHP_FIELD_Y} {
		seen[f] = struct{}{}
	}
	for _, l := range labels {
		if l == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidLabel)
		}
		if len(l) > SHP_FIELD_NAME_MAX {
			return fmt.Errorf("%w: %q longer than %d bytes", ErrInvalidLabel, l, SHP_FIELD_NAME_MAX)
		}
		if _, ok := seen[l]; ok {
			return fmt.Errorf("%w: %q duplicated", ErrInvalidLabel, l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// int64可表示的范围[-2^63, 2^63)
const (
	minInt64Float = -(1 << 63)
	maxInt64Float = 1 << 63
)

// 截断为整数，NaN/Inf及超出int64范围的值（如float32的nodata -3.4e38）视为空值
func truncBand(v float64) BandValue {
	if math.IsNaN(v) || v < minInt64Float || v >= maxInt64Float {
		return BandValue{Null: true}
	}
	return BandValue{Int: int64(v)}
}

// 按行优先遍历像元，跳过全部波段为0的像元，其余编号后依次交给各sink
// NaN不等于0，全为空值的像元仍会保留
func ScanPixels(ctx context.Context, grid *Grid, counter *IDCounter, sinks ...PixelSink) (n int64, err error) {
	var (
		nb = grid.BandCount()
		ox = grid.OriginX()
		oy = grid.OriginY()
		pw = grid.PixelWidth()
		ph = grid.PixelHeight()
	)
	for _, b := range grid.Bands {
		if len(b) != grid.Width*grid.Height {
			err = fmt.Errorf("%w: band size %d, want %d", ErrTifReadFailed, len(b), grid.Width*grid.Height)
			return
		}
	}
	for row := 0; row < grid.Height; row++ {
		if err = ctx.Err(); err != nil {
			return
		}
		y := oy + float64(row)*ph
		for col := 0; col < grid.Width; col++ {
			off := row*grid.Width + col
			empty := true
			for b := 0; b < nb; b++ {
				if grid.Bands[b][off] != 0 {
					empty = false
					break
				}
			}
			if empty {
				continue
			}
			rec := &PixelRecord{
				ID:     counter.Next(),
				Row:    row,
				Col:    col,
				X:      ox + float64(col)*pw,
				Y:      y,
				Raw:    make([]float64, nb),
				Values: make([]BandValue, nb),
			}
			for b := 0; b < nb; b++ {
				v := grid.Bands[b][off]
				rec.Raw[b] = v
				rec.Values[b] = truncBand(v)
			}
			for _, s := range sinks {
				if err = s.WritePixel(rec); err != nil {
					return
				}
			}
			n++
		}
	}
	return
}

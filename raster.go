package rastvec

import (
	"fmt"

	"github.com/wgdzlh/rastvec/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 读取多波段Tif：地理变换、尺寸、投影及全部波段像元
func (g *GdalToolbox) LoadRaster(tif string) (grid *Grid, err error) {
	sds, err := gdal.Open(tif, gdal.ReadOnly)
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = fmt.Errorf("%w: %s: %v", ErrOpenRaster, tif, err)
		return
	}
	defer sds.Close()
	bc := sds.RasterCount()
	if bc == 0 {
		log.Error(g.logTag+"tif has no band", zap.String("tif", tif))
		err = fmt.Errorf("%w: %s", ErrEmptyTif, tif)
		return
	}
	grid = &Grid{
		Width:        sds.RasterXSize(),
		Height:       sds.RasterYSize(),
		GeoTransform: sds.GeoTransform(),
		Projection:   sds.Projection(),
		Bands:        make([][]float64, bc),
	}
	if gt := grid.GeoTransform; gt[2] != 0 || gt[4] != 0 {
		log.Warn(g.logTag+"tif geotransform is rotated, rotation ignored", zap.String("tif", tif), zap.Float64s("gt", gt[:]))
	}
	log.Info(g.logTag+"start read tif", zap.String("tif", tif), zap.Int("bands", bc),
		zap.Int("width", grid.Width), zap.Int("height", grid.Height))
	x, y := grid.Width, grid.Height
	for i := 0; i < bc; i++ {
		band := sds.RasterBand(i + 1)
		log.Debug(g.logTag+"read tif band", zap.Int("band", i+1), zap.String("dt", band.RasterDataType().Name()))
		buf := make([]float64, x*y)
		if err = band.IO(gdal.Read, 0, 0, x, y, buf, x, y, 0, 0); err != nil {
			log.Error(g.logTag+"read tif band failed", zap.Int("band", i+1), zap.Error(err))
			grid = nil
			err = fmt.Errorf("%w: %s band %d: %v", ErrTifReadFailed, tif, i+1, err)
			return
		}
		grid.Bands[i] = buf
	}
	return
}

package rastvec

import (
	"errors"
	"fmt"

	"github.com/wgdzlh/rastvec/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 点、面两个shp图层，共用属性结构；实现PixelSink
type layerPair struct {
	g        *GdalToolbox
	ref      gdal.SpatialReference
	pointDs  gdal.DataSource
	polyDs   gdal.DataSource
	points   gdal.Layer
	polygons gdal.Layer
	labels   []string
	pw, ph   float64
	cnt      int64
	closed   bool
}

func (g *GdalToolbox) getShpDriver(shp, layerName string, ref gdal.SpatialReference, gt gdal.GeometryType) (ds gdal.DataSource, layer gdal.Layer, err error) {
	log.Debug(g.logTag+"output shp files", zap.String("shp", shp), zap.String("layer", layerName))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Create(shp, nil)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrGdalDriverCreate, shp)
		return
	}
	layer = ds.CreateLayer(layerName, ref, gt, []string{ENCODING_OPTION})
	return
}

type shpField struct {
	name string
	ft   gdal.FieldType
}

// 建立pixel_id、x_coord、y_coord及各波段字段，字段顺序即索引
// 整数字段均为Integer64，FT_Integer仅32位
func (g *GdalToolbox) initShpLayer(layer gdal.Layer, labels []string) (err error) {
	fields := []shpField{
		{SHP_FIELD_PIXEL_ID, gdal.FT_Integer64},
		{SHP_FIELD_X, gdal.FT_Real},
		{SHP_FIELD_Y, gdal.FT_Real},
	}
	for _, l := range labels {
		fields = append(fields, shpField{l, gdal.FT_Integer64})
	}
	for _, f := range fields {
		fd := gdal.CreateFieldDefinition(f.name, f.ft)
		if f.ft == gdal.FT_Real {
			fd.SetWidth(24)
			fd.SetPrecision(15)
		}
		err = layer.CreateField(fd, false)
		fd.Destroy()
		if err != nil {
			log.Error(g.logTag+"create shp field failed", zap.String("field", f.name), zap.Error(err))
			return
		}
	}
	return
}

// 创建点、面shp
func (g *GdalToolbox) newLayerPair(pointShp, polyShp, name string, grid *Grid, labels []string) (lp *layerPair, err error) {
	ref := g.getRasterRef(grid.Projection)
	if srid, ok := g.getSrid(ref); ok {
		log.Info(g.logTag+"raster spatial ref", zap.String("name", name), zap.Int("srid", srid))
	}
	gc := []destroyable{ref}
	defer func() {
		if err != nil {
			destroyAll(gc)
		}
	}()
	pointDs, points, err := g.getShpDriver(pointShp, name+SUFFIX_POINTS, ref, gdal.GT_Point)
	if err != nil {
		return
	}
	gc = append([]destroyable{pointDs}, gc...)
	polyDs, polygons, err := g.getShpDriver(polyShp, name+SUFFIX_POLYGONS, ref, gdal.GT_Polygon)
	if err != nil {
		return
	}
	gc = append([]destroyable{polyDs}, gc...)
	for _, layer := range []gdal.Layer{points, polygons} {
		if err = g.initShpLayer(layer, labels); err != nil {
			return
		}
	}
	lp = &layerPair{
		g:        g,
		ref:      ref,
		pointDs:  pointDs,
		polyDs:   polyDs,
		points:   points,
		polygons: polygons,
		labels:   labels,
		pw:       grid.PixelWidth(),
		ph:       grid.PixelHeight(),
	}
	return
}

func fillFeature(feature gdal.Feature, id int64, x, y float64, values []BandValue) {
	feature.SetFieldInteger64(0, id)
	feature.SetFieldFloat64(1, x)
	feature.SetFieldFloat64(2, y)
	for i, v := range values {
		if v.Null {
			continue // 字段保持未设置即为空
		}
		feature.SetFieldInteger64(3+i, v.Int)
	}
}

// 未设置或为空的字段（dbf中空白数值读出为null）
func fieldIsNull(feature gdal.Feature, index int) bool {
	return !feature.IsFieldSet(index) || feature.FieldAsString(index) == ""
}

func (lp *layerPair) createFeature(layer gdal.Layer, geo gdal.Geometry, rec *PixelRecord) (err error) {
	feature := layer.Definition().Create()
	defer feature.Destroy()
	fillFeature(feature, rec.ID, rec.X, rec.Y, rec.Values)
	if err = feature.SetGeometryDirectly(geo); err != nil { // geo所有权已转移
		log.Error(lp.g.logTag+"err in set geom of feature", zap.Int64("pixel", rec.ID), zap.Error(err))
		return
	}
	if err = layer.Create(feature); err != nil {
		log.Error(lp.g.logTag+"err in create feature of layer", zap.Int64("pixel", rec.ID), zap.Error(err))
	}
	return
}

func (lp *layerPair) WritePixel(rec *PixelRecord) (err error) {
	if len(rec.Values) != len(lp.labels) {
		return fmt.Errorf("%w: pixel %d has %d bands, layer has %d fields", ErrTooManyBands, rec.ID, len(rec.Values), len(lp.labels))
	}
	point := gdal.Create(gdal.GT_Point)
	point.AddPoint2D(rec.X, rec.Y)
	if err = lp.createFeature(lp.points, point, rec); err != nil {
		return
	}
	polygon, err := gdal.CreateFromWKT(PixelRingToWkt(PixelRing(rec.X, rec.Y, lp.pw, lp.ph)), lp.ref)
	if err != nil {
		log.Error(lp.g.logTag+"parse pixel wkt failed", zap.Int64("pixel", rec.ID), zap.Error(err))
		return
	}
	if err = lp.createFeature(lp.polygons, polygon, rec); err != nil {
		return
	}
	lp.cnt++
	return
}

// 关闭数据源，写出shp文件 + 释放资源
func (lp *layerPair) Close() (err error) {
	if lp.closed {
		return
	}
	lp.closed = true
	var errs []error
	for _, layer := range []gdal.Layer{lp.points, lp.polygons} {
		if e := layer.SyncToDisk(); e != nil {
			errs = append(errs, e)
		}
	}
	destroyAll([]destroyable{lp.pointDs, lp.polyDs, lp.ref})
	if err = errors.Join(errs...); err != nil {
		log.Error(lp.g.logTag+"sync shp failed", zap.Error(err))
		return
	}
	log.Debug(lp.g.logTag+"shp files created", zap.Int64("features", lp.cnt))
	return
}

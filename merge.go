package rastvec

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wgdzlh/rastvec/log"
	"github.com/wgdzlh/rastvec/utils"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 按扩展名选择矢量驱动
var vectorDrivers = map[string]string{
	".shp":     SHP_DRIVER_NAME,
	".gpkg":    "GPKG",
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
}

type coordRow struct {
	x, y float64
	vals []BandValue
	wkt  string // 矢量源的几何，csv源为空
}

// 单个输入读出的坐标表
type coordTable struct {
	fields   []string
	rows     []coordRow
	proj     string
	geomType gdal.GeometryType
}

type MergedRow struct {
	ID     int64
	X, Y   float64
	Values []BandValue
	Wkt    string
}

// 按坐标外连接后的表，几何与坐标系取自首个带几何的输入
type MergedTable struct {
	Fields     []string
	Rows       []MergedRow
	Projection string
	GeomType   gdal.GeometryType
}

func (in *MergeInput) applyDefaults() {
	if in.XField == "" {
		in.XField = SHP_FIELD_X
	}
	if in.YField == "" {
		in.YField = SHP_FIELD_Y
	}
}

// 按(x,y)坐标依次外连接多个年份的表，行序为坐标首次出现的顺序，pixel_id从1重新编号
// 读取失败的输入记录日志后跳过
func (g *GdalToolbox) MergeByCoord(ctx context.Context, inputs []MergeInput) (ret *MergedTable, err error) {
	var tables []*coordTable
	seen := map[string]string{
		SHP_FIELD_PIXEL_ID: "output",
		SHP_FIELD_X:        "output",
		SHP_FIELD_Y:        "output",
	}
	for _, in := range inputs {
		if err = ctx.Err(); err != nil {
			return
		}
		in.applyDefaults()
		for _, f := range in.Fields {
			if prev, ok := seen[f]; ok {
				err = fmt.Errorf("%w: %q in %s and %s", ErrDuplicateField, f, prev, in.Path)
				return
			}
			seen[f] = in.Path
		}
		t, e := g.readCoordTable(in)
		if e != nil {
			log.Error(g.logTag+"error processing merge input", zap.String("path", in.Path), zap.String("layer", in.Layer), zap.Error(e))
			continue
		}
		log.Info(g.logTag+"successfully read merge input", zap.String("path", in.Path), zap.Int("rows", len(t.rows)))
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		err = ErrNothingToMerge
		return
	}
	ret = joinByCoord(tables)
	log.Info(g.logTag+"merged by coord", zap.Int("inputs", len(tables)), zap.Int("rows", len(ret.Rows)), zap.Strings("fields", ret.Fields))
	return
}

func joinByCoord(tables []*coordTable) (ret *MergedTable) {
	ret = &MergedTable{}
	offsets := make([]int, len(tables))
	for i, t := range tables {
		offsets[i] = len(ret.Fields)
		ret.Fields = append(ret.Fields, t.fields...)
		if ret.GeomType == gdal.GT_Unknown && t.geomType != gdal.GT_Unknown {
			ret.GeomType, ret.Projection = t.geomType, t.proj
		}
	}
	nf := len(ret.Fields)
	idx := map[[2]float64]int{}
	for ti, t := range tables {
		filled := map[int]struct{}{}
		dup := 0
		for _, r := range t.rows {
			key := coordKey(r.x, r.y)
			ri, ok := idx[key]
			if !ok {
				ri = len(ret.Rows)
				idx[key] = ri
				row := MergedRow{X: key[0], Y: key[1], Values: make([]BandValue, nf)}
				for i := range row.Values {
					row.Values[i].Null = true
				}
				ret.Rows = append(ret.Rows, row)
			}
			if _, ok = filled[ri]; ok {
				dup++
				continue
			}
			filled[ri] = struct{}{}
			copy(ret.Rows[ri].Values[offsets[ti]:], r.vals)
			if ret.Rows[ri].Wkt == "" && t.geomType == ret.GeomType {
				ret.Rows[ri].Wkt = r.wkt
			}
		}
		if dup > 0 {
			log.Warn("merge:duplicate coords in input, first kept", zap.Int("input", ti), zap.Int("dup", dup))
		}
	}
	for i := range ret.Rows {
		ret.Rows[i].ID = int64(i + 1)
	}
	return
}

func (g *GdalToolbox) readCoordTable(in MergeInput) (t *coordTable, err error) {
	if len(in.Fields) == 0 {
		err = fmt.Errorf("%w: no fields for %s", ErrInvalidConfig, in.Path)
		return
	}
	ext := strings.ToLower(filepath.Ext(in.Path))
	if ext == FILE_EXT_CSV {
		return readCoordCSV(in, g.cfg.CsvEncoding)
	}
	driverName, ok := vectorDrivers[ext]
	if !ok {
		err = fmt.Errorf("%w: unsupported merge input %s", ErrGdalDriverOpen, in.Path)
		return
	}
	return g.readCoordLayer(in, driverName)
}

func readCoordCSV(in MergeInput, enc string) (t *coordTable, err error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return
	}
	defer f.Close()
	cr := csv.NewReader(utils.DecodingReader(bufio.NewReader(f), enc))
	header, err := cr.Read()
	if err != nil {
		err = fmt.Errorf("%w: read header: %v", ErrInvalidTable, err)
		return
	}
	if len(header) > 0 {
		header[0] = utils.TrimBOM(header[0])
	}
	col := map[string]int{}
	for i, h := range header {
		col[h] = i
	}
	find := func(name string) (int, error) {
		if i, ok := col[name]; ok {
			return i, nil
		}
		return -1, fmt.Errorf("%w: %q in %s", ErrMissingField, name, in.Path)
	}
	xi, err := find(in.XField)
	if err != nil {
		return
	}
	yi, err := find(in.YField)
	if err != nil {
		return
	}
	vi := make([]int, len(in.Fields))
	for i, name := range in.Fields {
		if vi[i], err = find(name); err != nil {
			return
		}
	}
	t = &coordTable{fields: in.Fields}
	for ln := 2; ; ln++ {
		line, e := cr.Read()
		if e == io.EOF {
			return
		} else if e != nil {
			err = e
			return
		}
		r := coordRow{vals: make([]BandValue, len(vi))}
		if r.x, err = strconv.ParseFloat(line[xi], 64); err != nil {
			err = fmt.Errorf("%w: line %d: %v", ErrInvalidTable, ln, err)
			return
		}
		if r.y, err = strconv.ParseFloat(line[yi], 64); err != nil {
			err = fmt.Errorf("%w: line %d: %v", ErrInvalidTable, ln, err)
			return
		}
		for i, c := range vi {
			cell := line[c]
			if cell == "" {
				r.vals[i] = BandValue{Null: true}
				continue
			}
			var v float64
			if v, err = strconv.ParseFloat(cell, 64); err != nil {
				err = fmt.Errorf("%w: line %d: %v", ErrInvalidTable, ln, err)
				return
			}
			r.vals[i] = truncBand(v)
		}
		t.rows = append(t.rows, r)
	}
}

// 通过OGR读取矢量图层中的坐标及字段
func (g *GdalToolbox) readCoordLayer(in MergeInput, driverName string) (t *coordTable, err error) {
	driver := gdal.OGRDriverByName(driverName)
	ds, ok := driver.Open(in.Path, 0)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrGdalDriverOpen, in.Path)
		return
	}
	defer ds.Destroy()
	var (
		layer gdal.Layer
		found bool
	)
	for i, n := 0, ds.LayerCount(); i < n; i++ {
		l := ds.LayerByIndex(i)
		if in.Layer == "" || l.Name() == in.Layer {
			layer, found = l, true
			break
		}
	}
	if !found {
		err = fmt.Errorf("%w: layer %q not in %s", ErrMissingField, in.Layer, in.Path)
		return
	}
	def := layer.Definition()
	find := func(name string) (int, error) {
		if i := def.FieldIndex(name); i >= 0 {
			return i, nil
		}
		return -1, fmt.Errorf("%w: %q in %s", ErrMissingField, name, in.Path)
	}
	xi, err := find(in.XField)
	if err != nil {
		return
	}
	yi, err := find(in.YField)
	if err != nil {
		return
	}
	vi := make([]int, len(in.Fields))
	for i, name := range in.Fields {
		if vi[i], err = find(name); err != nil {
			return
		}
	}
	isInt := make([]bool, len(vi))
	for i, c := range vi {
		ft := def.FieldDefinition(c).Type()
		isInt[i] = ft == gdal.FT_Integer || ft == gdal.FT_Integer64
	}
	t = &coordTable{fields: in.Fields, geomType: layer.Type()}
	if wkt, e := layer.SpatialReference().ToWKT(); e == nil {
		t.proj = wkt
	}
	if nf, ok := layer.FeatureCount(false); ok && nf > 0 {
		t.rows = make([]coordRow, 0, nf)
	}
	layer.ResetReading()
	for feature := layer.NextFeature(); feature != nil; feature = layer.NextFeature() {
		r := coordRow{
			x:    feature.FieldAsFloat64(xi),
			y:    feature.FieldAsFloat64(yi),
			vals: make([]BandValue, len(vi)),
		}
		for i, c := range vi {
			switch {
			case fieldIsNull(*feature, c):
				r.vals[i] = BandValue{Null: true}
			case isInt[i]:
				r.vals[i] = BandValue{Int: feature.FieldAsInteger64(c)}
			default:
				r.vals[i] = truncBand(feature.FieldAsFloat64(c))
			}
		}
		if wkt, e := feature.Geometry().ToWKT(); e == nil {
			r.wkt = wkt
		}
		feature.Destroy()
		t.rows = append(t.rows, r)
	}
	return
}

func (m *MergedTable) Encode(w io.Writer) (err error) {
	cw := csv.NewWriter(w)
	if err = cw.Write(append([]string{SHP_FIELD_PIXEL_ID, SHP_FIELD_X, SHP_FIELD_Y}, m.Fields...)); err != nil {
		return
	}
	line := make([]string, 3+len(m.Fields))
	for _, r := range m.Rows {
		line[0] = strconv.FormatInt(r.ID, 10)
		line[1] = FormatCoord(r.X)
		line[2] = FormatCoord(r.Y)
		for i, v := range r.Values {
			if v.Null {
				line[3+i] = ""
			} else {
				line[3+i] = strconv.FormatInt(v.Int, 10)
			}
		}
		if err = cw.Write(line); err != nil {
			return
		}
	}
	cw.Flush()
	return cw.Error()
}

// 写出合并结果csv，覆盖已有文件
func (m *MergedTable) WriteCSV(path, enc string) (err error) {
	if err = utils.EnsureDirs(filepath.Dir(path)); err != nil {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = e
		}
	}()
	bw := bufio.NewWriter(f)
	ew := utils.EncodingWriter(bw, enc)
	if err = m.Encode(ew); err != nil {
		return
	}
	if err = ew.Close(); err != nil {
		return
	}
	if err = bw.Flush(); err != nil {
		return
	}
	log.Info("MergedTable:csv saved", zap.String("csv", path), zap.Int("rows", len(m.Rows)))
	return
}

// 写出合并结果图层（驱动按扩展名选择），覆盖已有文件
// 没有任何输入带几何时不写几何
func (g *GdalToolbox) WriteMergedLayer(m *MergedTable, path string) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	driverName, ok := vectorDrivers[ext]
	if !ok {
		return fmt.Errorf("%w: unsupported merge output %s", ErrGdalDriverCreate, path)
	}
	gt := m.GeomType
	if gt == gdal.GT_Unknown {
		if driverName == SHP_DRIVER_NAME {
			return fmt.Errorf("%w: shapefile output needs a vector input with geometry", ErrGdalDriverCreate)
		}
		gt = gdal.GT_None
	}
	if err = utils.EnsureDirs(filepath.Dir(path)); err != nil {
		return
	}
	if ext == FILE_EXT_SHP {
		err = removeShapefile(path)
	} else if e := os.Remove(path); e != nil && !os.IsNotExist(e) {
		err = e
	}
	if err != nil {
		return
	}
	ref := g.getRasterRef(m.Projection)
	defer ref.Destroy()
	driver := gdal.OGRDriverByName(driverName)
	ds, ok := driver.Create(path, nil)
	if !ok {
		return fmt.Errorf("%w: %s", ErrGdalDriverCreate, path)
	}
	defer ds.Destroy()
	layer := ds.CreateLayer(utils.GetFilenameWithoutExt(path), ref, gt, []string{ENCODING_OPTION})
	if err = g.initShpLayer(layer, m.Fields); err != nil {
		return
	}
	for _, r := range m.Rows {
		if err = writeMergedFeature(layer, ref, r); err != nil {
			log.Error(g.logTag+"err in create merged feature", zap.Int64("pixel", r.ID), zap.Error(err))
			return
		}
	}
	if err = layer.SyncToDisk(); err != nil {
		return
	}
	log.Info(g.logTag+"merged layer saved", zap.String("path", path), zap.String("driver", driverName), zap.Int("rows", len(m.Rows)))
	return
}

func writeMergedFeature(layer gdal.Layer, ref gdal.SpatialReference, r MergedRow) (err error) {
	feature := layer.Definition().Create()
	defer feature.Destroy()
	fillFeature(feature, r.ID, r.X, r.Y, r.Values)
	if r.Wkt != "" {
		var geo gdal.Geometry
		if geo, err = gdal.CreateFromWKT(r.Wkt, ref); err != nil {
			return
		}
		if err = feature.SetGeometryDirectly(geo); err != nil { // geo所有权已转移
			return
		}
	}
	return layer.Create(feature)
}

package rastvec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wgdzlh/rastvec/log"
	"github.com/wgdzlh/rastvec/utils"

	"go.uber.org/zap"
)

// 单个栅格的输出路径
type outputSet struct {
	name     string
	pointShp string
	polyShp  string
	table    string
	cleanCsv string
}

func newOutputSet(name, vectorDir, csvDir string) outputSet {
	return outputSet{
		name:     name,
		pointShp: filepath.Join(vectorDir, name+SUFFIX_POINTS+FILE_EXT_SHP),
		polyShp:  filepath.Join(vectorDir, name+SUFFIX_POLYGONS+FILE_EXT_SHP),
		table:    filepath.Join(csvDir, name+SUFFIX_TABLE+FILE_EXT_CSV),
		cleanCsv: filepath.Join(csvDir, name+SUFFIX_TABLE_CLEAN+FILE_EXT_CSV),
	}
}

func (o outputSet) files() []string {
	return []string{o.pointShp, o.polyShp, o.table, o.cleanCsv}
}

// 矢量化单个栅格：读取 -> 逐像元生成点/面要素 -> 导出csv
// 所有输出先写入临时目录，全部成功后再移入目标目录；失败时不影响已有输出
func (g *GdalToolbox) VectorizeRaster(ctx context.Context, tif string) (res FileResult) {
	start := time.Now()
	res.Raster = tif
	res.Name = utils.GetFilenameWithoutExt(tif)
	defer func() {
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			log.Error(g.logTag+"vectorize raster failed", zap.String("tif", tif), zap.Error(res.Err))
		} else {
			log.Info(g.logTag+"vectorize raster done", zap.String("tif", tif), zap.Int64("pixels", res.Pixels), zap.Duration("elapsed", res.Elapsed))
		}
	}()
	log.Info(g.logTag+"start vectorize raster", zap.String("tif", tif))
	grid, err := g.LoadRaster(tif)
	if err != nil {
		res.Err = err
		return
	}
	labels, err := ResolveBandLabels(g.cfg.BandLabels, grid.BandCount())
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", tif, err)
		return
	}
	stage, err := g.newStaging(res.Name)
	if err != nil {
		res.Err = err
		return
	}
	defer stage.cleanup()
	if res.Pixels, err = g.vectorizeGrid(ctx, grid, labels, stage.out); err != nil {
		res.Err = fmt.Errorf("%s: %w", tif, err)
		return
	}
	final := newOutputSet(res.Name, g.cfg.VectorDir, g.cfg.CsvDir)
	if err = commitOutputs(stage.out, final); err != nil {
		res.Err = fmt.Errorf("%s: commit outputs: %w", tif, err)
		return
	}
	res.Outputs = final.files()
	return
}

// 写出一套输出，返回保留像元数
func (g *GdalToolbox) vectorizeGrid(ctx context.Context, grid *Grid, labels []string, out outputSet) (n int64, err error) {
	lp, err := g.newLayerPair(out.pointShp, out.polyShp, out.name, grid, labels)
	if err != nil {
		return
	}
	table := NewPixelTable(labels)
	counter := NewIDCounter()
	n, err = ScanPixels(ctx, grid, counter, lp, table)
	if e := lp.Close(); err == nil {
		err = e
	}
	if err != nil {
		return
	}
	log.Info(g.logTag+"vector layers written", zap.String("name", out.name), zap.Int64("features", n), zap.Int64("lastId", counter.Issued()))
	if err = table.WriteCSV(out.table, false, g.cfg.CsvEncoding); err != nil {
		return
	}
	err = table.WriteCSV(out.cleanCsv, true, g.cfg.CsvEncoding)
	return
}

type staging struct {
	dirs []string
	out  outputSet
}

// 在矢量、csv目录下各建一个临时目录，保证最终rename不跨设备
func (g *GdalToolbox) newStaging(name string) (s *staging, err error) {
	if err = utils.EnsureDirs(g.cfg.VectorDir, g.cfg.CsvDir); err != nil {
		return
	}
	s = &staging{}
	vdir, err := utils.GetUniqSubDir(g.cfg.VectorDir, STAGING_PREFIX)
	if err != nil {
		return nil, err
	}
	s.dirs = append(s.dirs, vdir)
	cdir := vdir
	if filepath.Clean(g.cfg.CsvDir) != filepath.Clean(g.cfg.VectorDir) {
		if cdir, err = utils.GetUniqSubDir(g.cfg.CsvDir, STAGING_PREFIX); err != nil {
			s.cleanup()
			return nil, err
		}
		s.dirs = append(s.dirs, cdir)
	}
	s.out = newOutputSet(name, vdir, cdir)
	return
}

func (s *staging) cleanup() {
	for _, d := range s.dirs {
		if err := os.RemoveAll(d); err != nil {
			log.Warn("staging:remove staging dir failed", zap.String("dir", d), zap.Error(err))
		}
	}
}

// 将临时目录中的输出移入目标目录，覆盖同名输出（shp连同其附属文件）
func commitOutputs(stage, final outputSet) (err error) {
	for _, pair := range [][2]string{{stage.pointShp, final.pointShp}, {stage.polyShp, final.polyShp}} {
		if err = removeShapefile(pair[1]); err != nil {
			return
		}
		for _, ext := range shpSidecarExts {
			src := strings.TrimSuffix(pair[0], FILE_EXT_SHP) + ext
			if _, e := os.Stat(src); e != nil {
				continue
			}
			if err = utils.MoveFile(src, strings.TrimSuffix(pair[1], FILE_EXT_SHP)+ext); err != nil {
				return
			}
		}
	}
	for _, pair := range [][2]string{{stage.table, final.table}, {stage.cleanCsv, final.cleanCsv}} {
		if err = utils.MoveFile(pair[0], pair[1]); err != nil {
			return
		}
	}
	return
}

func removeShapefile(shp string) (err error) {
	prefix := strings.TrimSuffix(shp, FILE_EXT_SHP)
	for _, ext := range shpSidecarExts {
		if e := os.Remove(prefix + ext); e != nil && !os.IsNotExist(e) {
			return e
		}
	}
	return
}

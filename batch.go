package rastvec

import (
	"context"
	"fmt"

	"github.com/wgdzlh/rastvec/log"
	"github.com/wgdzlh/rastvec/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 查找输入目录下（不递归）的栅格文件
func (g *GdalToolbox) DiscoverRasters() (files []string, err error) {
	files, err = utils.ListFilesWithExt(g.cfg.InputDir, g.cfg.Extension)
	if err != nil {
		err = fmt.Errorf("list input dir %s: %w", g.cfg.InputDir, err)
		return
	}
	if len(files) == 0 {
		err = fmt.Errorf("%w: %s (*%s)", ErrNoRaster, g.cfg.InputDir, g.cfg.Extension)
		return
	}
	log.Info(g.logTag+"found rasters", zap.String("dir", g.cfg.InputDir), zap.Strings("files", files))
	return
}

// 批量矢量化：单个文件失败只记录并继续，不回滚其他文件
// 仅输出目录无法创建、输入目录不可读或没有栅格时返回错误
func (g *GdalToolbox) Run(ctx context.Context) (report *Report, err error) {
	if err = g.cfg.Validate(); err != nil {
		return
	}
	if err = utils.EnsureDirs(g.cfg.VectorDir, g.cfg.CsvDir); err != nil {
		err = fmt.Errorf("create output dirs: %w", err)
		return
	}
	files, err := g.DiscoverRasters()
	if err != nil {
		return
	}
	report = &Report{Results: make([]FileResult, len(files))}
	// 文件名（不含扩展名）决定输出名，a.tif与a.TIF只处理先发现的一个
	owners := make(map[string]string, len(files))
	var eg errgroup.Group
	eg.SetLimit(g.cfg.Workers)
	for i, tif := range files {
		name := utils.GetFilenameWithoutExt(tif)
		if prev, ok := owners[name]; ok {
			report.Results[i] = FileResult{Raster: tif, Name: name, Err: fmt.Errorf("%w: %s by %s", ErrDuplicateRaster, name, prev)}
			log.Error(g.logTag+"vectorize raster failed", zap.String("tif", tif), zap.Error(report.Results[i].Err))
			continue
		}
		owners[name] = tif
		if ctx.Err() != nil {
			report.Results[i] = FileResult{Raster: tif, Name: name, Err: ctx.Err()}
			continue
		}
		eg.Go(func() error {
			report.Results[i] = g.VectorizeRaster(ctx, tif)
			return nil
		})
	}
	eg.Wait()
	for _, r := range report.Results {
		if r.Ok() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	log.Info(g.logTag+"processing complete for all rasters", zap.Int("total", len(files)),
		zap.Int("succeeded", report.Succeeded), zap.Int("failed", report.Failed))
	return
}

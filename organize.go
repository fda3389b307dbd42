package rastvec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/wgdzlh/rastvec/log"
	"github.com/wgdzlh/rastvec/utils"

	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

const README_NAME = "README.md"

type OrganizeReport struct {
	Dirs    int
	Copied  int
	Skipped int
	Failed  int
}

// 将输出按规则整理到目标bucket（本地目录、同步盘或对象存储）
// 单个对象失败只记录日志，继续处理其余对象
func Organize(ctx context.Context, cfg OrganizeConfig) (report OrganizeReport, err error) {
	if cfg.Target == "" {
		err = fmt.Errorf("%w: organize.target is required", ErrInvalidConfig)
		return
	}
	target, err := blob.OpenBucket(ctx, cfg.Target)
	if err != nil {
		err = fmt.Errorf("open target bucket %s: %w", cfg.Target, err)
		return
	}
	defer target.Close()

	var source *blob.Bucket
	if len(cfg.Rules) > 0 {
		if cfg.Source == "" {
			err = fmt.Errorf("%w: organize.source is required by rules", ErrInvalidConfig)
			return
		}
		if source, err = blob.OpenBucket(ctx, cfg.Source); err != nil {
			err = fmt.Errorf("open source bucket %s: %w", cfg.Source, err)
			return
		}
		defer source.Close()
	}
	return OrganizeBuckets(ctx, source, target, cfg)
}

func OrganizeBuckets(ctx context.Context, source, target *blob.Bucket, cfg OrganizeConfig) (report OrganizeReport, err error) {
	for _, d := range cfg.Dirs {
		key := path.Join(strings.Trim(d, "/"), utils.GIT_KEEP)
		if err = target.WriteAll(ctx, key, nil, nil); err != nil {
			err = fmt.Errorf("create dir %s: %w", d, err)
			return
		}
		report.Dirs++
	}
	if cfg.Readme != "" {
		if err = copyReadme(ctx, target, cfg.Readme); err != nil {
			log.Error("organize:copy readme failed", zap.String("readme", cfg.Readme), zap.Error(err))
			report.Failed++
			err = nil
		} else {
			report.Copied++
		}
	}
	for _, rule := range cfg.Rules {
		if err = ctx.Err(); err != nil {
			return
		}
		if _, err = path.Match(rule.Pattern, ""); err != nil {
			err = fmt.Errorf("%w: pattern %q: %v", ErrInvalidConfig, rule.Pattern, err)
			return
		}
		if err = applyRule(ctx, source, target, rule, cfg.SkipExisting, &report); err != nil {
			return
		}
	}
	log.Info("organize:done", zap.Int("dirs", report.Dirs), zap.Int("copied", report.Copied),
		zap.Int("skipped", report.Skipped), zap.Int("failed", report.Failed))
	return
}

func applyRule(ctx context.Context, source, target *blob.Bucket, rule OrganizeRule, skipExisting bool, report *OrganizeReport) (err error) {
	prefix := strings.Trim(rule.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	iter := source.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	for {
		obj, e := iter.Next(ctx)
		if e == io.EOF {
			return
		} else if e != nil {
			return fmt.Errorf("list %s: %w", prefix, e)
		}
		if obj.IsDir {
			continue
		}
		name := path.Base(obj.Key)
		if ok, _ := path.Match(rule.Pattern, name); !ok {
			continue
		}
		dst := path.Join(strings.Trim(rule.Dest, "/"), name)
		if skipExisting {
			exists, e := target.Exists(ctx, dst)
			if e == nil && exists {
				report.Skipped++
				continue
			}
		}
		if e = copyObject(ctx, source, target, obj.Key, dst); e != nil {
			log.Error("organize:copy failed", zap.String("src", obj.Key), zap.String("dst", dst), zap.Error(e))
			report.Failed++
			continue
		}
		log.Debug("organize:copied", zap.String("src", obj.Key), zap.String("dst", dst))
		report.Copied++
	}
}

func copyObject(ctx context.Context, source, target *blob.Bucket, src, dst string) (err error) {
	r, err := source.NewReader(ctx, src, nil)
	if err != nil {
		return
	}
	defer r.Close()
	w, err := target.NewWriter(ctx, dst, nil)
	if err != nil {
		return
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		target.Delete(ctx, dst)
		return
	}
	return w.Close()
}

func copyReadme(ctx context.Context, target *blob.Bucket, readme string) (err error) {
	f, err := os.Open(readme)
	if err != nil {
		return
	}
	defer f.Close()
	w, err := target.NewWriter(ctx, README_NAME, nil)
	if err != nil {
		return
	}
	_, err = io.Copy(w, f)
	return errors.Join(err, w.Close())
}

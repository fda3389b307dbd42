package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
)

const (
	GIT_KEEP = ".gitkeep"

	workflowDoc = "# Workflow Documentation\n\n## Overview\nThis document describes the workflow for processing temporal land cover data.\n"
)

var (
	ErrNotDir = errors.New("not a directory")
)

// 在parentPath下创建唯一命名的子目录
func GetUniqSubDir(parentPath, prefix string) (path string, err error) {
	path = filepath.Join(parentPath, prefix+uuid.NewString())
	err = os.Mkdir(path, os.ModePerm)
	return
}

func EnsureDirs(dirs ...string) (err error) {
	for _, d := range dirs {
		if err = os.MkdirAll(d, os.ModePerm); err != nil {
			return
		}
	}
	return
}

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 列出dir下（不递归）扩展名为ext的普通文件，忽略大小写，按文件名排序
func ListFilesWithExt(dir, ext string) (files []string, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return
	}
	if !info.IsDir() {
		err = ErrNotDir
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return
}

// 移动文件，跨设备时退化为复制+删除
func MoveFile(src, dst string) (err error) {
	if err = os.Rename(src, dst); err == nil {
		return
	}
	if !errors.Is(err, syscall.EXDEV) {
		return
	}
	if err = CopyFile(src, dst); err != nil {
		return
	}
	return os.Remove(src)
}

func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return
	}
	return out.Close()
}

// 创建目录结构（每个目录放置.gitkeep），docs目录存在时补充流程文档
func Scaffold(base string, dirs []string) (created []string, err error) {
	for _, d := range dirs {
		full := filepath.Join(base, d)
		if err = os.MkdirAll(full, os.ModePerm); err != nil {
			return
		}
		keep := filepath.Join(full, GIT_KEEP)
		var f *os.File
		if f, err = os.OpenFile(keep, os.O_CREATE|os.O_WRONLY, 0o644); err != nil {
			return
		}
		f.Close()
		created = append(created, d)
	}
	docsDir := filepath.Join(base, "docs")
	if info, e := os.Stat(docsDir); e == nil && info.IsDir() {
		doc := filepath.Join(docsDir, "workflow_documentation.md")
		if _, e = os.Stat(doc); os.IsNotExist(e) {
			err = os.WriteFile(doc, []byte(workflowDoc), 0o644)
		}
	}
	return
}
